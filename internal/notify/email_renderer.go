package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shanehull/cryptobriefs/internal/blog"
	"github.com/shanehull/cryptobriefs/internal/ingest"
)

// HTMLEmailRenderer renders notifications as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
}

// NewHTMLEmailRenderer creates a renderer with the default email templates.
func NewHTMLEmailRenderer() *HTMLEmailRenderer {
	t := template.Must(template.New("email").Funcs(template.FuncMap{
		"outcome": writeOutcome,
	}).Parse(emailLayoutTemplate))
	template.Must(t.New("run").Parse(runBodyTemplate))
	template.Must(t.New("blog").Parse(blogBodyTemplate))
	return &HTMLEmailRenderer{tmpl: t}
}

type emailData struct {
	Title string
	Run   *ingest.RunReport
	Blog  *blog.Result
}

// RenderRun produces the email for an ingestion run.
func (r *HTMLEmailRenderer) RenderRun(report *ingest.RunReport) (*RenderedMessage, error) {
	subject := fmt.Sprintf("Crypto Briefs ingest: %d new, %d updated, %d failed",
		report.Inserted, report.Updated, report.Failed)

	html, err := r.execute(emailData{Title: subject, Run: report})
	if err != nil {
		return nil, err
	}

	return &RenderedMessage{
		Subject: subject,
		Text:    renderRunText(report),
		HTML:    html,
	}, nil
}

// RenderBlog produces the email for a published post.
func (r *HTMLEmailRenderer) RenderBlog(res *blog.Result) (*RenderedMessage, error) {
	subject := fmt.Sprintf("Crypto Briefs blog: %s", res.Title)

	html, err := r.execute(emailData{Title: subject, Blog: res})
	if err != nil {
		return nil, err
	}

	return &RenderedMessage{
		Subject: subject,
		Text:    renderBlogText(res),
		HTML:    html,
	}, nil
}

func (r *HTMLEmailRenderer) execute(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("failed to render HTML template: %w", err)
	}
	return buf.String(), nil
}

func renderRunText(r *ingest.RunReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Ingest run %s\n", r.StartedAt.Format("02 Jan 2006 15:04 MST")))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(fmt.Sprintf("Feeds: %d items from %d feeds, %d failed\n", r.Feed.Fetched, r.Feed.Feeds, r.Feed.Failed()))
	sb.WriteString(fmt.Sprintf("Classified: %d, reused: %d\n", r.Classified, r.Reused))
	sb.WriteString(fmt.Sprintf("Inserted: %d, updated: %d, failed: %d\n\n", r.Inserted, r.Updated, r.Failed))

	if len(r.Writes) > 0 {
		sb.WriteString("RECORDS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, w := range r.Writes {
			sb.WriteString(fmt.Sprintf("• [%s] %s (%s)\n  %s\n", writeOutcome(w), w.Title, w.Sentiment, w.Link))
		}
		sb.WriteString("\n")
	}

	if len(r.Feed.Failures) > 0 {
		sb.WriteString("FEED ERRORS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, f := range r.Feed.Failures {
			sb.WriteString(fmt.Sprintf("• %s\n", f.Error()))
		}
	}

	return sb.String()
}

func renderBlogText(res *blog.Result) string {
	var sb strings.Builder

	sb.WriteString(res.Title + "\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(fmt.Sprintf("Idea: %s\n", res.Idea))
	if res.Post != nil {
		if res.Post.ImageURL != "" {
			sb.WriteString(fmt.Sprintf("Cover: %s\n", res.Post.ImageURL))
		}
		sb.WriteString(fmt.Sprintf("Tags: %s\n\n", res.Post.Tag))
		sb.WriteString(res.Post.Content + "\n")
	}

	return sb.String()
}
