/*
Package notify reports ingestion runs and published blog posts on the console and,
when SMTP is configured, by email.
*/
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/shanehull/cryptobriefs/internal/blog"
	"github.com/shanehull/cryptobriefs/internal/ingest"
	"github.com/shanehull/cryptobriefs/internal/types"
)

const maxCellWidth = 60

// RenderedMessage is an email ready to send.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(msg *RenderedMessage) error
}

// Notifier fans a finished job out to the console and the optional email sender.
type Notifier struct {
	out      io.Writer
	sender   Sender
	renderer *HTMLEmailRenderer
	logger   *slog.Logger
}

// NewNotifier creates a notifier. A nil sender disables email.
func NewNotifier(out io.Writer, sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		out:      out,
		sender:   sender,
		renderer: NewHTMLEmailRenderer(),
		logger:   logger,
	}
}

// IngestFinished prints the run and emails it when something was written.
func (n *Notifier) IngestFinished(report *ingest.RunReport) {
	if report == nil {
		return
	}
	if n.out != nil {
		ReportRun(n.out, report)
	}

	if n.sender == nil || (!report.Wrote() && report.Feed.Failed() == 0) {
		return
	}

	msg, err := n.renderer.RenderRun(report)
	if err != nil {
		n.logger.Error("failed to render run email", "error", err)
		return
	}
	if err := n.sender.Send(msg); err != nil {
		n.logger.Error("failed to send run email", "error", err)
	}
}

// BlogFinished prints the post and emails it once published.
func (n *Notifier) BlogFinished(res *blog.Result) {
	if res == nil {
		return
	}
	if n.out != nil {
		ReportBlog(n.out, res)
	}

	if n.sender == nil || !res.Published {
		return
	}

	msg, err := n.renderer.RenderBlog(res)
	if err != nil {
		n.logger.Error("failed to render blog email", "error", err)
		return
	}
	if err := n.sender.Send(msg); err != nil {
		n.logger.Error("failed to send blog email", "error", err)
	}
}

// ReportRun writes a human readable summary of an ingestion run.
func ReportRun(w io.Writer, r *ingest.RunReport) {
	fmt.Fprintln(w, "\n===========================================")
	fmt.Fprintf(w, "INGEST RUN %s (%s)\n", r.StartedAt.Format("02 Jan 2006 15:04"), r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintf(w, "Feeds:      %d fetched items from %d feeds, %d failed\n", r.Feed.Fetched, r.Feed.Feeds, r.Feed.Failed())
	fmt.Fprintf(w, "Considered: %d (dropped %d)\n", r.Considered, r.Dropped)
	fmt.Fprintf(w, "Classified: %d, reused %d, unchanged %d\n", r.Classified, r.Reused, r.Unchanged)
	fmt.Fprintf(w, "Writes:     %d inserted, %d updated, %d failed\n", r.Inserted, r.Updated, r.Failed)

	for _, f := range r.Feed.Failures {
		fmt.Fprintf(w, "  feed error: %s\n", f.Error())
	}

	if len(r.Writes) == 0 {
		fmt.Fprintln(w, "No records written.")
		return
	}

	rows := make([][]string, 0, len(r.Writes))
	for _, wr := range r.Writes {
		rows = append(rows, []string{writeOutcome(wr), string(wr.Sentiment), wr.Title, wr.Link})
	}
	fmt.Fprint(w, FormatTable([]string{"Outcome", "Sentiment", "Title", "Link"}, rows))
}

// ReportBlog writes the outcome of a blog pipeline run.
func ReportBlog(w io.Writer, res *blog.Result) {
	fmt.Fprintln(w, "\n-------------------------------------------")
	switch {
	case res.Skipped:
		fmt.Fprintln(w, "Blog run skipped: no ideas generated.")
	case res.Published:
		fmt.Fprintf(w, "✅ Blog post published: %s\n", res.Title)
		fmt.Fprintf(w, "Idea:  %s\n", res.Idea)
		if res.Post != nil && res.Post.ImageURL != "" {
			fmt.Fprintf(w, "Cover: %s\n", res.Post.ImageURL)
		} else {
			fmt.Fprintln(w, "Cover: none")
		}
	default:
		fmt.Fprintf(w, "Blog run failed (idea: %q).\n", res.Idea)
	}
	fmt.Fprintln(w, "-------------------------------------------")
}

// FormatNewsTable renders stored records as an aligned table.
func FormatNewsTable(records []types.NewsRecord) string {
	if len(records) == 0 {
		return "No news stored yet.\n"
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Published.Format("2006-01-02 15:04"),
			string(r.Sentiment),
			strings.Join(r.Coins, ","),
			r.Title,
		})
	}
	return FormatTable([]string{"Published", "Sentiment", "Coins", "Title"}, rows)
}

// FormatTable pads every column to its display width. Cells wider than
// maxCellWidth are truncated.
func FormatTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)

	for _, row := range rows {
		out := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				out[i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			}
		}
		cells = append(cells, out)
	}

	for _, row := range cells {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	for r, row := range cells {
		for i, c := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(c)
			} else {
				sb.WriteString(runewidth.FillRight(c, widths[i]))
			}
		}
		sb.WriteString("\n")

		if r == 0 {
			for i, w := range widths {
				if i > 0 {
					sb.WriteString("  ")
				}
				sb.WriteString(strings.Repeat("-", w))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func writeOutcome(wr ingest.WriteResult) string {
	switch {
	case wr.Err != nil:
		return "failed"
	case wr.Inserted:
		return "inserted"
	default:
		return "updated"
	}
}
