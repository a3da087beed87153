package notify

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/mattn/go-runewidth"

	"github.com/shanehull/cryptobriefs/internal/blog"
	"github.com/shanehull/cryptobriefs/internal/config"
	"github.com/shanehull/cryptobriefs/internal/feed"
	"github.com/shanehull/cryptobriefs/internal/ingest"
	"github.com/shanehull/cryptobriefs/internal/types"
)

type fakeSender struct {
	sent []*RenderedMessage
	err  error
}

func (s *fakeSender) Send(msg *RenderedMessage) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport() *ingest.RunReport {
	return &ingest.RunReport{
		StartedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Feed: feed.Report{
			Feeds:    2,
			Fetched:  12,
			Failures: []feed.FeedError{{URL: "https://down.example/rss", Err: errors.New("timeout")}},
		},
		Considered: 10,
		Classified: 2,
		Reused:     8,
		Inserted:   1,
		Failed:     1,
		Writes: []ingest.WriteResult{
			{Link: "https://example.com/a", Title: "Bitcoin <rallies>", Sentiment: types.Bullish, Inserted: true},
			{Link: "https://example.com/b", Title: "ETH dips", Sentiment: types.Bearish, Err: errors.New("write refused")},
		},
	}
}

func TestFormatTableAlignsWideCharacters(t *testing.T) {
	out := FormatTable([]string{"A", "B"}, [][]string{
		{"比特币", "x"},
		{"btc", "y"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, len(lines), 4)

	// Every row puts column B at the same display offset.
	offset := runewidth.StringWidth("比特币") + 2
	for _, l := range []string{lines[0], lines[2], lines[3]} {
		prefix := runewidth.Truncate(l, offset, "")
		assert.Equal(t, runewidth.StringWidth(prefix), offset)
	}
	assert.Equal(t, strings.HasPrefix(lines[1], "------"), true)
}

func TestFormatTableTruncatesLongCells(t *testing.T) {
	long := strings.Repeat("x", 200)
	out := FormatTable([]string{"Title"}, [][]string{{long}})

	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if runewidth.StringWidth(l) > maxCellWidth {
			t.Errorf("line wider than %d: %q", maxCellWidth, l)
		}
	}
}

func TestFormatNewsTable(t *testing.T) {
	assert.Equal(t, FormatNewsTable(nil), "No news stored yet.\n")

	out := FormatNewsTable([]types.NewsRecord{{
		Title:     "Solana rallies",
		Published: time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
		Coins:     []string{"SOL", "BTC"},
		Sentiment: types.Bullish,
	}})

	assert.Equal(t, strings.Contains(out, "2025-05-01 09:30"), true)
	assert.Equal(t, strings.Contains(out, "SOL,BTC"), true)
	assert.Equal(t, strings.Contains(out, "Solana rallies"), true)
}

func TestReportRun(t *testing.T) {
	var buf bytes.Buffer
	ReportRun(&buf, sampleReport())
	out := buf.String()

	assert.Equal(t, strings.Contains(out, "1 inserted, 0 updated, 1 failed"), true)
	assert.Equal(t, strings.Contains(out, "feed error: feed https://down.example/rss: timeout"), true)
	assert.Equal(t, strings.Contains(out, "inserted"), true)
	assert.Equal(t, strings.Contains(out, "failed"), true)
}

func TestRenderRun(t *testing.T) {
	msg, err := NewHTMLEmailRenderer().RenderRun(sampleReport())
	if err != nil {
		t.Fatalf("RenderRun failed: %v", err)
	}

	assert.Equal(t, msg.Subject, "Crypto Briefs ingest: 1 new, 0 updated, 1 failed")
	assert.Equal(t, strings.Contains(msg.Text, "[failed] ETH dips (bearish)"), true)
	assert.Equal(t, strings.Contains(msg.HTML, "Bitcoin &lt;rallies&gt;"), true)
	assert.Equal(t, strings.Contains(msg.HTML, "https://down.example/rss"), true)
}

func TestRenderBlog(t *testing.T) {
	res := &blog.Result{
		Idea:      "Whales move",
		Title:     "Why Whales Are Moving",
		Published: true,
		Post:      &blog.Post{Title: "Why Whales Are Moving", Content: "## Intro", Tag: "btc", ImageURL: "https://cdn.example/c.jpg"},
	}

	msg, err := NewHTMLEmailRenderer().RenderBlog(res)
	if err != nil {
		t.Fatalf("RenderBlog failed: %v", err)
	}

	assert.Equal(t, msg.Subject, "Crypto Briefs blog: Why Whales Are Moving")
	assert.Equal(t, strings.Contains(msg.HTML, "https://cdn.example/c.jpg"), true)
	assert.Equal(t, strings.Contains(msg.Text, "## Intro"), true)
}

func TestNotifierEmailsOnlyWhenSomethingHappened(t *testing.T) {
	sender := &fakeSender{}
	var console bytes.Buffer
	n := NewNotifier(&console, sender, quietLogger())

	n.IngestFinished(&ingest.RunReport{Feed: feed.Report{Feeds: 2}})
	assert.Equal(t, len(sender.sent), 0)

	n.IngestFinished(sampleReport())
	assert.Equal(t, len(sender.sent), 1)

	n.BlogFinished(&blog.Result{Skipped: true})
	assert.Equal(t, len(sender.sent), 1)

	n.BlogFinished(&blog.Result{Title: "T", Published: true, Post: &blog.Post{Title: "T"}})
	assert.Equal(t, len(sender.sent), 2)

	assert.Equal(t, strings.Contains(console.String(), "INGEST RUN"), true)
}

func TestNotifierWithoutSender(t *testing.T) {
	var console bytes.Buffer
	n := NewNotifier(&console, nil, quietLogger())

	n.IngestFinished(sampleReport())
	n.BlogFinished(&blog.Result{Skipped: true})

	assert.Equal(t, strings.Contains(console.String(), "Blog run skipped"), true)
}

func TestBuildMessage(t *testing.T) {
	cfg := config.EmailConfig{FromEmail: "bot@example.com", ToEmail: "ops@example.com"}
	m := buildMessage(cfg, &RenderedMessage{Subject: "Hello", Text: "plain", HTML: "<p>html</p>"})

	assert.Equal(t, m.GetHeader("From"), []string{"bot@example.com"})
	assert.Equal(t, m.GetHeader("To"), []string{"ops@example.com"})
	assert.Equal(t, m.GetHeader("Subject"), []string{"Hello"})
}
