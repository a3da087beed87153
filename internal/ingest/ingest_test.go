package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/shanehull/cryptobriefs/internal/feed"
	"github.com/shanehull/cryptobriefs/internal/types"
)

var base = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	articles []types.Article
}

func (s *fakeSource) Fetch(context.Context) ([]types.Article, feed.Report) {
	return s.articles, feed.Report{Feeds: 1, Fetched: len(s.articles)}
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]types.NewsRecord
	lookupErr error
	failLinks map[string]bool
	upserts   []types.NewsRecord
	lookups   int

	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeStore(existing ...types.NewsRecord) *fakeStore {
	s := &fakeStore{records: map[string]types.NewsRecord{}, failLinks: map[string]bool{}}
	for _, r := range existing {
		s.records[r.Link] = r
	}
	return s
}

func (s *fakeStore) FindSentiments(_ context.Context, links []string) (map[string]types.Sentiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++

	if s.lookupErr != nil {
		return nil, s.lookupErr
	}

	out := map[string]types.Sentiment{}
	for _, l := range links {
		if r, ok := s.records[l]; ok {
			out[l] = r.Sentiment
		}
	}
	return out, nil
}

func (s *fakeStore) Upsert(_ context.Context, rec types.NewsRecord) (bool, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, rec)

	if s.failLinks[rec.Link] {
		return false, errors.New("write refused")
	}

	existing, ok := s.records[rec.Link]
	if ok {
		existing.Sentiment = rec.Sentiment
		s.records[rec.Link] = existing
		return false, nil
	}
	s.records[rec.Link] = rec
	return true, nil
}

type fakeClassifier struct {
	mu      sync.Mutex
	answers map[string]types.Sentiment
	calls   []string
}

func (c *fakeClassifier) Classify(_ context.Context, title string) types.Sentiment {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, title)
	if s, ok := c.answers[title]; ok {
		return s
	}
	return types.Neutral
}

func article(n int) types.Article {
	return types.Article{
		Title:     fmt.Sprintf("Headline %d", n),
		Link:      fmt.Sprintf("https://example.com/%d", n),
		Image:     types.ImagePlaceholder,
		Published: base.Add(-time.Duration(n) * time.Minute),
		Coins:     []string{},
		Sentiment: types.Neutral,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(src []types.Article, st *fakeStore, cl *fakeClassifier, opts Options) *Engine {
	return NewEngine(&fakeSource{articles: src}, st, cl, opts, quietLogger())
}

func TestRunSkipsSettledSentiment(t *testing.T) {
	a := article(1)
	st := newFakeStore(types.NewsRecord{Link: a.Link, Title: a.Title, Sentiment: types.Bullish})
	cl := &fakeClassifier{answers: map[string]types.Sentiment{a.Title: types.Bearish}}

	report, err := newTestEngine([]types.Article{a}, st, cl, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, len(cl.calls), 0)
	assert.Equal(t, len(st.upserts), 0)
	assert.Equal(t, report.Reused, 1)
	assert.Equal(t, st.records[a.Link].Sentiment, types.Bullish)
}

func TestRunInsertsFirstSighting(t *testing.T) {
	a := article(1)
	a.Coins = []string{"BTC"}
	st := newFakeStore()
	cl := &fakeClassifier{answers: map[string]types.Sentiment{a.Title: types.Bullish}}

	report, err := newTestEngine([]types.Article{a}, st, cl, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, len(cl.calls), 1)
	assert.Equal(t, report.Inserted, 1)
	assert.Equal(t, report.Classified, 1)

	rec := st.records[a.Link]
	assert.Equal(t, rec.Title, a.Title)
	assert.Equal(t, rec.Image, a.Image)
	assert.Equal(t, rec.Published, a.Published)
	assert.Equal(t, rec.Coins, []string{"BTC"})
	assert.Equal(t, rec.Sentiment, types.Bullish)
}

func TestRunReclassifiesNeutral(t *testing.T) {
	a := article(1)
	st := newFakeStore(types.NewsRecord{Link: a.Link, Title: "Original title", Sentiment: types.Neutral})
	cl := &fakeClassifier{answers: map[string]types.Sentiment{a.Title: types.Bearish}}

	report, err := newTestEngine([]types.Article{a}, st, cl, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, len(cl.calls), 1)
	assert.Equal(t, len(st.upserts), 1)
	assert.Equal(t, report.Updated, 1)
	assert.Equal(t, st.records[a.Link].Sentiment, types.Bearish)
	assert.Equal(t, st.records[a.Link].Title, "Original title")
}

func TestRunUnchangedNeutralIsNotWritten(t *testing.T) {
	a := article(1)
	st := newFakeStore(types.NewsRecord{Link: a.Link, Sentiment: types.Neutral})
	cl := &fakeClassifier{}

	report, err := newTestEngine([]types.Article{a}, st, cl, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, len(cl.calls), 1)
	assert.Equal(t, len(st.upserts), 0)
	assert.Equal(t, report.Unchanged, 1)
	assert.Equal(t, report.Wrote(), false)
}

func TestRunDegradedClassifierStoresNeutral(t *testing.T) {
	a := article(1)
	st := newFakeStore()

	report, err := newTestEngine([]types.Article{a}, st, &fakeClassifier{}, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, report.Inserted, 1)
	assert.Equal(t, st.records[a.Link].Sentiment, types.Neutral)
}

func TestRunCapsBatchToNewest(t *testing.T) {
	var articles []types.Article
	// Oldest first so the cap depends on sorting.
	for i := 15; i >= 1; i-- {
		articles = append(articles, article(i))
	}
	st := newFakeStore()
	cl := &fakeClassifier{}

	report, err := newTestEngine(articles, st, cl, Options{MaxPerRun: 10}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, len(cl.calls), 10)
	assert.Equal(t, report.Considered, 10)
	assert.Equal(t, report.Inserted, 10)
	for i := 1; i <= 10; i++ {
		if _, ok := st.records[article(i).Link]; !ok {
			t.Errorf("expected %s to be stored", article(i).Link)
		}
	}
	for i := 11; i <= 15; i++ {
		if _, ok := st.records[article(i).Link]; ok {
			t.Errorf("did not expect %s to be stored", article(i).Link)
		}
	}
}

func TestRunDropsMissingAndRepeatedLinks(t *testing.T) {
	noLink := article(2)
	noLink.Link = ""
	dup := article(3)
	dup.Link = article(1).Link
	dup.Title = "Older copy"

	st := newFakeStore()
	cl := &fakeClassifier{}

	report, err := newTestEngine([]types.Article{article(1), noLink, dup}, st, cl, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, report.Dropped, 2)
	assert.Equal(t, len(st.upserts), 1)
	assert.Equal(t, st.upserts[0].Title, article(1).Title)
	assert.Equal(t, cl.calls, []string{article(1).Title})
}

func TestRunLookupFailureIsNoOp(t *testing.T) {
	st := newFakeStore()
	st.lookupErr = errors.New("connection reset")
	cl := &fakeClassifier{}

	_, err := newTestEngine([]types.Article{article(1), article(2)}, st, cl, Options{}).Run(context.Background())
	if err == nil {
		t.Fatal("expected lookup error")
	}
	if !errors.Is(err, st.lookupErr) {
		t.Errorf("err = %v, want wrapped %v", err, st.lookupErr)
	}

	assert.Equal(t, len(cl.calls), 0)
	assert.Equal(t, len(st.upserts), 0)
}

func TestRunReportsEachWrite(t *testing.T) {
	st := newFakeStore()
	st.failLinks[article(2).Link] = true

	report, err := newTestEngine([]types.Article{article(1), article(2), article(3)}, st, &fakeClassifier{}, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, len(report.Writes), 3)
	assert.Equal(t, report.Inserted, 2)
	assert.Equal(t, report.Failed, 1)

	for _, w := range report.Writes {
		if w.Link == article(2).Link {
			if w.Err == nil {
				t.Error("expected failed write to carry its error")
			}
			continue
		}
		assert.Equal(t, w.Err, nil)
		assert.Equal(t, w.Inserted, true)
	}
}

func TestRunBoundsWriteConcurrency(t *testing.T) {
	var articles []types.Article
	for i := 1; i <= 10; i++ {
		articles = append(articles, article(i))
	}
	st := newFakeStore()
	st.delay = 20 * time.Millisecond

	report, err := newTestEngine(articles, st, &fakeClassifier{}, Options{WriteConcurrency: 2}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, report.Inserted, 10)
	if peak := st.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent writes = %d, want <= 2", peak)
	}
}

func TestRunTwiceIsIdempotentForSettledRecords(t *testing.T) {
	a, b := article(1), article(2)
	st := newFakeStore()
	cl := &fakeClassifier{answers: map[string]types.Sentiment{a.Title: types.Bullish, b.Title: types.Bearish}}
	engine := newTestEngine([]types.Article{a, b}, st, cl, Options{})

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	assert.Equal(t, len(cl.calls), 2)
	assert.Equal(t, len(st.upserts), 2)
	assert.Equal(t, second.Reused, 2)
	assert.Equal(t, second.Wrote(), false)
}

func TestRunEmptyFeedSkipsLookup(t *testing.T) {
	st := newFakeStore()

	report, err := newTestEngine(nil, st, &fakeClassifier{}, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assert.Equal(t, st.lookups, 0)
	assert.Equal(t, report.Considered, 0)
}

func TestPrepareFillsPlaceholders(t *testing.T) {
	e := newTestEngine(nil, newFakeStore(), &fakeClassifier{}, Options{})
	e.now = func() time.Time { return base }

	batch, dropped := e.prepare([]types.Article{{Link: "https://example.com/bare"}})

	assert.Equal(t, dropped, 0)
	assert.Equal(t, len(batch), 1)
	assert.Equal(t, batch[0].Title, types.UntitledPlaceholder)
	assert.Equal(t, batch[0].Image, types.ImagePlaceholder)
	assert.Equal(t, batch[0].Published, base)
}
