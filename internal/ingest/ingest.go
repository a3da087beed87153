/*
Package ingest runs one ingestion pass: fetch the feeds, look up what is already stored,
classify only what still needs a sentiment and upsert the records that changed.
*/
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shanehull/cryptobriefs/internal/feed"
	"github.com/shanehull/cryptobriefs/internal/types"
)

const (
	DefaultMaxPerRun        = 10
	DefaultWriteConcurrency = 5
)

// ArticleSource yields the candidate articles of a run, newest first.
type ArticleSource interface {
	Fetch(ctx context.Context) ([]types.Article, feed.Report)
}

// Store is the part of the persisted store a run needs.
type Store interface {
	FindSentiments(ctx context.Context, links []string) (map[string]types.Sentiment, error)
	Upsert(ctx context.Context, rec types.NewsRecord) (inserted bool, err error)
}

// Classifier never fails; problems come back as types.Neutral.
type Classifier interface {
	Classify(ctx context.Context, title string) types.Sentiment
}

// Options bounds a run.
type Options struct {
	MaxPerRun        int
	WriteConcurrency int
}

// WriteResult is the outcome of a single upsert.
type WriteResult struct {
	Link      string
	Title     string
	Sentiment types.Sentiment
	Inserted  bool
	Err       error
}

// RunReport describes what one run did.
type RunReport struct {
	StartedAt  time.Time
	Duration   time.Duration
	Feed       feed.Report
	Considered int // after the per-run cap
	Dropped    int // missing or repeated links
	Reused     int // already bullish/bearish, not classified again
	Classified int
	Unchanged  int // classified but equal to what is stored
	Inserted   int
	Updated    int
	Failed     int
	Writes     []WriteResult
}

// Wrote reports whether the run changed or tried to change the store.
func (r *RunReport) Wrote() bool {
	return len(r.Writes) > 0
}

// Engine merges freshly fetched articles into the store.
type Engine struct {
	source     ArticleSource
	store      Store
	classifier Classifier
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(source ArticleSource, store Store, classifier Classifier, opts Options, logger *slog.Logger) *Engine {
	if opts.MaxPerRun <= 0 {
		opts.MaxPerRun = DefaultMaxPerRun
	}
	if opts.WriteConcurrency <= 0 {
		opts.WriteConcurrency = DefaultWriteConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		source:     source,
		store:      store,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one ingestion pass. A failed store lookup aborts the run before
// anything is written. Individual write failures are reported in the RunReport
// and do not fail the run.
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{StartedAt: e.now()}
	defer func() { report.Duration = e.now().Sub(report.StartedAt) }()

	e.logger.Info("ingest run started")

	articles, feedReport := e.source.Fetch(ctx)
	report.Feed = feedReport

	batch, dropped := e.prepare(articles)
	report.Considered = len(batch) + dropped
	report.Dropped = dropped

	if len(batch) == 0 {
		e.logger.Info("ingest run finished, nothing to do", "fetched", feedReport.Fetched, "failed_feeds", feedReport.Failed())
		return report, nil
	}

	links := make([]string, len(batch))
	for i, a := range batch {
		links[i] = a.Link
	}

	existing, err := e.store.FindSentiments(ctx, links)
	if err != nil {
		return report, fmt.Errorf("store lookup failed, run aborted: %w", err)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, e.opts.WriteConcurrency)
	)

	for _, article := range batch {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("ingest run interrupted", "error", err)
			break
		}

		stored, found := existing[article.Link]

		if found && stored.IsDefinite() {
			report.Reused++
			e.logger.Debug("skipping classification, sentiment already settled",
				"title", article.Title, "sentiment", stored)
			continue
		}

		sentiment := e.classifier.Classify(ctx, article.Title)
		report.Classified++
		e.logger.Info("headline classified", "title", article.Title, "sentiment", sentiment)

		if found && sentiment == stored {
			report.Unchanged++
			continue
		}

		rec := article.Record(sentiment)

		wg.Add(1)
		go func(rec types.NewsRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			inserted, err := e.store.Upsert(ctx, rec)

			mu.Lock()
			defer mu.Unlock()

			report.Writes = append(report.Writes, WriteResult{
				Link:      rec.Link,
				Title:     rec.Title,
				Sentiment: rec.Sentiment,
				Inserted:  inserted,
				Err:       err,
			})

			switch {
			case err != nil:
				report.Failed++
				e.logger.Error("upsert failed", "link", rec.Link, "error", err)
			case inserted:
				report.Inserted++
			default:
				report.Updated++
			}
		}(rec)
	}

	wg.Wait()

	sort.SliceStable(report.Writes, func(i, j int) bool {
		return report.Writes[i].Link < report.Writes[j].Link
	})

	e.logger.Info("ingest run finished",
		"fetched", feedReport.Fetched,
		"failed_feeds", feedReport.Failed(),
		"considered", report.Considered,
		"classified", report.Classified,
		"reused", report.Reused,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"failed", report.Failed,
	)

	return report, nil
}

// prepare keeps the newest MaxPerRun articles, then drops those without a link
// and repeats of a link already in the batch.
func (e *Engine) prepare(articles []types.Article) ([]types.Article, int) {
	sorted := make([]types.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})

	if len(sorted) > e.opts.MaxPerRun {
		sorted = sorted[:e.opts.MaxPerRun]
	}

	seen := make(map[string]bool, len(sorted))
	batch := make([]types.Article, 0, len(sorted))
	dropped := 0

	for _, a := range sorted {
		if a.Link == "" || seen[a.Link] {
			dropped++
			continue
		}
		seen[a.Link] = true

		if a.Title == "" {
			a.Title = types.UntitledPlaceholder
		}
		if a.Image == "" {
			a.Image = types.ImagePlaceholder
		}
		if a.Published.IsZero() {
			a.Published = e.now().UTC()
		}
		batch = append(batch, a)
	}

	return batch, dropped
}
