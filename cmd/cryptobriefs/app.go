package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shanehull/cryptobriefs/internal/ai"
	"github.com/shanehull/cryptobriefs/internal/blog"
	"github.com/shanehull/cryptobriefs/internal/coins"
	"github.com/shanehull/cryptobriefs/internal/config"
	"github.com/shanehull/cryptobriefs/internal/feed"
	"github.com/shanehull/cryptobriefs/internal/history"
	"github.com/shanehull/cryptobriefs/internal/ingest"
	"github.com/shanehull/cryptobriefs/internal/notify"
	"github.com/shanehull/cryptobriefs/internal/sentiment"
	"github.com/shanehull/cryptobriefs/internal/store"
)

const (
	jobIngest  = "ingest"
	jobBlog    = "blog"
	jobSummary = "summary"
)

var (
	errBlogDisabled    = errors.New("blog job is disabled or missing GEMINI_API_KEY / BASE_API_URL")
	errSummaryDisabled = errors.New("summary trigger needs BASE_API_URL")
)

// app holds the components shared by the worker jobs. Optional parts are nil
// when their configuration is missing.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	engine    *ingest.Engine
	pipeline  *blog.Pipeline
	publisher *blog.HTTPPublisher
	notifier  *notify.Notifier
	history   *history.Manager
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var sender notify.Sender
	if cfg.EmailEnabled() {
		sender = notify.NewEmailSender(cfg.Email, logger)
	}
	a.notifier = notify.NewNotifier(os.Stdout, sender, logger)

	if h, err := history.NewManager("", cfg.Schedule.Timezone, logger); err != nil {
		logger.Warn("run history disabled", "error", err)
	} else {
		a.history = h
	}

	if cfg.Blog.BaseAPIURL != "" {
		a.publisher = blog.NewHTTPPublisher(cfg.Blog.BaseAPIURL, 30*time.Second)
	}

	if cfg.BlogReady() {
		writer, err := ai.NewWriter(ctx, cfg.Blog.APIKey, cfg.Blog.Model, cfg.Blog.ImageModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create blog writer: %w", err)
		}
		a.pipeline = blog.NewPipeline(writer, a.publisher, blog.Options{
			Style: ai.Style{
				Tone:     cfg.Blog.Tone,
				Length:   cfg.Blog.Length,
				Audience: cfg.Blog.Audience,
			},
			Tags: cfg.Blog.Tags,
		}, logger.With("job", jobBlog))
	}

	return a, nil
}

// withIngest opens the store and builds the ingestion engine.
func (a *app) withIngest(ctx context.Context) error {
	if err := a.openStore(ctx); err != nil {
		return err
	}

	classifier, err := sentiment.NewFromConfig(ctx, a.cfg.Sentiment, a.logger)
	if err != nil {
		return err
	}

	fetcher := feed.NewFetcher(feed.Options{
		Feeds:        a.cfg.Feeds,
		PerFeedLimit: a.cfg.Ingest.PerFeedLimit,
		Timeout:      a.cfg.Ingest.FeedTimeout,
		UserAgent:    a.cfg.Ingest.UserAgent,
	}, coins.NewTagger(a.cfg.Coins), a.logger)

	a.engine = ingest.NewEngine(fetcher, a.store, classifier, ingest.Options{
		MaxPerRun:        a.cfg.Ingest.MaxPerRun,
		WriteConcurrency: a.cfg.Ingest.WriteConcurrency,
	}, a.logger.With("job", jobIngest))
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if err := a.cfg.RequireStore(); err != nil {
		return err
	}

	s, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	a.store = s
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
}

func (a *app) runIngest(ctx context.Context) error {
	report, err := a.engine.Run(ctx)
	a.notifier.IngestFinished(report)

	entry := history.Entry{Job: jobIngest, StartedAt: time.Now()}
	if report != nil {
		entry.StartedAt = report.StartedAt
		entry.Duration = report.Duration
		entry.Counts = map[string]int{
			"considered":   report.Considered,
			"classified":   report.Classified,
			"reused":       report.Reused,
			"inserted":     report.Inserted,
			"updated":      report.Updated,
			"failed":       report.Failed,
			"feedFailures": report.Feed.Failed(),
		}
	}
	a.record(entry, err)
	return err
}

func (a *app) runBlog(ctx context.Context) error {
	if a.pipeline == nil {
		return errBlogDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Blog.Timeout)
	defer cancel()

	start := time.Now()
	res, err := a.pipeline.Run(ctx)
	a.notifier.BlogFinished(res)

	entry := history.Entry{Job: jobBlog, StartedAt: start, Duration: time.Since(start)}
	if res != nil {
		entry.Counts = map[string]int{
			"ideas":     len(res.Ideas),
			"published": boolCount(res.Published),
			"skipped":   boolCount(res.Skipped),
		}
	}
	a.record(entry, err)
	return err
}

func (a *app) runSummary(ctx context.Context) error {
	if a.publisher == nil {
		return errSummaryDisabled
	}

	start := time.Now()
	err := a.publisher.TriggerSummary(ctx)
	if err == nil {
		a.logger.Info("summary requested", "job", jobSummary)
	}
	a.record(history.Entry{Job: jobSummary, StartedAt: start, Duration: time.Since(start)}, err)
	return err
}

func (a *app) record(e history.Entry, err error) {
	if a.history == nil {
		return
	}
	if err != nil {
		e.Error = err.Error()
	}
	e.Duration = e.Duration.Round(time.Millisecond)
	a.history.Record(e)
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
