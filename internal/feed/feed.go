/*
Package feed fetches the configured RSS/Atom feeds and normalizes their items into articles.
*/
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/shanehull/cryptobriefs/internal/coins"
	"github.com/shanehull/cryptobriefs/internal/types"
)

// Options configures a Fetcher.
type Options struct {
	Feeds        []string
	PerFeedLimit int
	Timeout      time.Duration
	UserAgent    string
	Client       *http.Client
}

// FeedError records a feed that could not be fetched or parsed.
type FeedError struct {
	URL string
	Err error
}

func (e FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

// Report summarizes one fetch across all feeds.
type Report struct {
	Feeds    int
	Fetched  int
	Failures []FeedError
}

// Failed returns the number of feeds that contributed nothing because of an error.
func (r Report) Failed() int {
	return len(r.Failures)
}

// Fetcher reads every configured feed independently. A failing feed never
// affects the others.
type Fetcher struct {
	opts   Options
	tagger *coins.Tagger
	logger *slog.Logger
	now    func() time.Time
}

// NewFetcher creates a fetcher. A nil tagger falls back to the default coin table.
func NewFetcher(opts Options, tagger *coins.Tagger, logger *slog.Logger) *Fetcher {
	if opts.PerFeedLimit <= 0 {
		opts.PerFeedLimit = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if tagger == nil {
		tagger = coins.NewTagger(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		opts:   opts,
		tagger: tagger,
		logger: logger,
		now:    time.Now,
	}
}

type feedResult struct {
	articles []types.Article
	err      error
}

// Fetch returns the most recent items of every feed, newest first.
func (f *Fetcher) Fetch(ctx context.Context) ([]types.Article, Report) {
	results := make([]feedResult, len(f.opts.Feeds))

	var wg sync.WaitGroup
	for i, url := range f.opts.Feeds {
		wg.Add(1)

		go func(i int, url string) {
			defer wg.Done()

			articles, err := f.fetchOne(ctx, url)
			results[i] = feedResult{articles: articles, err: err}
		}(i, url)
	}
	wg.Wait()

	report := Report{Feeds: len(f.opts.Feeds)}
	var all []types.Article

	for i, res := range results {
		url := f.opts.Feeds[i]
		if res.err != nil {
			f.logger.Warn("feed fetch failed", "feed", url, "error", res.err)
			report.Failures = append(report.Failures, FeedError{URL: url, Err: res.err})
			continue
		}
		f.logger.Debug("feed fetched", "feed", url, "items", len(res.articles))
		all = append(all, res.articles...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	report.Fetched = len(all)

	return all, report
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]types.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = f.opts.Client
	if f.opts.UserAgent != "" {
		parser.UserAgent = f.opts.UserAgent
	}

	parsed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	fetchedAt := f.now()
	articles := make([]types.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		articles = append(articles, f.toArticle(item, url, fetchedAt))
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})
	if len(articles) > f.opts.PerFeedLimit {
		articles = articles[:f.opts.PerFeedLimit]
	}

	return articles, nil
}

func (f *Fetcher) toArticle(item *gofeed.Item, source string, fetchedAt time.Time) types.Article {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = types.UntitledPlaceholder
	}

	return types.Article{
		Title:     title,
		Link:      strings.TrimSpace(item.Link),
		Image:     extractImage(item),
		Published: publishedAt(item, fetchedAt),
		Coins:     f.tagger.Detect(title),
		Sentiment: types.Neutral,
		Source:    source,
	}
}

func publishedAt(item *gofeed.Item, fallback time.Time) time.Time {
	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		return item.UpdatedParsed.UTC()
	}
	return fallback.UTC()
}
