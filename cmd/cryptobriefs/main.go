package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shanehull/cryptobriefs/internal/api"
	"github.com/shanehull/cryptobriefs/internal/config"
	"github.com/shanehull/cryptobriefs/internal/history"
	"github.com/shanehull/cryptobriefs/internal/notify"
	"github.com/shanehull/cryptobriefs/internal/scheduler"
	"github.com/shanehull/cryptobriefs/internal/store"
	"github.com/shanehull/cryptobriefs/internal/types"
)

var (
	configFile string
	cfg        *config.Config
	logger     *slog.Logger

	withAPI bool

	newsLimit     int
	newsCoin      string
	newsSentiment string
)

var rootCmd = &cobra.Command{
	Use:           "cryptobriefs",
	Short:         "Crypto news worker: RSS ingest, sentiment tagging and blog generation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}

		logger = newLogger(cfg.Logging, os.Stderr)
		slog.SetDefault(logger)

		logger.Debug("configuration loaded", "config", cfg.String())
		for _, problem := range cfg.MissingCredentials() {
			logger.Warn("configuration", "problem", problem)
		}
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scheduled jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.withIngest(ctx); err != nil {
			return err
		}

		jobs := []scheduler.Job{{Name: jobIngest, Spec: cfg.Schedule.Ingest, Run: a.runIngest}}
		if a.pipeline != nil {
			jobs = append(jobs, scheduler.Job{Name: jobBlog, Spec: cfg.Schedule.Blog, Run: a.runBlog})
		}
		if cfg.SummaryEnabled() {
			jobs = append(jobs, scheduler.Job{Name: jobSummary, Spec: cfg.Schedule.Summary, Run: a.runSummary})
		}

		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return err
		}

		s, err := scheduler.New(jobs, scheduler.Options{
			Location:     loc,
			RunOnStart:   cfg.ShouldRunOnStart(),
			SingleFlight: cfg.Schedule.SingleFlight,
		}, logger)
		if err != nil {
			return err
		}

		if withAPI {
			go func() {
				if err := api.Serve(ctx, a.store, cfg.API, logger); err != nil {
					logger.Error("api stopped", "error", err)
				}
			}()
		}

		logger.Info("worker started", "jobs", len(jobs))
		return s.Run(ctx)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.withIngest(ctx); err != nil {
			return err
		}
		return a.runIngest(ctx)
	},
}

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Generate and publish one blog post",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return a.runBlog(cmd.Context())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Ask the backend to build its news summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return a.runSummary(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored news over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.openStore(ctx); err != nil {
			return err
		}
		return api.Serve(ctx, a.store, cfg.API, logger)
	},
}

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Print the latest stored news",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := store.Query{
			Limit: newsLimit,
			Coin:  strings.ToUpper(strings.TrimSpace(newsCoin)),
		}
		if newsSentiment != "" {
			q.Sentiment = types.Sentiment(strings.ToLower(newsSentiment))
			if !q.Sentiment.Valid() {
				return fmt.Errorf("unknown sentiment %q", newsSentiment)
			}
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.openStore(cmd.Context()); err != nil {
			return err
		}

		news, err := a.store.List(cmd.Context(), q)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), notify.FormatNewsTable(news))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print today's job runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := history.NewManager("", cfg.Schedule.Timezone, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Runs for %s (%s)\n\n", h.ReportDate(), h.HistoryFilePath())
		fmt.Fprint(out, formatRuns(h.Runs()))
		return nil
	},
}

func formatRuns(runs []history.Entry) string {
	if len(runs) == 0 {
		return "No runs recorded today.\n"
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if r.Failed() {
			result = "error: " + r.Error
		}
		rows = append(rows, []string{
			r.Job,
			r.StartedAt.Format("15:04:05"),
			r.Duration.String(),
			formatCounts(r.Counts),
			result,
		})
	}
	return notify.FormatTable([]string{"Job", "Started", "Duration", "Counts", "Result"}, rows)
}

func formatCounts(counts map[string]int) string {
	keys := []string{"inserted", "updated", "failed", "classified", "reused", "feedFailures", "ideas", "published", "skipped"}
	var parts []string
	for _, k := range keys {
		if v, ok := counts[k]; ok && v > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, v))
		}
	}
	return strings.Join(parts, " ")
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to the YAML configuration file")

	workerCmd.Flags().BoolVar(&withAPI, "api", false, "Also serve the read API")

	newsCmd.Flags().IntVarP(&newsLimit, "limit", "n", store.DefaultListLimit, "Number of records to print")
	newsCmd.Flags().StringVar(&newsCoin, "coin", "", "Only records tagged with this ticker")
	newsCmd.Flags().StringVar(&newsSentiment, "sentiment", "", "Only records with this sentiment (bullish, bearish, neutral)")

	rootCmd.AddCommand(workerCmd, ingestCmd, blogCmd, summaryCmd, serveCmd, newsCmd, statusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
