package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dbextract/pkg/auth"
	"dbextract/pkg/checkpoint"
	"dbextract/pkg/config"
	"dbextract/pkg/extractor"
	"dbextract/pkg/fetch"
	"dbextract/pkg/logger"
	"dbextract/pkg/naming"
	"dbextract/pkg/retry"
	"dbextract/pkg/storage"
	"dbextract/pkg/writer"
)

var (
	// Extract command flags
	extractQuery       string
	extractStart       string
	extractEnd         string
	extractGranularity time.Duration
	extractAggregation string
	extractOutput      string
	extractFormat      string
	extractPolicy      string
	extractProfile     string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run a checkpointed extraction over a time range",
	Long: `Run an extraction over the configured time range.

The range is split into fetch windows of --granularity, each window is
queried with the templated SQL (using {start} and {end} placeholders), and
the rows are appended to per-period bucket files in the output directory.

If a previous run left a checkpoint behind, the resume policy decides what
happens: continue picks up where the run stopped, overwrite deletes previous
output and starts over, and abort refuses to run.`,
	Example: `  # Extract a day of events in hourly windows into daily CSV files
  dbextract extract \
    --query "SELECT * FROM events WHERE ts >= '{start}' AND ts < '{end}'" \
    --start 2024-01-01T00:00:00Z --end 2024-01-02T00:00:00Z \
    --granularity 1h --aggregation daily --format csv

  # Resume an interrupted run (continue is the default policy)
  dbextract extract --start 2024-01-01T00:00:00Z --end 2024-01-02T00:00:00Z

  # Start over, discarding previous output
  dbextract extract --policy overwrite --start 2024-01-01T00:00:00Z --end 2024-01-02T00:00:00Z`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractQuery, "query", "", "SQL query template with {start} and {end} placeholders")
	extractCmd.Flags().StringVar(&extractStart, "start", "", "range start (RFC3339, e.g. 2024-01-01T00:00:00Z)")
	extractCmd.Flags().StringVar(&extractEnd, "end", "", "range end, exclusive (RFC3339)")
	extractCmd.Flags().DurationVar(&extractGranularity, "granularity", 0, "fetch window size (e.g. 1h, 30m)")
	extractCmd.Flags().StringVar(&extractAggregation, "aggregation", "", "output file bucketing: daily, weekly or monthly")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output directory")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "output format: gob, csv or xlsx")
	extractCmd.Flags().StringVar(&extractPolicy, "policy", "", "resume policy: continue, overwrite or abort")
	extractCmd.Flags().StringVarP(&extractProfile, "profile", "p", "", "stored credential profile to use")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadExtractConfig()
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Info("dbextract starting")

	// Fill in a stored login when the config carries none
	if extractProfile != "" || cfg.Database.Password == "" {
		if err := applyStoredCredentials(cfg); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := buildAndRun(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Extraction failed")
		return err
	}

	switch result.Status {
	case extractor.StatusAbortedByPolicy:
		fmt.Println("Extraction aborted: a checkpoint exists and the resume policy is abort.")
		fmt.Println("Use --policy continue to resume or --policy overwrite to start over.")
		os.Exit(2)
	default:
		fmt.Printf("Extraction complete: %d windows, %d rows written in %s\n",
			result.WindowsProcessed, result.RowsWritten, result.Duration.Round(time.Millisecond))
	}

	return nil
}

// loadExtractConfig layers command line flags over file and environment
func loadExtractConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if extractQuery != "" {
		flags["query"] = extractQuery
	}
	if extractStart != "" {
		start, err := time.Parse(time.RFC3339, extractStart)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		flags["start"] = start
	}
	if extractEnd != "" {
		end, err := time.Parse(time.RFC3339, extractEnd)
		if err != nil {
			return nil, fmt.Errorf("invalid --end: %w", err)
		}
		flags["end"] = end
	}
	if extractGranularity > 0 {
		flags["fetch-granularity"] = extractGranularity
	}
	if extractAggregation != "" {
		flags["aggregation"] = extractAggregation
	}
	if extractOutput != "" {
		flags["output"] = extractOutput
	}
	if extractFormat != "" {
		flags["format"] = extractFormat
	}
	if extractPolicy != "" {
		flags["policy"] = extractPolicy
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if quiet {
		flags["log-level"] = "error"
	}

	return config.Load(configFile, flags)
}

// applyStoredCredentials looks up a database login from the credential stores
func applyStoredCredentials(cfg *config.Config) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profile := extractProfile
	if profile == "" {
		profile = "default"
	}

	creds, err := manager.Retrieve(profile)
	if err != nil {
		if cfg.Database.Driver == "sqlite3" {
			return nil // sqlite needs no login
		}
		return fmt.Errorf("no credentials for profile %q: %w (use 'dbextract auth login')", profile, err)
	}

	cfg.Database.User = creds.User
	cfg.Database.Password = creds.Password
	return nil
}

// buildAndRun wires the pipeline from configuration and executes it
func buildAndRun(ctx context.Context, cfg *config.Config) (*extractor.Result, error) {
	granularity, err := naming.ParseGranularity(cfg.Extraction.Aggregation)
	if err != nil {
		return nil, err
	}
	strategy := naming.NewStrategy(cfg.Output.BaseName, granularity)

	format, err := writer.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewManager(cfg.Output.Directory, strategy, format.Extension())
	if err != nil {
		return nil, err
	}

	store, err := openCheckpointStore(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := extractor.ParsePolicy(cfg.Resume.Policy)
	if err != nil {
		return nil, err
	}

	db, err := fetch.Open(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	retrier := retry.NewFetchRetrier(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, logger.GetLogger())

	opts := extractor.Options{
		Start:           cfg.Extraction.Start,
		End:             cfg.Extraction.End,
		Granularity:     cfg.Extraction.FetchGranularity,
		Policy:          policy,
		AdvanceOnEmpty:  cfg.Resume.AdvanceOnEmpty,
		ClearOnComplete: cfg.Resume.ClearOnComplete,
	}

	e := extractor.New(opts, store, fetch.NewSQLFetcher(db, cfg.Extraction.Query), writer.NewWriter(format), files, retrier)
	return e.Run(ctx)
}

// openCheckpointStore selects the configured checkpoint backend
func openCheckpointStore(cfg *config.Config) (checkpoint.Store, error) {
	if cfg.Resume.CheckpointBackend == "sqlite" {
		return checkpoint.NewSQLiteStore(checkpoint.SQLitePath(cfg.Output.Directory))
	}
	return checkpoint.NewFileStore(checkpoint.DefaultPath(cfg.Output.Directory))
}
