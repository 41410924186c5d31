package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"carestats/analysis"
	"carestats/config"
	"carestats/metrics"
	"carestats/records"
	"carestats/report"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "carestats",
		Short:         "Descriptive billing and length-of-stay statistics over hospital admission records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("input", "", "Input CSV or Parquet snapshot (overrides INPUT_FILE)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(qualityCmd())
	rootCmd.AddCommand(sqlReportCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputFile, _ = flags.GetString("input")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.OutputFormat, _ = flags.GetString("format")
	}
	if flags.Lookup("min-support") != nil && flags.Changed("min-support") {
		cfg.MinSupport, _ = flags.GetInt("min-support")
	}
	if flags.Lookup("top") != nil && flags.Changed("top") {
		cfg.TopN, _ = flags.GetInt("top")
	}
	if flags.Lookup("batch-size") != nil && flags.Changed("batch-size") {
		cfg.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

// newLogger writes JSON lines, or human-readable lines for the console format.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func reportOptions(cfg *config.Config) report.Options {
	return report.Options{
		MinSupport:    cfg.MinSupport,
		TopN:          cfg.TopN,
		LongestStaysN: cfg.LongestStaysN,
	}
}

// loadEnv reads the input file into a frozen dataset.
func loadEnv(cfg *config.Config, logger zerolog.Logger) (*report.Env, error) {
	if cfg.InputFile == "" {
		return nil, fmt.Errorf("no input file: set INPUT_FILE or --input")
	}
	start := time.Now()
	recs, q, err := records.Load(cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.InputFile, err)
	}
	logQuality(logger, q)
	metrics.SetDatasetRecords(len(recs))
	logger.Info().
		Str("file", cfg.InputFile).
		Int("records", len(recs)).
		Dur("elapsed", time.Since(start)).
		Msg("dataset loaded")

	return &report.Env{
		Dataset: analysis.NewDataset(recs),
		Quality: q,
		Options: reportOptions(cfg),
	}, nil
}

// logQuality reports rejects and anomalies and feeds the reject counter.
func logQuality(logger zerolog.Logger, q *records.Quality) {
	for _, r := range records.Reasons(q.Rejected) {
		metrics.RecordRowsRejected(string(r), q.Rejected[r])
		logger.Warn().Str("reason", string(r)).Int64("rows", q.Rejected[r]).Msg("rows rejected")
	}
	for _, r := range records.Reasons(q.Anomalies) {
		logger.Info().Str("anomaly", string(r)).Int64("rows", q.Anomalies[r]).Msg("records flagged")
	}
}
