package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"carestats/db"
	"carestats/metrics"
	"carestats/records"
	"carestats/report"
	"carestats/server"
)

const snapshotBatch = 10000

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an admissions CSV into a Parquet snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.InputFile == "" {
				return errors.New("no input file: set INPUT_FILE or --input")
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = strings.TrimSuffix(cfg.InputFile, filepath.Ext(cfg.InputFile)) + ".parquet"
			}

			start := time.Now()
			logger.Info().Str("input", cfg.InputFile).Str("output", out).Msg("converting")

			r, err := records.NewReader(cfg.InputFile)
			if err != nil {
				return err
			}
			defer r.Close()

			w, err := records.NewSnapshotWriter(out)
			if err != nil {
				return err
			}

			batch := make([]records.PatientRecord, 0, snapshotBatch)
			lastLog := time.Now()
			for {
				rec, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					w.Close()
					return err
				}
				batch = append(batch, rec)
				if len(batch) < snapshotBatch {
					continue
				}
				if _, err := w.Write(batch); err != nil {
					w.Close()
					return err
				}
				batch = batch[:0]
				if time.Since(lastLog) >= 5*time.Second {
					rate := float64(w.Count()) / time.Since(start).Seconds()
					logger.Info().Int("rows", w.Count()).Int64("line", r.RowNum()).Float64("rows_per_sec", rate).Msg("progress")
					lastLog = time.Now()
				}
			}
			if len(batch) > 0 {
				if _, err := w.Write(batch); err != nil {
					w.Close()
					return err
				}
			}
			if err := w.Close(); err != nil {
				return err
			}

			logQuality(logger, r.Quality())
			metrics.RecordRecordsLoaded("parquet", int64(w.Count()))
			logger.Info().
				Int("rows", w.Count()).
				Int64("rejected", r.Quality().RejectedTotal()).
				Dur("elapsed", time.Since(start).Round(time.Millisecond)).
				Msg("snapshot written")
			return nil
		},
	}
	cmd.Flags().String("out", "", "Output Parquet path (default: input path with .parquet)")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Bulk load admission records into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			if cfg.InputFile == "" {
				return errors.New("no input file: set INPUT_FILE or --input")
			}
			replace, _ := cmd.Flags().GetBool("replace")

			recs, q, err := records.Load(cfg.InputFile)
			if err != nil {
				return fmt.Errorf("load %s: %w", cfg.InputFile, err)
			}
			logQuality(logger, q)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBRetries, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := db.LoadRecords(ctx, pool, recs, db.LoadOptions{BatchSize: cfg.BatchSize, Replace: replace}, logger); err != nil {
				return fmt.Errorf("load failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "Truncate the table before loading")
	cmd.Flags().Int("batch-size", db.DefaultBatchSize, "Records per transaction")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [name...]",
		Short: "Run catalogue reports over the input file",
		Long:  "Run the named reports, or the whole catalogue when none are given.\n\nReports: " + strings.Join(report.Names(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReports(cmd, args)
		},
	}
	addReportFlags(cmd)
	return cmd
}

func qualityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Summarise rejected rows, anomalies and empty fields in the input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReports(cmd, []string{"quality"})
		},
	}
	cmd.Flags().String("format", "", "Output format: text, csv or json")
	return cmd
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "Output format: text, csv or json")
	cmd.Flags().Int("min-support", 0, "Smallest group kept in the variability ranking")
	cmd.Flags().Int("top", 0, "Rows in the top-billing report")
}

func runReports(cmd *cobra.Command, names []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}
	env, err := loadEnv(cfg, logger)
	if err != nil {
		return err
	}
	res, err := report.Run(cmd.Context(), env, names, logger)
	if err != nil {
		return err
	}
	res.Source = cfg.InputFile
	return report.RenderResult(cmd.OutOrStdout(), res, format)
}

func sqlReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql-report [name...]",
		Short: "Run reports inside PostgreSQL against the loaded table",
		Long:  "Run the named reports as SQL, or all that have a SQL rendition.\n\nReports: " + strings.Join(report.SQLNames(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			format, err := report.ParseFormat(cfg.OutputFormat)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBRetries, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			res, err := report.RunSQL(ctx, db.New(pool), reportOptions(cfg), args, logger)
			if err != nil {
				return err
			}
			return report.RenderResult(cmd.OutOrStdout(), res, format)
		},
	}
	addReportFlags(cmd)
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report catalogue over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			env, err := loadEnv(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e := server.New(env, logger)
			return server.Serve(ctx, e, ":"+cfg.Port, logger)
		},
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	cmd.Flags().Int("min-support", 0, "Smallest group kept in the variability ranking")
	return cmd
}
