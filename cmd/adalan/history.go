package main

import (
	"bufio"
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
	"go.uber.org/zap"

	"github.com/verte-zerg/adalan/internal/config"
	"github.com/verte-zerg/adalan/internal/export"
	"github.com/verte-zerg/adalan/internal/logging"
	"github.com/verte-zerg/adalan/internal/metrics"
	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/server"
	"github.com/verte-zerg/adalan/internal/stats"
	"github.com/verte-zerg/adalan/internal/store"
)

func buildStatsConfig() (model.StatsConfig, error) {
	cfg := model.StatsConfig{
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}
	if raw := strings.TrimSpace(statsOperator); raw != "" {
		op, ok := model.ParseOperator(raw)
		if !ok {
			return cfg, fmt.Errorf("invalid --operator value %q", raw)
		}
		cfg.Operator = op
	}
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if cfg.Last < 0 {
		return cfg, fmt.Errorf("--last must be >= 0")
	}
	if cfg.CurveWindow <= 0 {
		return cfg, fmt.Errorf("--curve-window must be > 0")
	}
	return cfg, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stats as plain text",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	addStatsFlags(cmd)
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		report, err := stats.BuildReport(ctx, st, cfg)
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), report, cfg.CurveWindow)
	})
}

func writeHistory(w io.Writer, report stats.Report, window int) error {
	if err := stats.RenderSummary(w, report.Runs); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if len(report.Runs) == 0 {
		return nil
	}
	sections := []func() error{
		func() error { return stats.RenderCurves(w, report.Runs, window) },
		func() error { return stats.RenderOperatorTable(w, report.OperatorAggsWindow) },
		func() error { return stats.RenderMistakes(w, report.Mistakes) },
	}
	for _, render := range sections {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := render(); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored runs as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addStatsFlags(cmd)
	cmd.Flags().StringVar(&exportFormat, "format", string(export.FormatJSON), "output format (json|yaml)")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return fmt.Errorf("invalid --format value: %w", err)
	}
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}
	return withStore(func(ctx context.Context, st *store.Store) error {
		runs, err := export.Load(ctx, st, cfg)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			logErrln("No runs found.")
		}
		doc := export.Document{GeneratedAt: time.Now().UTC(), Runs: runs}
		if exportOut == "" {
			return export.Write(cmd.OutOrStdout(), format, doc)
		}
		if err := writeExportFile(exportOut, format, doc); err != nil {
			return err
		}
		logErrf("Wrote %d runs to %s\n", len(runs), exportOut)
		return nil
	})
}

func writeExportFile(path string, format export.Format, doc export.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "export-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := export.Write(writer, format, doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run history and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	if strings.TrimSpace(serveAddr) == "" {
		return fmt.Errorf("--addr must not be empty")
	}

	logger, err := logging.NewStderr(serveDebug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withStore(func(_ context.Context, st *store.Store) error {
		reg := metrics.NewRegistry(metrics.NewCollector(st, logger))
		handler := server.New(st, logger, reg).Routes()
		if err := server.Run(ctx, serveAddr, handler, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("history server stopped", zap.Error(err))
			return err
		}
		return nil
	})
}
