// Package main provides the CLI entrypoint for adalan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/adalan/internal/config"
	"github.com/verte-zerg/adalan/internal/generator"
	"github.com/verte-zerg/adalan/internal/logging"
	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/quiz"
	"github.com/verte-zerg/adalan/internal/statsui"
	"github.com/verte-zerg/adalan/internal/store"
	"github.com/verte-zerg/adalan/internal/tui"
)

const (
	defaultOrientation = string(model.Horizontal)
	defaultChart       = string(model.ChartBar)
	defaultWeakWindow  = 20
	defaultCurveWindow = 20
	defaultServeAddr   = ":8080"
)

var (
	quizUpperBound  int
	quizQuestions   int
	quizTimeLimit   int
	quizOperators   []string
	quizOrientation string
	quizChart       string
	quizFocusWeak   bool
	quizWeakFactor  float64
	quizWeakWindow  int

	statsOperator    string
	statsSince       string
	statsLast        int
	statsCurveWindow int

	exportFormat string
	exportOut    string

	serveAddr  string
	serveDebug bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "adalan",
		Short:         "TUI arithmetic quiz",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runQuizCmd,
	}

	rootCmd.Flags().IntVar(&quizUpperBound, "upper-bound", quiz.DefaultUpperBound, "largest operand (0-100)")
	rootCmd.Flags().IntVar(&quizQuestions, "questions", quiz.DefaultQuestions, "questions per run (1-100)")
	rootCmd.Flags().IntVar(&quizTimeLimit, "time-limit", quiz.DefaultTimeLimit, "seconds per question (1-60)")
	rootCmd.Flags().StringSliceVar(&quizOperators, "operators", []string{string(model.OpAdd)}, "enabled operators (add,subtract,multiply,divide,square,cube,sqrt)")
	rootCmd.Flags().StringVar(&quizOrientation, "orientation", defaultOrientation, "problem layout (horizontal|vertical)")
	rootCmd.Flags().StringVar(&quizChart, "chart", defaultChart, "summary chart (bar|pie)")
	rootCmd.Flags().BoolVar(&quizFocusWeak, "focus-weak", false, "bias questions toward weak operators")
	rootCmd.Flags().Float64Var(&quizWeakFactor, "weak-factor", quiz.DefaultWeakFactor, "weight factor for weak operators")
	rootCmd.Flags().IntVar(&quizWeakWindow, "weak-window", defaultWeakWindow, "number of recent runs to compute weak operators")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func runQuizCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "upper-bound", &quizUpperBound, fileCfg.Quiz.UpperBound)
	applyIntConfig(cmd, "questions", &quizQuestions, fileCfg.Quiz.Questions)
	applyIntConfig(cmd, "time-limit", &quizTimeLimit, fileCfg.Quiz.TimeLimit)
	applyStringSliceConfig(cmd, "operators", &quizOperators, fileCfg.Quiz.Operators)
	applyStringConfig(cmd, "orientation", &quizOrientation, fileCfg.Quiz.Orientation)
	applyStringConfig(cmd, "chart", &quizChart, fileCfg.Quiz.Chart)
	applyBoolConfig(cmd, "focus-weak", &quizFocusWeak, fileCfg.Quiz.FocusWeak)
	applyFloatConfig(cmd, "weak-factor", &quizWeakFactor, fileCfg.Quiz.WeakFactor)
	applyIntConfig(cmd, "weak-window", &quizWeakWindow, fileCfg.Quiz.WeakWindow)

	cfg, err := buildQuizConfig()
	if err != nil {
		return err
	}
	if err := validateConfig(cfg, quizWeakWindow); err != nil {
		return err
	}

	logger, err := logging.NewFile(config.DefaultLogPath())
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer logging.Sync(logger)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	m, err := tui.NewModel(cfg, st, generator.New(), logger, quizWeakWindow)
	if err != nil {
		return fmt.Errorf("failed to start quiz: %w", err)
	}
	logger.Info("quiz started",
		zap.Int("upper_bound", cfg.UpperBound),
		zap.Int("questions", cfg.TotalQuestions),
		zap.Int("time_limit", cfg.TimeLimit),
		zap.Strings("operators", quizOperators))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func buildQuizConfig() (model.QuizConfig, error) {
	ops := make([]model.Operator, 0, len(quizOperators))
	seen := map[model.Operator]struct{}{}
	for _, raw := range quizOperators {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		op, ok := model.ParseOperator(raw)
		if !ok {
			return model.QuizConfig{}, fmt.Errorf("--operators: unknown operator %q", raw)
		}
		if _, dup := seen[op]; dup {
			continue
		}
		seen[op] = struct{}{}
		ops = append(ops, op)
	}
	return model.QuizConfig{
		UpperBound:     quizUpperBound,
		TotalQuestions: quizQuestions,
		TimeLimit:      quizTimeLimit,
		Operators:      ops,
		Orientation:    model.Orientation(strings.ToLower(strings.TrimSpace(quizOrientation))),
		Chart:          model.ChartKind(strings.ToLower(strings.TrimSpace(quizChart))),
		FocusWeak:      quizFocusWeak,
		WeakFactor:     quizWeakFactor,
	}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addStatsFlags(cmd)
	return cmd
}

func addStatsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statsOperator, "operator", "", "operator filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# adalan configuration
# Uncomment a value to enable it. CLI flags override config values.

[quiz]
# upper-bound = %d        # Largest operand (0-%d)
# questions = %d          # Questions per run (%d-%d)
# time-limit = %d          # Seconds per question (%d-%d)
# operators = ["add"]     # add, subtract, multiply, divide, square, cube, sqrt
# orientation = %q # horizontal or vertical
# chart = %q            # bar or pie
# focus-weak = false      # Bias questions toward weak operators
# weak-factor = %.1f      # Weight factor for weak operators
# weak-window = %d        # Number of recent runs to compute weak operators

[server]
# addr = %q           # Listen address for adalan serve
`,
		quiz.DefaultUpperBound, quiz.MaxUpperBound,
		quiz.DefaultQuestions, quiz.MinQuestions, quiz.MaxQuestions,
		quiz.DefaultTimeLimit, quiz.MinTimeLimit, quiz.MaxTimeLimit,
		defaultOrientation,
		defaultChart,
		quiz.DefaultWeakFactor,
		defaultWeakWindow,
		defaultServeAddr,
	)
}

func validateConfig(cfg model.QuizConfig, weakWindow int) error {
	if cfg.UpperBound < 0 || cfg.UpperBound > quiz.MaxUpperBound {
		return fmt.Errorf("--upper-bound must be between 0 and %d", quiz.MaxUpperBound)
	}
	if cfg.TotalQuestions < quiz.MinQuestions || cfg.TotalQuestions > quiz.MaxQuestions {
		return fmt.Errorf("--questions must be between %d and %d", quiz.MinQuestions, quiz.MaxQuestions)
	}
	if cfg.TimeLimit < quiz.MinTimeLimit || cfg.TimeLimit > quiz.MaxTimeLimit {
		return fmt.Errorf("--time-limit must be between %d and %d", quiz.MinTimeLimit, quiz.MaxTimeLimit)
	}
	switch cfg.Orientation {
	case model.Horizontal, model.Vertical:
	default:
		return fmt.Errorf("--orientation must be horizontal or vertical")
	}
	switch cfg.Chart {
	case model.ChartBar, model.ChartPie:
	default:
		return fmt.Errorf("--chart must be bar or pie")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if weakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return fn(context.Background(), st)
}
