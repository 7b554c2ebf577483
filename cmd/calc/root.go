package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pocket-calculator/internal/config"
	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/tui"
)

type options struct {
	configPath string
	functions  bool
	strict     bool
	verbose    bool
	history    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "calc",
		Short:         "Pocket calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (.toml or .yaml); defaults to $CALC_CONFIG")
	flags.BoolVar(&opts.functions, "functions", true, "allow the log function")
	flags.BoolVar(&opts.strict, "strict", false, "show Error instead of NaN or Inf results")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log each evaluation to stderr")

	rootCmd.AddCommand(newEvalCmd(opts))
	rootCmd.AddCommand(newKeysCmd(opts))
	rootCmd.AddCommand(newTUICmd(opts))

	return rootCmd
}

func newEvalCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression and print the display text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer observability.SyncLogger()

			res := ev.Evaluate(args[0])
			logResult(res)
			fmt.Fprintln(cmd.OutOrStdout(), res.Display)
			if res.Err != nil {
				return exitError(1, "%v", res.Err)
			}
			return nil
		},
	}
}

func newKeysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys <key>...",
		Short: "Replay keypad keys through a session and print the display",
		Example: `  calc keys 7 + 5 =
  calc keys √ 9 = --history`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer observability.SyncLogger()

			calc := engine.NewSession(ev)
			for _, k := range args {
				if _, err := calc.Press(k); err != nil {
					return exitError(2, "%v", err)
				}
				if res, ok := calc.LastResult(); ok && k == "=" {
					logResult(res)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, calc.Buffer())
			if opts.history {
				printHistory(out, calc.History())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.history, "history", false, "print the history log after the display")
	return cmd
}

func newTUICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive keypad",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer observability.SyncLogger()

			program := tea.NewProgram(tui.NewModel(engine.NewSession(ev)))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("failed to run TUI: %w", err)
			}
			return nil
		},
	}
}

// setup loads the configuration, applies explicitly set flags over it and
// returns the evaluator.
func setup(cmd *cobra.Command, opts *options) (*engine.Evaluator, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("functions") {
		cfg.Calc.Functions = opts.functions
	}
	if flags.Changed("strict") {
		cfg.Calc.StrictNonFinite = opts.strict
	}

	logCfg := config.LogConfig{Level: "warn", Development: true}
	if opts.verbose {
		logCfg.Level = "debug"
	}
	if err := observability.InitLogger(logCfg); err != nil {
		return nil, err
	}

	return engine.NewEvaluator(engine.Options{
		AllowFunctions:  cfg.Calc.Functions,
		StrictNonFinite: cfg.Calc.StrictNonFinite,
	}), nil
}

func logResult(res engine.Result) {
	observability.Logger.Debug("evaluated",
		zap.String("input", res.Input),
		zap.String("balanced", res.Balanced),
		zap.String("state", string(res.State)),
		zap.String("display", res.Display),
		zap.Error(res.Err),
	)
}

func printHistory(w io.Writer, h *engine.History) {
	for _, e := range h.Entries() {
		fmt.Fprintf(w, "%s = %v\n", e.Input, e.Result)
	}
}
