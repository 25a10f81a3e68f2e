package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/multicast/observability"
	"github.com/tailored-agentic-units/multicast/stress"
)

const cliObserver = "multicast-stress"

type runFlags struct {
	configFile   string
	mutators     int
	invokers     int
	observers    int
	iterations   int
	releaseRatio float64
	seed         uint64
	observer     string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "multicast-stress",
		Short:        "Exercise a weak multicast registry under concurrent load",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newObserversCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run mutators and invokers against one registry and print a report",
		Long: `Starts mutator goroutines that add, remove, replace and clear observers
while invoker goroutines dispatch to them. Part of the observer pool is
released halfway through so the registry has to forget those observers on
its own. Exits non-zero when any invocation broke a registry guarantee.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd, &flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configFile, "config", "c", "", "path to stress config JSON file")
	f.IntVar(&flags.mutators, "mutators", 0, "mutator goroutines (overrides config)")
	f.IntVar(&flags.invokers, "invokers", 0, "invoker goroutines (overrides config)")
	f.IntVar(&flags.observers, "observers", 0, "observer pool size (overrides config)")
	f.IntVar(&flags.iterations, "iterations", 0, "operations per goroutine (overrides config)")
	f.Float64Var(&flags.releaseRatio, "release-ratio", 0, "fraction of the pool released mid-run (overrides config)")
	f.Uint64Var(&flags.seed, "seed", 0, "random seed; 0 picks one (overrides config)")
	f.StringVar(&flags.observer, "observer", "", "named observer for registry events (overrides config; see 'observers')")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "log every registry event to stderr")

	return cmd
}

func runStress(cmd *cobra.Command, flags *runFlags) error {
	cfg := stress.DefaultConfig()
	if flags.configFile != "" {
		loaded, err := stress.LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	overrides := stress.Config{
		Mutators:   flags.mutators,
		Invokers:   flags.invokers,
		Observers:  flags.observers,
		Iterations: flags.iterations,
		Seed:       flags.seed,
	}
	if cmd.Flags().Changed("release-ratio") {
		overrides.ReleaseRatio = &flags.releaseRatio
	}
	cfg.Merge(&overrides)

	if flags.observer != "" {
		if names := observability.ObserverNames(); !slices.Contains(names, flags.observer) {
			return fmt.Errorf("unknown observer %q (registered: %s)", flags.observer, strings.Join(names, ", "))
		}
		cfg.Registry.Observer = flags.observer
	}

	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if flags.verbose {
		observability.RegisterObserver(cliObserver, observability.NewSlogObserver(logger))
		cfg.Registry.Observer = cliObserver
	}

	report, err := stress.Run(cmd.Context(), &cfg, stress.WithLogger(logger))
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func newObserversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "observers",
		Short: "List the observer names accepted by --observer and the registry config",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range observability.ObserverNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func printReport(w io.Writer, r *stress.Report) {
	fmt.Fprintf(w, "Run:            %s\n", r.RunID)
	fmt.Fprintf(w, "Seed:           %d\n", r.Seed)
	fmt.Fprintf(w, "Duration:       %s\n", r.Duration)
	fmt.Fprintf(w, "Mutations:      %d\n", r.Mutations)
	fmt.Fprintf(w, "Invocations:    %d\n", r.Invocations)
	fmt.Fprintf(w, "Observer calls: %d\n", r.ObserverCalls)
	fmt.Fprintf(w, "Released:       %d\n", r.Released)
	fmt.Fprintf(w, "Pruned:         %d\n", r.Pruned)
	fmt.Fprintf(w, "Alive:          %d\n", r.Alive)
	fmt.Fprintf(w, "Violations:     %d\n", r.Violations)
}
