// Package migratecli is the command-line wrapper described in spec.md
// §6.3: it constructs a PlanBuilder, parses user intent into a direction
// and bound, and prints diagnostics. It contains no engine logic of its
// own — every subcommand is a thin shell around internal/migrate.
//
// The --json/dry-run branching mirrors cmd/bd/migrate.go's style in the
// teacher repo. Flags are bound to variables with BoolVar/StringVar, and
// cmd.Flags().Changed tells an explicit flag apart from a config default.
// There is no --yes flag and no confirmation prompt.
package migratecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsmigrate/migrate/internal/migrate"
	"github.com/opsmigrate/migrate/internal/migrate/display"
	"github.com/opsmigrate/migrate/internal/migrateconfig"
	"github.com/opsmigrate/migrate/internal/migratelog"
)

// BuilderFactory constructs the PlanBuilder for a single CLI invocation.
// Real programs supply their own: register their migrations and context
// providers, then hand the builder (and its backing StateLock) to the CLI.
type BuilderFactory func(ctx context.Context, cfg *migrateconfig.Config) (*migrate.PlanBuilder, error)

type buildFunc func(cmd *cobra.Command) (*migrate.PlanBuilder, error)

// NewRootCommand builds the `migrate` command tree (up/down/list) wired to
// newBuilder.
func NewRootCommand(name string, newBuilder BuilderFactory) *cobra.Command {
	var (
		forceLock    bool
		jsonOut      bool
		verbose      bool
		logFile      string
		statePath    string
		stateBackend string
	)

	root := &cobra.Command{
		Use:   name,
		Short: "Run or inspect a schema migration plan",
	}
	root.PersistentFlags().BoolVar(&forceLock, "force-lock", false, "take over an existing (possibly abandoned) state lock")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit machine-readable diagnostics")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "also log structured records to stderr")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "rotating structured-log file path")
	root.PersistentFlags().StringVar(&statePath, "state-path", "", "override the configured state file path")
	root.PersistentFlags().StringVar(&stateBackend, "state-backend", "", "override the configured state backend (file)")

	build := buildFunc(func(cmd *cobra.Command) (*migrate.PlanBuilder, error) {
		cfg, err := migrateconfig.Load()
		if err != nil {
			return nil, fmt.Errorf("migratecli: loading config: %w", err)
		}
		if cmd.Flags().Changed("state-path") {
			cfg.SetStatePathOverride(statePath)
		}
		if cmd.Flags().Changed("state-backend") {
			cfg.SetStateBackendOverride(stateBackend)
		}
		b, err := newBuilder(cmd.Context(), cfg)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("force-lock") {
			b.ForceLock(forceLock)
		} else {
			b.ForceLock(cfg.DefaultForceLock())
		}
		if !cmd.Flags().Changed("json") {
			jsonOut = cfg.DefaultJSON()
		}
		return b, nil
	})

	newLogger := func() *slog.Logger {
		return migratelog.New(migratelog.Options{FilePath: logFile, Verbose: verbose})
	}

	root.AddCommand(newUpCommand(build, newLogger, &jsonOut))
	root.AddCommand(newDownCommand(build, newLogger, &jsonOut))
	root.AddCommand(newListCommand(build, &jsonOut))

	return root
}

func newUpCommand(build buildFunc, newLogger func() *slog.Logger, jsonOut *bool) *cobra.Command {
	var bound string
	var noRun, noCommit bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run pending migrations forward",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noRun && noCommit {
				return errors.New("--no-run and --no-commit are mutually exclusive")
			}
			b, err := build(cmd)
			if err != nil {
				return err
			}
			sel := migrate.Up{}
			if cmd.Flags().Changed("bound") {
				sel.InclusiveBound = &bound
			}
			return runSelection(cmd.Context(), b, sel, noRun, noCommit, *jsonOut, newLogger())
		},
	}
	cmd.Flags().StringVar(&bound, "bound", "", "run up to and including this migration, inclusive")
	cmd.Flags().BoolVar(&noRun, "no-run", false, "print the plan and exit without running it")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "run with diagnostic-only (no-commit) contexts")
	return cmd
}

func newDownCommand(build buildFunc, newLogger func() *slog.Logger, jsonOut *bool) *cobra.Command {
	var bound string
	var noRun, noCommit bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back completed migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bound == "" {
				return errors.New("down requires --bound (accidental full rollbacks are not allowed)")
			}
			if noRun && noCommit {
				return errors.New("--no-run and --no-commit are mutually exclusive")
			}
			b, err := build(cmd)
			if err != nil {
				return err
			}
			sel := migrate.Down{InclusiveBound: bound}
			return runSelection(cmd.Context(), b, sel, noRun, noCommit, *jsonOut, newLogger())
		},
	}
	cmd.Flags().StringVar(&bound, "bound", "", "roll back down to and including this migration (required)")
	cmd.Flags().BoolVar(&noRun, "no-run", false, "print the plan and exit without running it")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "run with diagnostic-only (no-commit) contexts")
	return cmd
}

func newListCommand(build buildFunc, jsonOut *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := build(cmd)
			if err != nil {
				return err
			}
			if *jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{"configured": b.Display()})
			}
			fmt.Print(b.Display())
			return nil
		},
	}
}

func runSelection(ctx context.Context, b *migrate.PlanBuilder, sel migrate.Selection, noRun, noCommit, jsonOut bool, logger *slog.Logger) error {
	plan, err := b.Build(ctx, sel)
	if err != nil {
		return reportError(jsonOut, "build", err)
	}

	if noRun {
		printPlan(plan, jsonOut)
		return nil
	}

	runMode := migrate.RunModeCommit
	if noCommit {
		runMode = migrate.RunModeNoCommit
	}

	if execErr := plan.ExecWithLogger(ctx, runMode, logger); execErr != nil {
		return reportError(jsonOut, "exec", execErr)
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{"status": "success"})
	}
	fmt.Println("migration run complete")
	return nil
}

func printPlan(plan *migrate.Plan, jsonOut bool) {
	if jsonOut {
		kind := plan.Kind()
		names := make([]string, len(kind.Entries))
		for i, e := range kind.Entries {
			names[i] = e.Name
		}
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
			"direction": kind.Dir.String(),
			"entries":   names,
			"pruned":    plan.Pruned(),
		})
		return
	}
	fmt.Print(display.PlanView(plan.Kind(), plan.Pruned()))
}

func reportError(jsonOut bool, phase string, err error) error {
	if jsonOut {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"error": phase, "message": err.Error()})
		return err
	}
	fmt.Fprintf(os.Stderr, "Error (%s): %v\n", phase, err)
	return err
}
