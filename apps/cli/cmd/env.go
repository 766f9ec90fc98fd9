package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/output"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage saved environments",
	Long: `Environments are named sets of variables substituted into {{name}}
tokens. They are stored in a SQLite database under the user config directory
unless --db or the database config setting points elsewhere.

Examples:
  hitpad env create dev --base-url http://localhost:3000
  hitpad env set dev token=abc123 user=admin
  hitpad env import dev .env.dev --watch
  hitpad env show dev`,
}

var (
	envBaseURLFlag string
	envWatchFlag   bool
)

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			console.FormatEnvironments(s.ws.Environments(), s.activeName())
			return nil
		})
	},
}

var envCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			b, err := s.ws.CreateEnvironment(args[0])
			if err != nil {
				return err
			}
			if envBaseURLFlag != "" {
				b = b.Clone()
				b.SetBaseURL(envBaseURLFlag)
				if err := s.ws.SaveEnvironment(b); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created environment %s (id %d)\n", b.Name, b.ID)
			return nil
		})
	},
}

var envShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the variables of an environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			b, err := s.ws.EnvironmentByName(args[0])
			if err != nil {
				return err
			}
			console.FormatEnvironment(b)
			return nil
		})
	},
}

var envSetCmd = &cobra.Command{
	Use:   "set <name> [KEY=VALUE...]",
	Short: "Set variables or the base URL of an environment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parseAssignments(args[1:])
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		if len(pairs) == 0 && !cmd.Flags().Changed("base-url") {
			return withExitCode(ExitUsageError, fmt.Errorf("nothing to set"))
		}

		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			b, err := s.ws.EnvironmentByName(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("base-url") {
				updated := b.Clone()
				updated.SetBaseURL(envBaseURLFlag)
				if err := s.ws.SaveEnvironment(updated); err != nil {
					return err
				}
			}
			if len(pairs) > 0 {
				if _, err := s.ws.SetVariables(b.ID, pairs); err != nil {
					return err
				}
			}
			console.FormatCaptures(b.Name, pairKeys(pairs))
			return nil
		})
	},
}

var envUnsetCmd = &cobra.Command{
	Use:   "unset <name> <KEY...>",
	Short: "Remove variables from an environment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			b, err := s.ws.EnvironmentByName(args[0])
			if err != nil {
				return err
			}
			updated := b.Clone()
			for _, key := range args[1:] {
				if !updated.Unset(key) {
					console.FormatWarning("%s has no variable %s", b.Name, key)
				}
			}
			return s.ws.SaveEnvironment(updated)
		})
	},
}

var envDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			b, err := s.ws.EnvironmentByName(args[0])
			if err != nil {
				return err
			}
			if err := s.ws.DeleteEnvironment(b.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted environment %s\n", b.Name)
			return nil
		})
	},
}

var envImportCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "Replace the variables of an environment with a KEY=VALUE file",
	Long: `Replace the variables of an environment with the KEY=VALUE lines of a
file. Blank lines and lines starting with # are skipped. With --watch the
file is imported again whenever it changes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvSession(cmd, func(s *session, console *output.ConsoleFormatter) error {
			b, err := s.ws.EnvironmentByName(args[0])
			if err != nil {
				return err
			}
			if err := importFile(s, console, b.ID, args[1]); err != nil {
				return err
			}
			if !envWatchFlag {
				return nil
			}
			return watchImport(cmd.Context(), cmd, s, console, b.ID, args[1])
		})
	},
}

func init() {
	envCreateCmd.Flags().StringVar(&envBaseURLFlag, "base-url", "", "Default base URL for new requests")
	envSetCmd.Flags().StringVar(&envBaseURLFlag, "base-url", "", "Default base URL for new requests (empty clears it)")
	envImportCmd.Flags().BoolVarP(&envWatchFlag, "watch", "w", false, "Re-import when the file changes")

	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envCreateCmd)
	envCmd.AddCommand(envShowCmd)
	envCmd.AddCommand(envSetCmd)
	envCmd.AddCommand(envUnsetCmd)
	envCmd.AddCommand(envDeleteCmd)
	envCmd.AddCommand(envImportCmd)
}

// withEnvSession opens a session for an env subcommand. Store failures exit
// with ExitConfigError.
func withEnvSession(cmd *cobra.Command, fn func(*session, *output.ConsoleFormatter) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	console := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(cfg.GetNoColor()),
	)
	return withExitCode(ExitConfigError, fn(s, console))
}

func parseAssignments(args []string) ([]kv.Pair, error) {
	pairs := make([]kv.Pair, 0, len(args))
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected KEY=VALUE", a)
		}
		pairs = append(pairs, kv.Pair{Key: key, Value: value})
	}
	return pairs, nil
}

func importFile(s *session, console *output.ConsoleFormatter, id int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	b, err := s.ws.ImportVariables(id, f)
	if err != nil {
		return err
	}
	console.FormatCaptures(b.Name, b.Keys())
	return nil
}

// watchImport re-imports path after writes settle. Events are handled on
// the calling goroutine so the workspace keeps a single owner.
func watchImport(ctx context.Context, cmd *cobra.Command, s *session, console *output.ConsoleFormatter, id int64, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory; editors often replace the file instead of writing it
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			if err := importFile(s, console, id, path); err != nil {
				console.FormatError(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			console.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}
