package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	databaseFlag string
	envFlag      string
	timeoutFlag  string
	proxyFlag    string
	insecureFlag bool
	verboseFlag  bool
	noColorFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "hitpad",
	Short: "Compose, send and inspect HTTP requests.",
	Long: `hitpad composes HTTP requests from a method, URL, query parameters,
headers, body and credentials, substitutes {{variables}} from a saved
environment and shows the response with its status, timing and size.

Run 'hitpad tui' for the interactive editor or 'hitpad send' from scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env so HITPAD_* settings can live next to the project
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to load .env file: %v\n", err)
		}
	},
}

// Execute runs the root command and exits with the code carried by the
// returned error.
func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", getEnvString("HITPAD_CONFIG", ""), "Path to config file (env: HITPAD_CONFIG)")
	flags.StringVar(&databaseFlag, "db", "", "Path to the environment database (default: user config dir)")
	flags.StringVarP(&envFlag, "env", "e", getEnvString("HITPAD_ENV", ""), "Environment to substitute variables from (env: HITPAD_ENV)")
	flags.StringVar(&timeoutFlag, "timeout", "", "Request timeout (e.g., 30s, 1m)")
	flags.StringVar(&proxyFlag, "proxy", getEnvString("HITPAD_PROXY", ""), "Proxy URL for HTTP requests (env: HITPAD_PROXY)")
	flags.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITPAD_INSECURE", false), "Disable SSL certificate validation (env: HITPAD_INSECURE)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HITPAD_VERBOSE", false), "Log request details to stderr (env: HITPAD_VERBOSE)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HITPAD_NO_COLOR", false), "Disable colored output (env: HITPAD_NO_COLOR)")
	_ = rootCmd.RegisterFlagCompletionFunc("env", completeEnvironments)

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitFailure
}
