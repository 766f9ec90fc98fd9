package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/config"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a hitpad project",
	Long: `Initialize a hitpad project in the current directory.

This creates:
  - .hitpad.json                 - Configuration file
  - requests/example.yaml        - Example request file

Examples:
  hitpad init
  hitpad init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "requests", "example.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.DefaultEnvironment = "dev"
	cfg.Headers = map[string]string{
		"User-Agent": "hitpad/" + version,
	}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	example := http.NewDraft()
	example.Method = http.MethodGet
	example.URL = "{{baseUrl}}/health"
	example.Params.Append("verbose", "true")
	example.Headers.Append("Accept", "application/json")
	example.Auth = auth.BearerToken("{{token}}")

	path, err := http.SaveDraft(example, exampleFile)
	if err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitpad project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Next:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  hitpad env create dev --base-url http://localhost:3000\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  hitpad env set dev baseUrl=http://localhost:3000 token=changeme\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  hitpad send -f %s\n", filepath.Join("requests", "example.yaml"))

	return nil
}
