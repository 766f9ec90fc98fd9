package cmd

import (
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitpad/packages/tui"
)

var tuiLogFileFlag string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive request editor",
	Long: `Open the terminal editor. Each tab holds one request with its own
response; ctrl+e cycles the active environment and new tabs start from its
base URL.

Logs cannot go to the terminal while the editor is open. With --verbose they
are written to --log-file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := log.New(io.Discard, "", 0)
		if cfg.GetVerbose() {
			f, err := tea.LogToFile(tuiLogFileFlag, "hitpad: ")
			if err != nil {
				return withExitCode(ExitConfigError, err)
			}
			defer f.Close()
			logger = log.Default()
		}

		s, err := openSession(cfg, io.Discard, sessionOptions{
			logger:    logger,
			clipboard: tui.SystemClipboard{},
		})
		if err != nil {
			return err
		}
		defer s.Close()

		return tui.Run(cmd.Context(), s.ws)
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiLogFileFlag, "log-file", getEnvString("HITPAD_LOG_FILE", "hitpad.log"), "Log file used with --verbose (env: HITPAD_LOG_FILE)")
}
