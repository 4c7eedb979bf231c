package cli

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/forPelevin/mp4trim/internal/pipeline"
	"github.com/forPelevin/mp4trim/internal/tui"
)

func newUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui [input]",
		Short: "Open the interactive trimmer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// the screen owns stdout and stderr
			var logOut io.Writer = io.Discard
			if cfg.LogFile != "" {
				f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("config: log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}
			setupLogging(cfg, logOut, false)

			app, err := pipeline.New(pipelineConfig(cfg))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			defer app.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			_, err = tea.NewProgram(tui.New(cmd.Context(), app.Main, path), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().String("out", "", "Download directory (default current directory)")
	cmd.Flags().Bool("window", false, "Mirror playback in an ffplay window")
	return cmd
}
