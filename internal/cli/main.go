package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "mp4trim",
		Short:        "Trim a local MP4 without re-encoding",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Config file (default ./mp4trim.yaml or ~/.mp4trim/config.yaml)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("ffmpeg", "", "Path to the ffmpeg binary")
	root.PersistentFlags().String("ffprobe", "", "Path to the ffprobe binary")

	// Hidden tuning flag (internal)
	root.PersistentFlags().Duration("poll", 0, "Preview poll interval")
	_ = root.PersistentFlags().MarkHidden("poll")

	root.AddCommand(newCutCmd(), newProbeCmd(), newUICmd(), newServeCmd())
	return root
}
