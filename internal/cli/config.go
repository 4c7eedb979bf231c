package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/mp4trim/internal/config"
	xlog "github.com/forPelevin/mp4trim/internal/log"
	"github.com/forPelevin/mp4trim/internal/pipeline"
)

// loadConfig layers flags over env over file over defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("ffmpeg"); v != "" {
		cfg.FFmpegPath = v
	}
	if v, _ := flags.GetString("ffprobe"); v != "" {
		cfg.FFprobePath = v
	}
	if v, _ := flags.GetDuration("poll"); v > 0 {
		cfg.PollInterval = v
	}
	if flags.Lookup("out") != nil && flags.Changed("out") {
		cfg.DownloadDir, _ = flags.GetString("out")
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Server.Listen, _ = flags.GetString("listen")
	}
	if flags.Lookup("window") != nil && flags.Changed("window") {
		cfg.PreviewWindow, _ = flags.GetBool("window")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		FFmpegPath:    cfg.FFmpegPath,
		FFprobePath:   cfg.FFprobePath,
		FFplayPath:    cfg.FFplayPath,
		PreviewWindow: cfg.PreviewWindow,
		DownloadDir:   cfg.DownloadDir,
		WorkDir:       cfg.WorkDir,
		PollInterval:  cfg.PollInterval,
	}
}

func setupLogging(cfg *config.Config, out io.Writer, console bool) {
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Output: out, Console: console})
}
