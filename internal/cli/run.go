package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/mp4trim/internal/domain/timecode"
	"github.com/forPelevin/mp4trim/internal/pipeline"
	"github.com/forPelevin/mp4trim/internal/types"
)

func newCutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cut <input>",
		Short: "Cut a range out of an MP4 by stream copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCut(cmd, args[0])
		},
	}
	cmd.Flags().String("start", "", "Start time (seconds, mm:ss or hh:mm:ss; default 0)")
	cmd.Flags().String("end", "", "End time (default: end of the video)")
	cmd.Flags().String("out", "", "Download directory (default current directory)")
	return cmd
}

func runCut(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg, os.Stderr, true)

	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	app, err := pipeline.New(pipelineConfig(cfg))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := app.Run(ctx, pipeline.Input{Path: absIn, Start: start, End: end})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s..%s, %d bytes)\n",
		res.Location, timecode.Fixed1(res.StartSec), timecode.Fixed1(res.EndSec), res.Bytes)
	return nil
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input>",
		Short: "Show what the loader sees for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			setupLogging(cfg, os.Stderr, true)

			app, err := pipeline.New(pipelineConfig(cfg))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			defer app.Close()

			w := app.Main
			if err := w.Loader.SelectFile(cmd.Context(), types.FileHandle{Path: args[0]}); err != nil {
				return err
			}
			f, _ := w.Loader.CurrentFile()
			d := w.Loader.Duration()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:     %s\n", f.Name)
			fmt.Fprintf(out, "type:     %s\n", f.MIMEType)
			fmt.Fprintf(out, "size:     %d\n", f.Size)
			fmt.Fprintf(out, "duration: %s (%ss)\n", timecode.Format(d), timecode.FFmpeg(d))
			return nil
		},
	}
}
