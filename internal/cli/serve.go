package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/mp4trim/internal/httpapi"
	xlog "github.com/forPelevin/mp4trim/internal/log"
	"github.com/forPelevin/mp4trim/internal/pipeline"
	"github.com/forPelevin/mp4trim/internal/ports"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cut workflow over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "Listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg, os.Stderr, false)
	log := xlog.WithComponent("serve")

	pcfg := pipelineConfig(cfg)
	pcfg.PreviewWindow = false
	app, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}
	defer app.Close()

	api := httpapi.New(httpapi.Config{
		MaxUploadBytes:  cfg.Server.MaxUploadMB << 20,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
		ScratchDir:      cfg.WorkDir,
	}, httpapi.Deps{
		NewWorkspace: func(sink ports.Sink) *pipeline.Workspace { return app.NewWorkspace(sink, nil) },
		EngineState:  func() string { return app.Session.State().String() },
		Log:          xlog.WithComponent("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
