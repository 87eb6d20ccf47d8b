package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"video-dubber/internal/api"
	"video-dubber/internal/logger"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{deleteSourceOnSuccess: true})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	if err := a.media.CheckInstalled(ctx); err != nil {
		logger.Warn("%v", err)
	}
	a.dubber.StartSweeper(ctx)

	srv := api.New(a.dubber, api.Options{
		UploadDir:       cfg.Paths.UploadDir,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		UploadRateLimit: cfg.Server.UploadRateLimit,
		Providers:       a.voices.Names(),
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
