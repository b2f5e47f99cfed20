package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-dem"
)

const (
	readTimeout     = 5 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve normalized DEMs over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig(cmd)
		logger := slog.Default()

		client, err := cfg.NewClient()
		switch {
		case errors.Is(err, dem.ErrMissingAPIKey):
			logger.Warn("no API key, elevation data service disabled")
		case err != nil:
			return err
		}

		pipeline := cfg.NewPipeline()
		presets, err := dem.NewPresetStore(os.DirFS(cfg.PresetDir),
			dem.WithPresetPipeline(pipeline),
		)
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Addr:         cfg.Addr,
			Handler:      newServer(client, presets, pipeline, cfg.Timeout, logger).handler(),
			ReadTimeout:  readTimeout,
			WriteTimeout: cfg.Timeout + readTimeout,
			IdleTimeout:  idleTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Addr, "presetDir", cfg.PresetDir, "demType", cfg.DEMType)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("preset-dir", "geoData", "Directory containing preset DEM files")
}
