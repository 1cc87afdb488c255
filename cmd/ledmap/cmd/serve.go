package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
	"github.com/MeKo-Tech/ledmap/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the mapping API",
	Long: `Start an HTTP server that drives calibration and mapping sessions.

The server provides the following endpoints:
  GET             /health          - Health check
  GET|POST|DELETE /calibration     - Confirm, inspect or clear the calibration rectangle
  GET|POST|DELETE /session         - Start, inspect or cancel a mapping session
  GET             /session/result  - Result of the last completed session
  GET             /ws              - Session progress stream (WebSocket)
  GET             /metrics         - Prometheus metrics

Examples:
  ledmap serve
  ledmap serve --port 8080 --source synthetic
  ledmap serve --host 0.0.0.0 --sequencer serial --port-name /dev/ttyUSB0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		host, port := cfg.Server.Host, cfg.Server.Port
		shutdownTimeout := cfg.Server.ShutdownTimeout

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var bounds image.Rectangle
		if cfg.Camera.Source == capture.KindSynthetic {
			bounds = image.Rect(0, 0, cfg.Camera.Width, cfg.Camera.Height)
		}
		mapServer, err := server.NewServer(server.Config{
			Host:         host,
			Port:         port,
			CORSOrigin:   cfg.Server.CORSOrigin,
			MinRectSize:  cfg.Calibration.MinRectSize,
			CanvasWidth:  cfg.Calibration.CanvasWidth,
			CanvasHeight: cfg.Calibration.CanvasHeight,
			CameraBounds: bounds,
			Session:      cfg.ToSessionConfig(),
			Hardware: func(n int, rect image.Rectangle) (capture.FrameSource, sequencer.Sequencer, error) {
				return hardwareFactory{cfg: cfg, rect: rect, logger: slog.Default()}.open(n)
			},
			Logger: slog.Default(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		mux := http.NewServeMux()
		mapServer.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("Starting mapping server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		// Cancel a running session first so its websocket subscribers see the
		// terminal message before connections close.
		if err := mapServer.Close(); err != nil {
			slog.Error("Server cleanup error", "error", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.String("source", "webcam", "camera source (webcam, directory, synthetic)")
	f.String("sequencer", "sim", "LED sequencer (sim, serial, websocket)")
	f.String("port-name", "", "serial port for --sequencer serial")
	f.String("url", "", "controller URL for --sequencer websocket")

	registerBindings(serveCmd,
		flagBinding{"server.host", "host"},
		flagBinding{"server.port", "port"},
		flagBinding{"server.cors_origin", "cors-origin"},
		flagBinding{"server.shutdown_timeout", "shutdown-timeout"},
		flagBinding{"camera.source", "source"},
		flagBinding{"sequencer.kind", "sequencer"},
		flagBinding{"sequencer.port", "port-name"},
		flagBinding{"sequencer.url", "url"},
	)
}
