package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"receipts/internal/logger"
)

// Function names as deployed.
const (
	UploadFunction      = "UploadFile"
	ProcessFunction     = "ProcessFile"
	ProcessHTTPFunction = "ProcessFileHTTP"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the functions with the Functions Framework",
	Long: `Register the functions with the Functions Framework and serve them.

  UploadFile       HTTP, multipart "file" field
  ProcessFile      CloudEvent, google.cloud.storage.object.v1.finalized
  ProcessFileHTTP  HTTP, object metadata as JSON body

With FUNCTION_TARGET set only that function is served, at "/". Otherwise each
function is served at "/<name>".

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  BUCKET_NAME - Upload bucket (default: m2-solutions)`,
	Example: `  # Serve all functions on $PORT
  receipts serve

  # Serve only the upload function on port 9090 and expose metrics
  FUNCTION_TARGET=UploadFile receipts serve --port 9090 --metrics-addr :9100`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Listen port (default: $PORT or 8080)")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	port, _ := cmd.Flags().GetString("port")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx, cancel := newCommandContext(0, log)
	defer cancel()

	gin.SetMode(gin.ReleaseMode)

	a, err := buildApp(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close clients")
		}
	}()

	functions.HTTP(UploadFunction, a.UploadHandler().ServeHTTP)
	functions.CloudEvent(ProcessFunction, a.Processor().HandleCloudEvent)
	functions.HTTP(ProcessHTTPFunction, a.ProcessHTTPHandler().ServeHTTP)

	if metricsAddr != "" {
		srv := startMetricsServer(metricsAddr, a.Metrics().Handler(), log)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if port == "" {
		port = a.Config().Port
	}

	log.Info().
		Str("port", port).
		Str("bucket", a.Config().BucketName).
		Strs("functions", []string{UploadFunction, ProcessFunction, ProcessHTTPFunction}).
		Msg("Starting Functions Framework")

	errCh := make(chan error, 1)
	go func() {
		errCh <- funcframework.Start(port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Functions Framework stopped")
			return fmt.Errorf("functions framework: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		return nil
	}
}

func startMetricsServer(addr string, handler http.Handler, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}
