// Package app builds the process-wide client handles once and wires them into
// the upload service and the processor.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"receipts/internal/config"
	"receipts/internal/gcp"
	"receipts/internal/metrics"
	"receipts/internal/ocr"
	"receipts/internal/processing"
	"receipts/internal/records"
	"receipts/internal/storage"
	"receipts/internal/upload"
)

// Clients are the external dependencies of the functions. Records is nil when
// persistence is disabled.
type Clients struct {
	Store    storage.ObjectStore
	Detector ocr.TextDetector
	Records  records.Store
}

// App holds the shared clients and the services built on them.
type App struct {
	cfg     *config.Config
	clients Clients
	metrics *metrics.Metrics
	log     zerolog.Logger

	upload    *upload.Service
	processor *processing.Processor
}

// New creates every client from cfg and assembles the App. Clients created
// before a failure are closed again.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	opts, source := gcp.ClientOptions()
	log.Info().
		Str("credentials", string(source)).
		Str("object_store", cfg.ObjectStore).
		Str("text_detector", cfg.TextDetector).
		Bool("persist_results", cfg.PersistResults).
		Msg("Initializing clients")

	var clients Clients
	var err error

	clients.Store, err = newObjectStore(ctx, cfg, opts, log)
	if err != nil {
		return nil, err
	}

	clients.Detector, err = newDetector(ctx, cfg, opts)
	if err != nil {
		clients.close()
		return nil, err
	}

	if cfg.PersistResults {
		clients.Records, err = newRecordStore(ctx, cfg, opts, log)
		if err != nil {
			clients.close()
			return nil, err
		}
	}

	return Assemble(cfg, clients, metrics.New(), log), nil
}

// Assemble wires already constructed clients. m may be nil.
func Assemble(cfg *config.Config, clients Clients, m *metrics.Metrics, log zerolog.Logger) *App {
	procOpts := []processing.Option{
		processing.WithMetrics(m),
		processing.WithLogger(log.With().Str("component", "processing").Logger()),
	}
	if clients.Records != nil {
		procOpts = append(procOpts, processing.WithRecords(clients.Records))
	}

	return &App{
		cfg:       cfg,
		clients:   clients,
		metrics:   m,
		log:       log,
		upload:    upload.NewService(clients.Store, cfg.BucketName, cfg.PublicURLBase),
		processor: processing.NewProcessor(clients.Store, clients.Detector, procOpts...),
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config, opts []option.ClientOption, log zerolog.Logger) (storage.ObjectStore, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreMinIO:
		store, err := storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, err
		}
		created, err := store.EnsureBucket(ctx, cfg.BucketName)
		if err != nil {
			store.Close()
			return nil, err
		}
		if created {
			log.Info().Str("bucket", cfg.BucketName).Msg("Created bucket")
		}
		return store, nil
	case config.ObjectStoreGCS:
		store, err := storage.NewGCSStore(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported object store %q", cfg.ObjectStore)
	}
}

func newRecordStore(ctx context.Context, cfg *config.Config, opts []option.ClientOption, log zerolog.Logger) (records.Store, error) {
	switch cfg.RecordStore {
	case config.RecordStoreSheets:
		store, err := records.NewSheetsStore(ctx, cfg.SheetsURL, cfg.SheetsSheetName, log.With().Str("component", "sheets").Logger())
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.RecordStoreFirestore:
		store, err := records.NewFirestoreStore(ctx, cfg.GoogleCloudProject, cfg.FirestoreCollection, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported record store %q", cfg.RecordStore)
	}
}

func newDetector(ctx context.Context, cfg *config.Config, opts []option.ClientOption) (ocr.TextDetector, error) {
	switch cfg.TextDetector {
	case config.DetectorDocumentAI:
		detector, err := ocr.NewDocumentAIDetector(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		}, opts...)
		if err != nil {
			return nil, err
		}
		return detector, nil
	case config.DetectorVision:
		detector, err := ocr.NewGoogleVisionDetector(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return detector, nil
	default:
		return nil, ocr.NewOCRError("NewDetector", ocr.ErrInvalidConfiguration, fmt.Sprintf("unknown detector %q", cfg.TextDetector))
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Metrics returns the metrics registry, or nil when none was configured.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Uploads returns the upload service.
func (a *App) Uploads() *upload.Service {
	return a.upload
}

// Processor returns the storage event processor.
func (a *App) Processor() *processing.Processor {
	return a.processor
}

// UploadHandler is the UploadFile function.
func (a *App) UploadHandler() http.Handler {
	return upload.NewHandler(a.upload, a.metrics, a.log.With().Str("component", "upload").Logger())
}

// ProcessHTTPHandler is the local-invocation variant of ProcessFile.
func (a *App) ProcessHTTPHandler() http.Handler {
	return processing.NewHTTPHandler(a.processor)
}

// Close releases all clients.
func (a *App) Close() error {
	return a.clients.close()
}

func (c Clients) close() error {
	var errs []error
	if c.Records != nil {
		errs = append(errs, c.Records.Close())
	}
	if c.Detector != nil {
		errs = append(errs, c.Detector.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	return errors.Join(errs...)
}
