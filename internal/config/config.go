package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"receipts/internal/logger"
)

const (
	// DefaultBucketName is used when BUCKET_NAME is not set.
	DefaultBucketName = "m2-solutions"

	// DefaultPublicURLBase is the public endpoint objects are addressed under.
	DefaultPublicURLBase = "https://storage.googleapis.com"

	// DefaultCollection is the Firestore collection for extracted text records.
	DefaultCollection = "processed_checks"
)

// Object store backends
const (
	ObjectStoreGCS   = "gcs"
	ObjectStoreMinIO = "minio"
)

// Record store backends
const (
	RecordStoreFirestore = "firestore"
	RecordStoreSheets    = "sheets"
)

// Text detector backends
const (
	DetectorVision     = "vision"
	DetectorDocumentAI = "documentai"
)

type Config struct {
	// Object storage
	BucketName    string
	PublicURLBase string
	ObjectStore   string

	// MinIO (OBJECT_STORE=minio)
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	TextDetector          string
	DocumentAIProcessorID string

	// Document store; disabled unless PERSIST_RESULTS=true
	PersistResults      bool
	RecordStore         string
	FirestoreCollection string
	SheetsURL           string
	SheetsSheetName     string

	// Functions Framework
	Port string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		BucketName:            getEnv("BUCKET_NAME", DefaultBucketName),
		PublicURLBase:         strings.TrimRight(getEnv("PUBLIC_URL_BASE", DefaultPublicURLBase), "/"),
		ObjectStore:           strings.ToLower(getEnv("OBJECT_STORE", ObjectStoreGCS)),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:        getEnv("MINIO_ROOT_USER", ""),
		MinIOSecretKey:        getEnv("MINIO_ROOT_PASSWORD", ""),
		MinIOUseSSL:           getEnvBool("MINIO_USE_SSL", false),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		TextDetector:          strings.ToLower(getEnv("TEXT_DETECTOR", DetectorVision)),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		PersistResults:        getEnvBool("PERSIST_RESULTS", false),
		RecordStore:           strings.ToLower(getEnv("RECORD_STORE", RecordStoreFirestore)),
		FirestoreCollection:   getEnv("FIRESTORE_COLLECTION", DefaultCollection),
		SheetsURL:             getEnv("SHEETS_SPREADSHEET_URL", ""),
		SheetsSheetName:       getEnv("SHEETS_SHEET_NAME", "Receipts"),
		Port:                  getEnv("PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.ObjectStore {
	case ObjectStoreGCS:
	case ObjectStoreMinIO:
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return fmt.Errorf("MINIO_ROOT_USER and MINIO_ROOT_PASSWORD are required when OBJECT_STORE=minio")
		}
	default:
		return fmt.Errorf("unsupported OBJECT_STORE %q (must be %q or %q)", c.ObjectStore, ObjectStoreGCS, ObjectStoreMinIO)
	}

	switch c.TextDetector {
	case DetectorVision:
	case DetectorDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when TEXT_DETECTOR=documentai")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when TEXT_DETECTOR=documentai")
		}
	default:
		return fmt.Errorf("unsupported TEXT_DETECTOR %q (must be %q or %q)", c.TextDetector, DetectorVision, DetectorDocumentAI)
	}

	if !c.PersistResults {
		return nil
	}
	switch c.RecordStore {
	case RecordStoreFirestore:
		if c.FirestoreCollection == "" {
			return fmt.Errorf("FIRESTORE_COLLECTION must not be empty when PERSIST_RESULTS=true")
		}
	case RecordStoreSheets:
		if c.SheetsURL == "" {
			return fmt.Errorf("SHEETS_SPREADSHEET_URL is required when RECORD_STORE=sheets")
		}
	default:
		return fmt.Errorf("unsupported RECORD_STORE %q (must be %q or %q)", c.RecordStore, RecordStoreFirestore, RecordStoreSheets)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
