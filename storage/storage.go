package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileStore abstracts where uploaded documents live. Locations are
// slash-separated keys such as "transcripts/7_1f3a9c.pdf"; callers are
// responsible for choosing unique names.
type FileStore interface {
	Save(ctx context.Context, location string, data io.Reader, size int64) error
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
	Exists(ctx context.Context, location string) (bool, error)
}

// Config selects and parameterizes the file store backend.
type Config struct {
	Backend   string // "local" (default) or "minio"
	Root      string // local backend root directory
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ConfigFromEnv builds a Config from environment variables. The local
// backend needs only STORAGE_ROOT (defaults to the upload path).
func ConfigFromEnv(uploadPath string) Config {
	cfg := Config{
		Backend:   os.Getenv("STORAGE_BACKEND"),
		Root:      os.Getenv("STORAGE_ROOT"),
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    os.Getenv("MINIO_BUCKET"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	if cfg.Root == "" {
		cfg.Root = uploadPath
	}
	return cfg
}

// New builds the file store named by cfg.Backend.
func New(cfg Config) (FileStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.Root)
	case "minio":
		return NewMinIOStorage(cfg)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
