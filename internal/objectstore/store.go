// Package objectstore uploads report and invoice files to a blob backend and
// hands back a URI for the stored object.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// Store uploads an object under key and returns its URI.
type Store interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Reader is implemented by backends that can read their objects back.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type BackendType string

const (
	S3Backend     BackendType = "s3"
	GCSBackend    BackendType = "gcs"
	BoltBackend   BackendType = "bolt"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) IsValid() bool {
	switch t {
	case S3Backend, GCSBackend, BoltBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

var (
	ErrEmptyKey       = errors.New("empty object key")
	ErrObjectNotFound = errors.New("object not found")
)

type Config struct {
	Backend      BackendType
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool

	// GCS
	CredentialsFile string

	// Bolt
	BoltPath string
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, CleanupFunc, error) {
	if !cfg.Backend.IsValid() {
		return nil, nil, fmt.Errorf("invalid object store backend: %q", cfg.Backend)
	}
	noop := func() error { return nil }

	switch cfg.Backend {
	case S3Backend:
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create s3 store: %w", err)
		}
		return s, noop, nil
	case GCSBackend:
		s, err := NewGCSStore(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs store: %w", err)
		}
		return s, noop, nil
	case BoltBackend:
		s, err := NewBoltStore(cfg.BoltPath, cfg.Bucket)
		if err != nil {
			return nil, nil, fmt.Errorf("create bolt store: %w", err)
		}
		return s, s.Close, nil
	default:
		slog.WarnContext(ctx, "Using in-memory object store, uploads are lost on restart")
		return NewMemoryStore(), noop, nil
	}
}

// objectKey joins prefix and key with a single slash.
func objectKey(prefix, key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrEmptyKey
	}
	if prefix == "" {
		return key, nil
	}
	return path.Join(strings.Trim(prefix, "/"), key), nil
}
