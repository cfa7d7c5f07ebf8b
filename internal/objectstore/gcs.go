package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

type GCSStore struct {
	svc    *storage.Service
	bucket string
	prefix string
}

// NewGCSStore authenticates with the service account file when one is
// configured and with application default credentials otherwise.
func NewGCSStore(ctx context.Context, cfg Config) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &GCSStore{svc: svc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	k, err := objectKey(s.prefix, key)
	if err != nil {
		return "", err
	}
	obj := &storage.Object{Name: k, ContentType: contentType}
	_, err = s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(body), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("insert gcs object %s: %w", k, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, k), nil
}
