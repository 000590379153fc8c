// Package minio stores uploaded specification and reference documents in
// object storage under opaque keys.
package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// DocumentStore implements both the pipeline's document-fetch port and the
// job service's file-cleanup port against one bucket.
type DocumentStore struct {
	client *minio.Client
	bucket string
	logger logging.Logger
}

// NewDocumentStore connects and ensures the bucket exists.
func NewDocumentStore(cfg config.MinIOConfig, log logging.Logger) (*DocumentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "create minio client")
	}

	s := &DocumentStore{client: client, bucket: cfg.Bucket, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "check bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "create bucket")
		}
		log.Info("document bucket created", logging.String("bucket", cfg.Bucket))
	}
	return s, nil
}

// Store uploads a document under the given key.
func (s *DocumentStore) Store(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "store document")
	}
	return nil
}

// Fetch downloads the document at the given key.
func (s *DocumentStore) Fetch(ctx context.Context, storageKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "fetch document")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperrors.New(apperrors.ErrCodeDocumentNotFound, "document not found").
				WithDetail(storageKey)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStorage, "read document")
	}
	return data, nil
}

// Remove deletes the given keys.  Missing objects are not errors; cleanup
// must be idempotent so a retried cancellation succeeds.
func (s *DocumentStore) Remove(ctx context.Context, storageKeys []string) error {
	if len(storageKeys) == 0 {
		return nil
	}
	objectsCh := make(chan minio.ObjectInfo, len(storageKeys))
	for _, key := range storageKeys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for res := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if res.Err != nil && minio.ToErrorResponse(res.Err).Code != "NoSuchKey" {
			return apperrors.Wrap(res.Err, apperrors.ErrCodeDocumentStorage, "remove document").
				WithDetail(res.ObjectName)
		}
	}
	s.logger.Debug("documents removed", logging.Int("count", len(storageKeys)))
	return nil
}
