package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

// GCSStore implements ObjectStore on Google Cloud Storage
type GCSStore struct {
	client *gcs.Client
	logger *zap.Logger
}

// NewGCSStore creates a Cloud Storage client using application default credentials
func NewGCSStore(ctx context.Context, logger *zap.Logger) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, logger: logger}, nil
}

// Get implements repositories.ObjectStore
func (s *GCSStore) Get(ctx context.Context, uri entities.ObjectURI) (*entities.Object, error) {
	s.logger.Info("Accessing object",
		zap.String("bucket", uri.Bucket),
		zap.String("path", uri.Path))

	reader, err := s.client.Bucket(uri.Bucket).Object(uri.Path).NewReader(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", uri, err)
	}

	return &entities.Object{
		URI:         uri,
		Content:     content,
		ContentType: ContentType(uri.Path, reader.Attrs.ContentType),
	}, nil
}

// Stat implements repositories.ObjectStore
func (s *GCSStore) Stat(ctx context.Context, uri entities.ObjectURI) (*entities.ObjectAttrs, error) {
	attrs, err := s.client.Bucket(uri.Bucket).Object(uri.Path).Attrs(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	return &entities.ObjectAttrs{
		Name:        attrs.Name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Created:     attrs.Created,
		Updated:     attrs.Updated,
		MD5Hash:     base64.StdEncoding.EncodeToString(attrs.MD5),
		PublicURL:   PublicURL(uri),
	}, nil
}

// Close releases the client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func translateError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return repositories.ErrObjectNotFound
	}
	return err
}
