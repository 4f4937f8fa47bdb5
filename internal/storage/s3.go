package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/config"
	"github.com/mediavault/backend/internal/media"
)

// S3Storage implements media.ObjectStorage backed by an S3-compatible service.
// Keys are namespaced by media type so images and videos can live under
// distinct lifecycle policies.
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage configures a client and uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if strings.TrimSpace(cfg.Endpoint) != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put uploads the content and returns its public URL together with the object
// key used as the provider id.
func (s *S3Storage) Put(ctx context.Context, name, mediaType string, r io.Reader) (media.StoredObject, error) {
	base := path.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == "/" {
		return media.StoredObject{}, fmt.Errorf("s3 storage: empty object name")
	}
	key := path.Join(mediaType, uuid.NewString(), base)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   manager.ReadSeekCloser(r),
	})
	if err != nil {
		return media.StoredObject{}, fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	url := key
	if s.baseURL != "" {
		url = fmt.Sprintf("%s/%s", s.baseURL, key)
	}

	return media.StoredObject{URL: url, ID: key}, nil
}

// Delete removes the object by its provider id. The media type is part of the
// key already, so it is only used for diagnostics.
func (s *S3Storage) Delete(ctx context.Context, id, mediaType string) error {
	key := strings.TrimLeft(id, "/")
	if key == "" {
		return fmt.Errorf("s3 storage: empty key for %s delete", mediaType)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", key, err)
	}

	return nil
}

var _ media.ObjectStorage = (*S3Storage)(nil)
