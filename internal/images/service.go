// Package images stores uploaded activity images in S3-compatible object
// storage and hands back a stable public URL.
package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rohis/api/internal/util"
)

// Service uploads images to one bucket.
type Service struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewService connects to the object store. publicURL is the externally
// reachable base (a CDN or the MinIO endpoint itself); object paths are
// appended to it.
func NewService(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}

	return &Service{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload stores one image and returns its public URL.
func (s *Service) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	object := objectKey(s.now(), filename)
	_, err := s.client.PutObject(ctx, s.bucket, object, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store image %s: %w", object, err)
	}
	return s.publicURL + "/" + s.bucket + "/" + object, nil
}

// objectKey spreads uploads over year/month folders and never reuses a
// name, so an activity edit cannot clobber another activity's image.
func objectKey(at time.Time, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return at.UTC().Format("2006/01/") + util.NewID("img") + ext
}
