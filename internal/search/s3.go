package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rshade/stagehand/internal/config"
)

// S3Sink writes each document type as one JSON array object to an
// S3-compatible bucket, at <prefix>/<type>.json.
type S3Sink struct {
	client *minio.Client
	bucket string
	prefix string
	region string

	bucketReady bool
}

// NewS3Sink connects to the configured endpoint. The bucket is created on the
// first Replace if it does not exist.
func NewS3Sink(_ context.Context, cfg config.S3SinkConfig) (*S3Sink, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 sink requires endpoint and bucket", config.ErrInvalidConfig)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client for %s: %w", cfg.Endpoint, err)
	}
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, region: cfg.Region}, nil
}

// ObjectName returns the object key documents of docType are written to.
func (s *S3Sink) ObjectName(docType string) string {
	return path.Join(s.prefix, docType+".json")
}

// Replace implements Sink. The object is overwritten as a whole.
func (s *S3Sink) Replace(ctx context.Context, docType string, docs []Document) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if docs == nil {
		docs = []Document{}
	}
	body, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encoding %s documents: %w", docType, err)
	}

	name := s.ObjectName(docType)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("uploading %s to bucket %s: %w", name, s.bucket, err)
	}
	return nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
		}
	}
	s.bucketReady = true
	return nil
}

// Close implements Sink.
func (s *S3Sink) Close() error { return nil }
