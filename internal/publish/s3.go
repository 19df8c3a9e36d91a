// SPDX-License-Identifier: MPL-2.0

// Package publish uploads rendered reports to S3-compatible object storage.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

var (
	// ErrInvalidConfig is returned for incomplete storage settings.
	ErrInvalidConfig = errors.New("invalid publish configuration")

	// ErrNotFound is returned when a published report does not exist.
	ErrNotFound = errors.New("published report not found")
)

type (
	// Config locates the bucket.
	Config struct {
		Endpoint  string
		Region    string
		Bucket    string
		Prefix    string
		AccessKey string
		SecretKey string
		UseSSL    bool
	}

	// Artifact is one rendered report.
	Artifact struct {
		Device  string
		Version string
		// Extension is the file extension without the dot, e.g. "md".
		Extension string
		Body      []byte
	}

	// Location is where an artifact was stored.
	Location struct {
		Bucket string
		Key    string
		Size   int64
	}

	// S3 publishes artifacts with minio-go. The bucket is created on first
	// use when missing.
	S3 struct {
		client   *minio.Client
		bucket   string
		prefix   string
		region   string
		initOnce sync.Once
		initErr  error
	}
)

// NewS3 validates cfg and returns a publisher. No request is made until the
// first Publish.
func NewS3(cfg Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	access, secret := strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("%w: access key and secret key are required", ErrInvalidConfig)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = DefaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &S3{client: client, bucket: bucket, prefix: cfg.Prefix, region: region}, nil
}

// ObjectKey returns prefix/device/version/report.<ext>. Empty device and
// version segments become "unknown" and "unversioned".
func ObjectKey(prefix, device, version, ext string) string {
	device = cleanSegment(device, "unknown")
	version = cleanSegment(version, "unversioned")
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "txt"
	}
	key := path.Join(strings.Trim(prefix, "/"), device, version, "report."+ext)
	return strings.TrimPrefix(key, "/")
}

// cleanSegment keeps a user-supplied value to one path segment.
func cleanSegment(s, fallback string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "/", "_"))
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}

// ContentType returns the MIME type for a report extension.
func ContentType(ext string) string {
	switch strings.TrimPrefix(ext, ".") {
	case "md":
		return "text/markdown; charset=utf-8"
	case "json":
		return "application/json"
	case "xml":
		return "application/xml"
	case "txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Publish uploads a and returns its location.
func (s *S3) Publish(ctx context.Context, a Artifact) (Location, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Location{}, fmt.Errorf("ensuring bucket %s: %w", s.bucket, err)
	}

	key := ObjectKey(s.prefix, a.Device, a.Version, a.Extension)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(a.Body), int64(len(a.Body)), minio.PutObjectOptions{
		ContentType: ContentType(a.Extension),
		UserMetadata: map[string]string{
			"device":  a.Device,
			"version": a.Version,
		},
	})
	if err != nil {
		return Location{}, fmt.Errorf("uploading %s: %w", key, err)
	}
	return Location{Bucket: s.bucket, Key: key, Size: info.Size}, nil
}

// Fetch downloads a published report by key.
func (s *S3) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// URI returns the s3:// URI of loc.
func (loc Location) URI() string {
	return "s3://" + loc.Bucket + "/" + loc.Key
}
