package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible)
// backend. Switching providers is a matter of changing STORAGE_ENDPOINT and
// credentials — no code changes are needed.
type MinioStorage struct {
	client     *minio.Client
	publicBase string
}

// NewMinioStorage creates a MinIO client. The constructor performs no
// network I/O; buckets are provisioned on demand via EnsureBucket.
func NewMinioStorage(endpoint, accessKey, secretKey, publicBase string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{
		client:     client,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// EnsureBucket checks for the bucket and creates it with a public-read
// policy when missing.
func (s *MinioStorage) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	log.Printf("storage: created bucket %q", bucket)

	if err := s.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// Put uploads data under key. PutObject overwrites existing keys, so
// duplicate keys follow last-writer-wins.
func (s *MinioStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (*Object, error) {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}
	return &Object{Bucket: bucket, Key: key, URL: s.PublicURL(bucket, key)}, nil
}

// Remove deletes the object at key. MinIO treats removal of a missing key
// as a success, which gives us idempotent deletes for free.
func (s *MinioStorage) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// Stat returns metadata for the object at key.
func (s *MinioStorage) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return &ObjectInfo{
		Key:  key,
		Size: info.Size,
		// S3 keeps a single timestamp per object version.
		CreatedAt:  info.LastModified,
		ModifiedAt: info.LastModified,
		URL:        s.PublicURL(bucket, key),
	}, nil
}

// PublicURL returns the browser-accessible URL for the given key, e.g.
// "http://localhost:9000/menu-item-images/menuItems/1700000000000-ab12.jpg".
func (s *MinioStorage) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + bucket + "/" + key
}

// KeyFromURL strips the public prefix for bucket from url. The empty string
// means the URL does not belong to the bucket; callers must not attempt
// storage calls with it.
func (s *MinioStorage) KeyFromURL(url, bucket string) string {
	key, ok := strings.CutPrefix(url, s.publicBase+"/"+bucket+"/")
	if !ok || key == "" {
		return ""
	}
	return key
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous
// GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
