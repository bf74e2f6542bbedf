// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider, and the
// local implementation keeps objects on the server's filesystem.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by Stat when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// Object is the location of a stored object.
type Object struct {
	Bucket string
	Key    string
	URL    string
}

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Key        string
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	URL        string
}

// Storage is the interface for persisting and retrieving image objects.
type Storage interface {
	// EnsureBucket makes sure the bucket exists with a public-read policy.
	// It is idempotent.
	EnsureBucket(ctx context.Context, bucket string) error
	// Put writes data under key, overwriting any existing object (last
	// writer wins), and returns the resulting location.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (*Object, error)
	// Remove deletes the object at key. Removing a key that does not exist
	// is a success.
	Remove(ctx context.Context, bucket, key string) error
	// Stat returns the metadata of the object at key, or ErrObjectNotFound.
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(bucket, key string) string
	// KeyFromURL reverses PublicURL. It is a pure string transform and
	// returns "" when the URL does not match the bucket's public prefix.
	KeyFromURL(url, bucket string) string
}
