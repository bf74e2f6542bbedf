package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on the server's filesystem. It exists as
// a separate deployment profile for installations without an S3-compatible
// backend: buckets are directories under root, and objects are served by a
// static file handler mounted at publicBase.
type LocalStorage struct {
	root       string
	publicBase string
}

// NewLocalStorage creates a LocalStorage rooted at dir. URLs are formed as
// publicBase/bucket/key, e.g. "/uploads/menu-item-images/menuItems/x.jpg".
func NewLocalStorage(dir, publicBase string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{
		root:       dir,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Root returns the directory objects are stored under, for mounting a
// static file server.
func (s *LocalStorage) Root() string {
	return s.root
}

// EnsureBucket creates the bucket directory if missing.
func (s *LocalStorage) EnsureBucket(_ context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(s.root, bucket), 0o755); err != nil {
		return fmt.Errorf("create bucket dir %q: %w", bucket, err)
	}
	return nil
}

// Put writes data to bucket/key, creating intermediate directories. An
// existing file under the same key is overwritten.
func (s *LocalStorage) Put(_ context.Context, bucket, key string, data []byte, _ string) (*Object, error) {
	path := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write object %q: %w", key, err)
	}
	return &Object{Bucket: bucket, Key: key, URL: s.PublicURL(bucket, key)}, nil
}

// Remove deletes the file at bucket/key. A missing file is a success.
func (s *LocalStorage) Remove(_ context.Context, bucket, key string) error {
	err := os.Remove(filepath.Join(s.root, bucket, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// Stat returns file metadata for bucket/key. The filesystem does not keep a
// portable creation time, so CreatedAt mirrors the modification time.
func (s *LocalStorage) Stat(_ context.Context, bucket, key string) (*ObjectInfo, error) {
	fi, err := os.Stat(filepath.Join(s.root, bucket, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return &ObjectInfo{
		Key:        key,
		Size:       fi.Size(),
		CreatedAt:  fi.ModTime(),
		ModifiedAt: fi.ModTime(),
		URL:        s.PublicURL(bucket, key),
	}, nil
}

// PublicURL returns the URL a static file server resolves to bucket/key.
func (s *LocalStorage) PublicURL(bucket, key string) string {
	return s.publicBase + "/" + bucket + "/" + key
}

// KeyFromURL strips the public prefix for bucket from url; "" means the
// URL does not belong to the bucket.
func (s *LocalStorage) KeyFromURL(url, bucket string) string {
	key, ok := strings.CutPrefix(url, s.publicBase+"/"+bucket+"/")
	if !ok || key == "" {
		return ""
	}
	return key
}
