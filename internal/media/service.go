// Package media implements the image upload, deletion, and lookup pipeline:
// validation, per-category optimization, and persistence to object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sofra/media/internal/category"
	"github.com/sofra/media/internal/storage"
	"github.com/sofra/media/internal/transform"
)

const (
	// MaxFileSize is the upload size ceiling per file.
	MaxFileSize = 5 << 20
	// MaxBatchFiles bounds a multi-upload request.
	MaxBatchFiles = 10

	maxNameLength = 255
	thumbPrefix   = "thumb_"
)

// ErrBackendUnavailable is returned when no storage backend is configured.
// Every operation checks it before doing any work.
var ErrBackendUnavailable = errors.New("object storage backend is not configured")

// ValidationError marks a rejected input. It never reaches storage and maps
// to a 400 at the HTTP boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Service contains the upload, deletion, and lookup logic. The storage
// backend is an injected capability; a nil store means the backend is not
// configured and every operation answers ErrBackendUnavailable.
type Service struct {
	store   storage.Storage
	buckets map[category.Category]string
}

// NewService creates a media Service. buckets overrides per-category bucket
// names; categories absent from the map keep their defaults.
func NewService(store storage.Storage, buckets map[category.Category]string) *Service {
	return &Service{store: store, buckets: buckets}
}

// Available reports whether a storage backend is configured.
func (s *Service) Available() bool {
	return s.store != nil
}

// Bucket resolves the bucket name for a category.
func (s *Service) Bucket(c category.Category) string {
	if b := s.buckets[c]; b != "" {
		return b
	}
	return c.DefaultBucket()
}

// Upload validates file, optionally re-encodes it to the category's default
// profile, stores it together with a 150x150 thumbnail, and returns the
// resulting StoredImage. No storage call is made for a file that fails
// validation.
func (s *Service) Upload(ctx context.Context, file File, cat category.Category, optimize bool) (*StoredImage, error) {
	if !s.Available() {
		return nil, ErrBackendUnavailable
	}
	if err := validateFile(file); err != nil {
		return nil, err
	}

	bucket := s.Bucket(cat)
	s.ensureBucket(ctx, bucket)

	data := file.Data
	contentType := file.ContentType
	if optimize {
		p := cat.DefaultProfile()
		out, err := transform.Transform(data, transform.Profile{Width: p.Width, Height: p.Height, Quality: p.Quality})
		if err != nil {
			return nil, err
		}
		data = out
		contentType = transform.JPEG.ContentType()
	}

	key := newKey(cat, file.OriginalName, file.ContentType)
	obj, err := s.store.Put(ctx, bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	img := &StoredImage{
		URL:          obj.URL,
		Path:         obj.Key,
		Filename:     path.Base(obj.Key),
		OriginalName: file.OriginalName,
		Size:         int64(len(data)),
		Category:     cat,
		ContentType:  contentType,
	}

	// The primary object is already stored, so from here on a thumbnail
	// failure (undecodable source on the non-optimize path, or a backend
	// write error) degrades previews but must not fail the upload —
	// returning an error now would orphan the stored object.
	thumb, err := transform.Thumbnail(data)
	if err != nil {
		log.Printf("media: thumbnail for %q failed: %v", key, err)
		return img, nil
	}
	thumbObj, err := s.store.Put(ctx, bucket, thumbKey(key), thumb, transform.JPEG.ContentType())
	if err != nil {
		log.Printf("media: store thumbnail for %q failed: %v", key, err)
	} else {
		img.ThumbnailURL = thumbObj.URL
	}

	return img, nil
}

// UploadBatch validates every file before any storage call, then stores the
// valid ones sequentially. A file failing validation or storage lands in
// the Failed list by original name and never aborts its siblings. An error
// is returned only when the whole batch is rejected up front.
func (s *Service) UploadBatch(ctx context.Context, files []File, cat category.Category, optimize bool) (*BatchResult, error) {
	if !s.Available() {
		return nil, ErrBackendUnavailable
	}
	if len(files) == 0 {
		return nil, &ValidationError{Reason: "no files selected"}
	}
	if len(files) > MaxBatchFiles {
		return nil, validationErrorf("too many files: at most %d per request", MaxBatchFiles)
	}

	res := &BatchResult{Stored: []StoredImage{}, Failed: []FailedUpload{}}

	valid := make([]File, 0, len(files))
	for _, f := range files {
		if err := validateFile(f); err != nil {
			res.Failed = append(res.Failed, FailedUpload{OriginalName: f.OriginalName, Reason: err.Error()})
			continue
		}
		valid = append(valid, f)
	}
	if len(valid) == 0 {
		return nil, &ValidationError{Reason: "no file passed validation"}
	}

	bucket := s.Bucket(cat)
	s.ensureBucket(ctx, bucket)

	for _, f := range valid {
		data := f.Data
		contentType := f.ContentType
		if optimize {
			out, err := transform.Transform(data, transform.DefaultProfile())
			if err != nil {
				res.Failed = append(res.Failed, FailedUpload{OriginalName: f.OriginalName, Reason: "invalid or corrupt image data"})
				continue
			}
			data = out
			contentType = transform.JPEG.ContentType()
		}

		key := newKey(cat, f.OriginalName, f.ContentType)
		obj, err := s.store.Put(ctx, bucket, key, data, contentType)
		if err != nil {
			log.Printf("media: store %q failed: %v", f.OriginalName, err)
			res.Failed = append(res.Failed, FailedUpload{OriginalName: f.OriginalName, Reason: "storage write failed"})
			continue
		}

		res.Stored = append(res.Stored, StoredImage{
			URL:          obj.URL,
			Path:         obj.Key,
			Filename:     path.Base(obj.Key),
			OriginalName: f.OriginalName,
			Size:         int64(len(data)),
			Category:     cat,
			ContentType:  contentType,
		})
	}

	return res, nil
}

// Delete resolves url back to a storage key and removes the object and its
// thumbnail. An unresolvable URL is a validation failure and triggers no
// backend call; a missing thumbnail is not an error.
func (s *Service) Delete(ctx context.Context, url string, cat category.Category) error {
	if !s.Available() {
		return ErrBackendUnavailable
	}

	bucket := s.Bucket(cat)
	key := s.store.KeyFromURL(url, bucket)
	if key == "" {
		return &ValidationError{Reason: "image URL does not match any stored object"}
	}

	if err := s.store.Remove(ctx, bucket, key); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	if tk := thumbKey(key); tk != key {
		if err := s.store.Remove(ctx, bucket, tk); err != nil {
			log.Printf("media: delete thumbnail %q failed: %v", tk, err)
		}
	}
	return nil
}

// Info returns metadata for a stored image by category and filename.
// A missing object surfaces as storage.ErrObjectNotFound.
func (s *Service) Info(ctx context.Context, cat category.Category, filename string) (*ImageInfo, error) {
	if !s.Available() {
		return nil, ErrBackendUnavailable
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return nil, &ValidationError{Reason: "invalid filename"}
	}

	info, err := s.store.Stat(ctx, s.Bucket(cat), string(cat)+"/"+filename)
	if err != nil {
		return nil, err
	}
	return &ImageInfo{
		Filename:   filename,
		Size:       info.Size,
		CreatedAt:  info.CreatedAt,
		ModifiedAt: info.ModifiedAt,
		URL:        info.URL,
	}, nil
}

// ensureBucket provisions the bucket best-effort: a failure is logged and
// never fails the main operation.
func (s *Service) ensureBucket(ctx context.Context, bucket string) {
	if err := s.store.EnsureBucket(ctx, bucket); err != nil {
		log.Printf("media: ensure bucket %q failed: %v", bucket, err)
	}
}

func validateFile(f File) error {
	if len(f.Data) == 0 {
		return &ValidationError{Reason: "empty file"}
	}
	if len(f.Data) > MaxFileSize {
		return validationErrorf("file exceeds the %dMB size limit", MaxFileSize>>20)
	}
	if !allowedTypes[strings.ToLower(f.ContentType)] {
		return validationErrorf("unsupported file type %q: use JPG, PNG, WebP, or GIF", f.ContentType)
	}
	if len(f.OriginalName) > maxNameLength {
		return validationErrorf("filename longer than %d characters", maxNameLength)
	}
	return nil
}

// newKey derives a unique storage key: <category>/<unix-ms>-<suffix><ext>.
// The suffix is opaque and never filename-derived, so two uploads with
// identical names cannot collide.
func newKey(cat category.Category, originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = extFromContentType(contentType)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%s/%d-%s%s", cat, time.Now().UnixMilli(), suffix, ext)
}

// thumbKey returns the sibling key the thumbnail is stored under.
func thumbKey(key string) string {
	dir, file := path.Split(key)
	if strings.HasPrefix(file, thumbPrefix) {
		return key
	}
	return dir + thumbPrefix + file
}

func extFromContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
