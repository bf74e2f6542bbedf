package media

import (
	"time"

	"github.com/sofra/media/internal/category"
)

// File is one raw upload payload as received from the client.
type File struct {
	OriginalName string
	ContentType  string
	Data         []byte
}

// StoredImage describes one persisted asset. It is assembled once at upload
// time and never mutated; the URL is always recomputable from the bucket
// and the path.
type StoredImage struct {
	URL          string            `json:"url"`
	ThumbnailURL string            `json:"thumbnailUrl,omitempty"`
	Path         string            `json:"path"`
	Filename     string            `json:"filename"`
	OriginalName string            `json:"originalName"`
	Size         int64             `json:"size"`
	Category     category.Category `json:"category"`
	ContentType  string            `json:"contentType"`
}

// FailedUpload records one file of a batch that was not stored.
type FailedUpload struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

// BatchResult partitions a batch's input files into stored and failed.
// Every input file lands in exactly one of the two lists.
type BatchResult struct {
	Stored []StoredImage  `json:"stored"`
	Failed []FailedUpload `json:"failed"`
}

// ImageInfo is the metadata answer for a lookup query.
type ImageInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	URL        string    `json:"url"`
}
