// Package transform re-encodes uploaded image bytes to bounded, normalized
// dimensions before they reach object storage.
package transform

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	// webp sources arrive from mobile clients; register the decoder.
	_ "golang.org/x/image/webp"
)

// ErrBadImage marks input bytes that cannot be decoded as an image.
// Callers treat it as a user error, not a server fault.
var ErrBadImage = errors.New("cannot decode image")

// Format is the target encoding of a transform.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// ContentType returns the MIME type of the encoded output.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Profile describes the transform target. Zero fields fall back to the
// defaults of DefaultProfile.
type Profile struct {
	Width   int
	Height  int
	Quality int
	Format  Format
}

// DefaultProfile is the target used when the caller specifies nothing:
// 800x600, quality 85, JPEG.
func DefaultProfile() Profile {
	return Profile{Width: 800, Height: 600, Quality: 85, Format: JPEG}
}

// Thumbnail dimensions are fixed regardless of category.
const (
	thumbSize    = 150
	thumbQuality = 70
)

// Transform decodes data, resizes it to exactly p.Width x p.Height using
// cover fit with centered cropping (overflow is cropped symmetrically,
// never letterboxed), and re-encodes it in p.Format.
func Transform(data []byte, p Profile) ([]byte, error) {
	def := DefaultProfile()
	if p.Width <= 0 {
		p.Width = def.Width
	}
	if p.Height <= 0 {
		p.Height = def.Height
	}
	if p.Quality <= 0 {
		p.Quality = def.Quality
	}
	if p.Format == "" {
		p.Format = def.Format
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	out := imaging.Fill(src, p.Width, p.Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch p.Format {
	case PNG:
		err = imaging.Encode(&buf, out, imaging.PNG)
	default:
		err = imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(p.Quality))
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.Format, err)
	}
	return buf.Bytes(), nil
}

// Thumbnail produces the fixed 150x150 preview variant.
func Thumbnail(data []byte) ([]byte, error) {
	return Transform(data, Profile{Width: thumbSize, Height: thumbSize, Quality: thumbQuality, Format: JPEG})
}
