package consensus

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tphakala/bearwatch/internal/errors"
)

// DefaultMaxImageBytes caps decoded photo size
const DefaultMaxImageBytes = 10 << 20

// Image is a decoded photo
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL renders the image as a base64 data URL
func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// DecodeDataURL parses a "data:image/...;base64,..." URL or bare base64
// payload. The content type is sniffed from the bytes, not trusted from the
// header, and must be an image.
func DecodeDataURL(s string, maxBytes int) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, invalidImage("empty image")
	}

	payload := s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return Image{}, invalidImage("image must be a base64 data URL")
		}
		payload = data
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return Image{}, invalidImage("image too large")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return Image{}, invalidImage("image is not valid base64")
		}
	}
	return NewImage(data, maxBytes)
}

// NewImage wraps raw photo bytes, sniffing the content type
func NewImage(data []byte, maxBytes int) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if len(data) == 0 {
		return Image{}, invalidImage("empty image")
	}
	if len(data) > maxBytes {
		return Image{}, invalidImage("image too large")
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, invalidImage("payload is not an image")
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// CheckPhotoAge rejects photos captured more than maxAge before now. A nil
// capturedAt is accepted.
func CheckPhotoAge(capturedAt *time.Time, now time.Time, maxAge time.Duration) error {
	if capturedAt == nil || maxAge <= 0 {
		return nil
	}
	if now.Sub(*capturedAt) > maxAge {
		return errors.Newf("photo was taken more than %s ago", maxAge).
			Category(errors.CategoryValidation).
			Component("consensus").
			Context("captured_at", capturedAt.Format(time.RFC3339)).
			Build()
	}
	return nil
}

func invalidImage(reason string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidImage, reason)).
		Category(errors.CategoryValidation).
		Component("consensus").
		Build()
}
