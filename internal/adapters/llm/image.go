package llm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// MaxImageBytes bounds the base64-encoded image, which is what counts
// against the provider's 5MB image limit.
const MaxImageBytes = 4_500_000

// EncodedSize is the length of data once base64-encoded for the provider.
func EncodedSize(data []byte) int {
	return base64.StdEncoding.EncodedLen(len(data))
}

// PrepareImage detects the media type of an uploaded creative and shrinks it
// until its encoded size is within MaxImageBytes. Only PNG and JPEG are accepted.
func PrepareImage(data []byte, declared string) (domain.Image, error) {
	if len(data) == 0 {
		return domain.Image{}, domain.ErrEmptyImage
	}

	detected := http.DetectContentType(data)
	mediaType := normalizeMediaType(detected)
	if mediaType == "" && !strings.HasPrefix(detected, "image/") {
		mediaType = normalizeMediaType(declared)
	}
	if mediaType == "" {
		return domain.Image{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, declared)
	}

	img := domain.Image{Data: data, MediaType: mediaType}
	if EncodedSize(data) <= MaxImageBytes {
		return img, nil
	}
	return compress(img)
}

func normalizeMediaType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case domain.MediaTypePNG:
		return domain.MediaTypePNG
	case domain.MediaTypeJPEG, "image/jpg":
		return domain.MediaTypeJPEG
	}
	return ""
}

// compress re-encodes as JPEG with falling quality, then halves the
// dimensions, for a bounded number of rounds.
func compress(in domain.Image) (domain.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(in.Data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode image for compression: %w", err)
	}

	qualities := []int{85, 70, 55, 40}
	for round := 0; round < 4; round++ {
		for _, q := range qualities {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: q}); err != nil {
				return domain.Image{}, fmt.Errorf("encode jpeg: %w", err)
			}
			if EncodedSize(buf.Bytes()) <= MaxImageBytes {
				return domain.Image{Data: buf.Bytes(), MediaType: domain.MediaTypeJPEG}, nil
			}
		}

		b := src.Bounds()
		w, h := b.Dx()/2, b.Dy()/2
		if w < 1 || h < 1 {
			break
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	}
	return domain.Image{}, fmt.Errorf("encoded image still larger than %d bytes after compression", MaxImageBytes)
}
