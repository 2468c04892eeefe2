package llm_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/llm"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareImageDetectsType(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 4, 4))
	pngData := encodePNG(t, small)

	img, err := llm.PrepareImage(pngData, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypePNG, img.MediaType)
	assert.Equal(t, pngData, img.Data)

	var jb bytes.Buffer
	require.NoError(t, jpeg.Encode(&jb, small, nil))
	img, err = llm.PrepareImage(jb.Bytes(), domain.MediaTypePNG)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeJPEG, img.MediaType)
}

func TestPrepareImageRejects(t *testing.T) {
	_, err := llm.PrepareImage(nil, domain.MediaTypePNG)
	assert.ErrorIs(t, err, domain.ErrEmptyImage)

	_, err = llm.PrepareImage([]byte("GIF89a\x01\x00\x01\x00"), "image/gif")
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)

	_, err = llm.PrepareImage([]byte("plain text"), "text/plain")
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
}

func TestPrepareImageCompressesLargeCreatives(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a multi-megabyte image")
	}
	rng := rand.New(rand.NewSource(1))
	noisy := image.NewRGBA(image.Rect(0, 0, 1600, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 1600; x++ {
			noisy.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	data := encodePNG(t, noisy)
	require.Greater(t, len(data), llm.MaxImageBytes)

	img, err := llm.PrepareImage(data, domain.MediaTypePNG)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeJPEG, img.MediaType)
	assert.LessOrEqual(t, llm.EncodedSize(img.Data), llm.MaxImageBytes)

	_, _, err = image.Decode(bytes.NewReader(img.Data))
	assert.NoError(t, err)
}

// A creative below MaxImageBytes raw can still exceed it once base64-encoded.
func TestPrepareImageBoundsTheEncodedSize(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a multi-megabyte image")
	}
	rng := rand.New(rand.NewSource(2))
	noisy := image.NewNRGBA(image.Rect(0, 0, 1024, 1050))
	_, _ = rng.Read(noisy.Pix)

	data := encodePNG(t, noisy)
	require.Less(t, len(data), llm.MaxImageBytes)
	require.Greater(t, llm.EncodedSize(data), llm.MaxImageBytes)

	img, err := llm.PrepareImage(data, domain.MediaTypePNG)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeJPEG, img.MediaType)
	assert.LessOrEqual(t, llm.EncodedSize(img.Data), llm.MaxImageBytes)
	assert.Less(t, llm.EncodedSize(img.Data), 5*1024*1024)
}

func TestPrepareImageKeepsCreativesThatFit(t *testing.T) {
	data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 64, 64)))
	require.LessOrEqual(t, llm.EncodedSize(data), llm.MaxImageBytes)

	img, err := llm.PrepareImage(data, domain.MediaTypePNG)
	require.NoError(t, err)
	assert.Equal(t, data, img.Data)
}
