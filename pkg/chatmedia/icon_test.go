package chatmedia

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestNormalizeIcon_ShrinksLargeImages(t *testing.T) {
	out := NormalizeIcon(encodeTestImage(t, 640, 320))

	raw, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 128, cfg.Width)
	assert.Equal(t, 64, cfg.Height)
}

func TestNormalizeIcon_KeepsSmallImageSize(t *testing.T) {
	out := NormalizeIcon(encodeTestImage(t, 32, 32))

	raw, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
}

func TestNormalizeIcon_UndecodableReturnsInput(t *testing.T) {
	in := base64.StdEncoding.EncodeToString([]byte("not an image"))
	assert.Equal(t, in, NormalizeIcon(in))
	assert.Equal(t, "", NormalizeIcon(""))
}
