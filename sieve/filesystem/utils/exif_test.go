package utils

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureTimeWithoutEXIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	_, ok := CaptureTime(path)
	assert.False(t, ok)
}

func TestCaptureTimeMissingFile(t *testing.T) {
	_, ok := CaptureTime(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.False(t, ok)
}
