package vision

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func fillRect(g *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func TestCompareIdenticalFrames(t *testing.T) {
	d := ChangeDetector{PixelThreshold: 45, DilateIterations: 2}
	a := uniformGray(64, 48, 120)

	cmp, err := d.Compare(a, a, 100)
	require.NoError(t, err)
	assert.Zero(t, cmp.Score)
	assert.Empty(t, cmp.Regions)
}

func TestCompareSingleRegion(t *testing.T) {
	d := ChangeDetector{PixelThreshold: 45, DilateIterations: 2}
	a := uniformGray(100, 100, 0)
	b := uniformGray(100, 100, 0)
	fillRect(b, image.Rect(40, 40, 60, 60), 255)

	cmp, err := d.Compare(a, b, 100)
	require.NoError(t, err)

	// 20x20 square grown by two pixels on every side
	require.Len(t, cmp.Regions, 1)
	assert.Equal(t, 24*24, cmp.Regions[0].Area)
	assert.Equal(t, image.Rect(38, 38, 62, 62), cmp.Regions[0].Bounds)
	assert.Equal(t, float64(24*24), cmp.Score)
}

func TestCompareDropsSmallRegions(t *testing.T) {
	d := ChangeDetector{PixelThreshold: 45, DilateIterations: 2}
	a := uniformGray(100, 100, 0)
	b := uniformGray(100, 100, 0)
	fillRect(b, image.Rect(10, 10, 13, 13), 255) // 7x7 after dilation
	fillRect(b, image.Rect(50, 50, 70, 70), 255) // 24x24 after dilation

	cmp, err := d.Compare(a, b, 100)
	require.NoError(t, err)
	require.Len(t, cmp.Regions, 1)
	assert.Equal(t, float64(24*24), cmp.Score)

	cmp, err = d.Compare(a, b, 0)
	require.NoError(t, err)
	assert.Len(t, cmp.Regions, 2)
	assert.Equal(t, float64(24*24+7*7), cmp.Score)
}

func TestCompareBelowPixelThreshold(t *testing.T) {
	d := ChangeDetector{PixelThreshold: 45, DilateIterations: 2}
	a := uniformGray(50, 50, 100)
	b := uniformGray(50, 50, 145) // difference 45 is not above the threshold

	cmp, err := d.Compare(a, b, 0)
	require.NoError(t, err)
	assert.Zero(t, cmp.Score)
}

func TestCompareShapeMismatch(t *testing.T) {
	d := ChangeDetector{PixelThreshold: 45}
	_, err := d.Compare(uniformGray(10, 10, 0), uniformGray(10, 12, 0), 100)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = d.Compare(nil, uniformGray(10, 10, 0), 100)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestPreprocessBlackMask(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	g, err := ChangeDetection{BlackMask: []int{5, 10, 5, 0}}.Preprocess(src)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 100, 100), g.Bounds())

	assert.Equal(t, uint8(0), g.GrayAt(2, 50).Y, "left border")
	assert.Equal(t, uint8(0), g.GrayAt(50, 5).Y, "top border")
	assert.Equal(t, uint8(0), g.GrayAt(97, 50).Y, "right border")
	assert.Equal(t, uint8(255), g.GrayAt(50, 99).Y, "no bottom border")
	assert.Equal(t, uint8(255), g.GrayAt(50, 50).Y, "centre")
}

func TestPreprocessGrayscaleAndBlur(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	g, err := ChangeDetection{BlurRadii: []int{3, 5}}.Preprocess(src)
	require.NoError(t, err)
	assert.InDelta(t, 200, int(g.GrayAt(10, 10).Y), 1)
}

func TestPreprocessRejectsEmpty(t *testing.T) {
	_, err := ChangeDetection{}.Preprocess(image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = ChangeDetection{BlackMask: []int{1}}.Preprocess(uniformGray(4, 4, 0))
	assert.Error(t, err)
}

func TestResizeTo(t *testing.T) {
	g := uniformGray(8, 8, 0)
	fillRect(g, image.Rect(4, 0, 8, 8), 240)

	out, err := ResizeTo(g, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	assert.Less(t, int(out.GrayAt(0, 0).Y), 50)
	assert.Greater(t, int(out.GrayAt(3, 0).Y), 150)

	same, err := ResizeTo(g, 8, 8)
	require.NoError(t, err)
	assert.Same(t, g, same)

	_, err = ResizeTo(g, 0, 4)
	assert.Error(t, err)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, uniformGray(6, 4, 90)))
	require.NoError(t, f.Close())

	img, err := FileLoader{AutoOrient: true}.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())

	corrupt := filepath.Join(dir, "corrupt.png")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a png"), 0o644))
	_, err = FileLoader{}.Load(corrupt)
	assert.Error(t, err)

	_, err = FileLoader{}.Load(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
