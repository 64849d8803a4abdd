package vision

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Preprocessor turns a raw image into the representation frames are compared on
type Preprocessor interface {
	Preprocess(img image.Image) (*image.Gray, error)
}

// ChangeDetection converts to grayscale, optionally blurs, then blacks out
// the borders given by BlackMask.
type ChangeDetection struct {
	// BlurRadii are odd Gaussian kernel sizes applied in order.
	BlurRadii []int
	// BlackMask is the percentage of width/height masked on the
	// left, top, right and bottom edges. Nil means no mask.
	BlackMask []int
}

// Preprocess implements Preprocessor
func (c ChangeDetection) Preprocess(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	if n := len(c.BlackMask); n != 0 && n != 4 {
		return nil, fmt.Errorf("black mask needs 4 borders, got %d", n)
	}

	gray := imaging.Grayscale(img)
	for _, radius := range c.BlurRadii {
		if radius <= 0 {
			continue
		}
		gray = imaging.Blur(gray, kernelSigma(radius))
	}

	out := toGray(gray)
	if len(c.BlackMask) == 4 {
		applyBlackMask(out, c.BlackMask)
	}
	return out, nil
}

// kernelSigma maps a kernel size to the sigma OpenCV derives for it
func kernelSigma(ksize int) float64 {
	return 0.3*((float64(ksize)-1)*0.5-1) + 0.8
}

func applyBlackMask(g *image.Gray, borders []int) {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()

	xMin := b.Min.X + borders[0]*w/100
	yMin := b.Min.Y + borders[1]*h/100
	xMax := b.Max.X - borders[2]*w/100
	yMax := b.Max.Y - borders[3]*h/100

	for _, r := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, xMin, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, yMin),
		image.Rect(xMax, b.Min.Y, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, yMax, b.Max.X, b.Max.Y),
	} {
		draw.Draw(g, r.Intersect(b), image.Black, image.Point{}, draw.Src)
	}
}

// ResizeTo scales a representation to w x h with area averaging. A frame
// already at that size is returned as is.
func ResizeTo(g *image.Gray, w, h int) (*image.Gray, error) {
	if g == nil || g.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", w, h)
	}
	if g.Bounds().Dx() == w && g.Bounds().Dy() == h {
		return g, nil
	}
	return toGray(imaging.Resize(g, w, h, imaging.Box)), nil
}

// toGray copies the red channel of a grayscale NRGBA image into an image.Gray
func toGray(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride:]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = srcRow[x*4]
		}
	}
	return dst
}
