package vision

import (
	"errors"
	"fmt"
	"image"
)

// ErrShapeMismatch is returned when two representations differ in size.
var ErrShapeMismatch = errors.New("frame shapes differ")

// Region is one connected area of change
type Region struct {
	Bounds image.Rectangle
	Area   int
}

// Comparison is the outcome of comparing two frames
type Comparison struct {
	// Score is the summed area of the kept regions, counted in foreground
	// pixels. Holes inside a region are not counted. Lower is more similar.
	Score   float64
	Regions []Region
	// Mask is the dilated binary change mask.
	Mask *image.Gray
}

// Comparator scores the dissimilarity of two equally sized representations
type Comparator interface {
	Compare(prev, next *image.Gray, minRegionArea int) (Comparison, error)
}

// ChangeDetector is the frame-differencing Comparator
type ChangeDetector struct {
	PixelThreshold   int
	DilateIterations int
}

// Compare implements Comparator
func (d ChangeDetector) Compare(prev, next *image.Gray, minRegionArea int) (Comparison, error) {
	if prev == nil || next == nil || prev.Bounds().Empty() || next.Bounds().Empty() {
		return Comparison{}, ErrEmptyFrame
	}
	pb, nb := prev.Bounds(), next.Bounds()
	if pb.Dx() != nb.Dx() || pb.Dy() != nb.Dy() {
		return Comparison{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, pb.Dx(), pb.Dy(), nb.Dx(), nb.Dy())
	}

	mask := threshold(prev, next, d.PixelThreshold)
	for i := 0; i < d.DilateIterations; i++ {
		mask = dilate(mask)
	}

	var cmp Comparison
	cmp.Mask = mask
	for _, r := range regions(mask) {
		if r.Area < minRegionArea {
			continue
		}
		cmp.Regions = append(cmp.Regions, r)
		cmp.Score += float64(r.Area)
	}
	return cmp, nil
}

// threshold builds the binary mask of pixels whose absolute difference
// exceeds limit
func threshold(a, b *image.Gray, limit int) *image.Gray {
	ab, bb := a.Bounds(), b.Bounds()
	w, h := ab.Dx(), ab.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pa := int(a.GrayAt(ab.Min.X+x, ab.Min.Y+y).Y)
			pb := int(b.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y)
			diff := pa - pb
			if diff < 0 {
				diff = -diff
			}
			if diff > limit {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// dilate applies one pass of a 3x3 max filter
func dilate(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.Pix[y*src.Stride+x] == 0 {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					out.Pix[ny*out.Stride+nx] = 255
				}
			}
		}
	}
	return out
}

// regions labels 8-connected foreground areas of a binary mask
func regions(mask *image.Gray) []Region {
	w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
	seen := make([]bool, w*h)
	var out []Region
	var stack []int

	for start := 0; start < w*h; start++ {
		if seen[start] || mask.Pix[(start/w)*mask.Stride+start%w] == 0 {
			continue
		}

		seen[start] = true
		stack = append(stack[:0], start)
		r := Region{Bounds: image.Rect(start%w, start/w, start%w+1, start/w+1)}

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			r.Area++
			r.Bounds = r.Bounds.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					n := ny*w + nx
					if seen[n] || mask.Pix[ny*mask.Stride+nx] == 0 {
						continue
					}
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		out = append(out, r)
	}
	return out
}
