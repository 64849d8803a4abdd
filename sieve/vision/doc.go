// Package vision holds the pixel-level collaborators of a classification run:
// loading frames from disk, reducing them to a comparable grayscale
// representation and scoring how much two representations differ.
//
// The change detector follows the classic frame-differencing recipe: absolute
// difference, binary threshold, dilation, then connected regions whose area
// is at least the requested minimum. The score is the summed area of the
// kept regions, so it grows with image size and is not normalised.
package vision
