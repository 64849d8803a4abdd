package utils

import (
	"os"
	"time"

	exiflib "github.com/rwcarlsen/goexif/exif"
)

// CaptureTime returns the EXIF capture timestamp of a frame, if it carries one.
// PNG frames from most camera pipelines carry none.
func CaptureTime(path string) (time.Time, bool) {
	x, err := decode(path)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func decode(path string) (*exiflib.Exif, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return exiflib.Decode(f)
}
