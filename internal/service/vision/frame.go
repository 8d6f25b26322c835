// Package vision adapts OpenCV (gocv) to the capture loop: camera frames,
// HSV colour detection, overlay drawing and the preview window.
package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Frame wraps a BGR image. The camera reuses the same Frame for every read.
type Frame struct {
	Mat gocv.Mat
}

// Size returns the frame width and height in pixels.
func (f *Frame) Size() (int, int) {
	return f.Mat.Cols(), f.Mat.Rows()
}

// EncodeJPEG encodes the frame as JPEG bytes owned by the caller.
func EncodeJPEG(f *Frame) ([]byte, error) {
	if f.Mat.Empty() {
		return nil, fmt.Errorf("cannot encode an empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", f.Mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
