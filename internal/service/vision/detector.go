package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"keywatch/internal/config"
	"keywatch/internal/model"
)

// ColorDetector finds blobs whose HSV colour lies inside a fixed range.
// It keeps scratch Mats between calls and is not safe for concurrent use.
type ColorDetector struct {
	lower   gocv.Scalar
	upper   gocv.Scalar
	minArea float64
	hsv     gocv.Mat
	mask    gocv.Mat
}

// NewColorDetector builds a detector from the configured HSV range.
func NewColorDetector(cfg *config.Config) *ColorDetector {
	return &ColorDetector{
		lower:   gocv.NewScalar(cfg.HSVLower[0], cfg.HSVLower[1], cfg.HSVLower[2], 0),
		upper:   gocv.NewScalar(cfg.HSVUpper[0], cfg.HSVUpper[1], cfg.HSVUpper[2], 0),
		minArea: cfg.MinContourArea,
		hsv:     gocv.NewMat(),
		mask:    gocv.NewMat(),
	}
}

// Detect returns the bounding box of every external contour of the colour
// mask. Contours smaller than the minimum area are ignored.
func (d *ColorDetector) Detect(f *Frame) ([]model.Region, error) {
	if f.Mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	if err := gocv.CvtColor(f.Mat, &d.hsv, gocv.ColorBGRToHSV); err != nil {
		return nil, fmt.Errorf("failed to convert frame to HSV: %w", err)
	}
	if err := gocv.InRangeWithScalar(d.hsv, d.lower, d.upper, &d.mask); err != nil {
		return nil, fmt.Errorf("failed to threshold frame: %w", err)
	}

	contours := gocv.FindContours(d.mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]model.Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if d.minArea > 0 && gocv.ContourArea(contour) < d.minArea {
			continue
		}
		regions = append(regions, model.Region{Rect: gocv.BoundingRect(contour)})
	}
	return regions, nil
}

// Close releases the scratch Mats.
func (d *ColorDetector) Close() error {
	d.hsv.Close()
	d.mask.Close()
	return nil
}
