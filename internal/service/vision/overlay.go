package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"keywatch/internal/service/capture"
)

const (
	fontFace      = gocv.FontHersheySimplex
	fontScale     = 0.5
	fontThickness = 2
	boxThickness  = 2
)

var (
	occupiedColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	emptyColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	textColor     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// DrawOverlay draws every zone with its state text, its label above it and
// the countdown just below the centre.
func DrawOverlay(mat *gocv.Mat, overlay capture.Overlay) error {
	countdown := fmt.Sprintf("%ds", overlay.Countdown)

	for i, z := range overlay.Zones {
		occupied := i < len(overlay.Occupancy) && overlay.Occupancy[i]

		boxColor, status := emptyColor, "Keys Not Available"
		if occupied {
			boxColor, status = occupiedColor, "Keys Available"
		}

		if err := gocv.Rectangle(mat, z.Rect, boxColor, boxThickness); err != nil {
			return fmt.Errorf("failed to draw zone %d: %w", i, err)
		}

		centerY := z.Rect.Min.Y + (z.Rect.Dy()+textHeight(status))/2
		if err := putCentered(mat, status, z.Rect, centerY); err != nil {
			return err
		}
		if err := putCentered(mat, z.Label, z.Rect, z.Rect.Min.Y-10); err != nil {
			return err
		}
		countdownY := z.Rect.Min.Y + (z.Rect.Dy()+textHeight(countdown))/2 + 15
		if err := putCentered(mat, countdown, z.Rect, countdownY); err != nil {
			return err
		}
	}
	return nil
}

func textHeight(text string) int {
	return gocv.GetTextSize(text, fontFace, fontScale, fontThickness).Y
}

// putCentered draws text horizontally centred on rect with its baseline at y.
func putCentered(mat *gocv.Mat, text string, rect image.Rectangle, y int) error {
	size := gocv.GetTextSize(text, fontFace, fontScale, fontThickness)
	x := rect.Min.X + (rect.Dx()-size.X)/2
	if err := gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, fontThickness); err != nil {
		return fmt.Errorf("failed to draw text %q: %w", text, err)
	}
	return nil
}
