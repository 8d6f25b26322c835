package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"keywatch/internal/service/capture"
)

// Window shows annotated frames in a desktop window; 'q' quits.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a preview window.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show draws the overlay, displays the frame and polls the keyboard.
func (w *Window) Show(f *Frame, overlay capture.Overlay) (bool, error) {
	drawErr := DrawOverlay(&f.Mat, overlay)

	if err := w.window.IMShow(f.Mat); err != nil {
		return false, fmt.Errorf("failed to show frame: %w", err)
	}
	key := w.window.WaitKey(1)
	return key == 'q' || key == 'Q', drawErr
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Headless draws the overlay for viewers without opening a window. It never
// requests a quit; the process is stopped by signal.
type Headless struct{}

// Show draws the overlay only.
func (Headless) Show(f *Frame, overlay capture.Overlay) (bool, error) {
	return false, DrawOverlay(&f.Mat, overlay)
}

// Close is a no-op.
func (Headless) Close() error {
	return nil
}
