package vision

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"keywatch/internal/config"
	"keywatch/internal/logger"
	"keywatch/internal/service/capture"
)

// Camera reads frames from a local video device.
type Camera struct {
	device  int
	capture *gocv.VideoCapture
	frame   *Frame
	logger  *logger.Logger

	mu     sync.Mutex
	closed bool
}

// OpenCamera opens the configured device, requests the configured resolution
// and discards frames for the warm-up period. Failure here is fatal for the
// process.
func OpenCamera(cfg *config.Config, logger *logger.Logger) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(cfg.CameraDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", cfg.CameraDevice, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", cfg.CameraDevice)
	}

	if cfg.FrameWidth > 0 && cfg.FrameHeight > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))
	}

	c := &Camera{
		device:  cfg.CameraDevice,
		capture: vc,
		frame:   &Frame{Mat: gocv.NewMat()},
		logger:  logger,
	}

	c.warmUp(cfg.CameraWarmup)
	logger.Info("📷 Camera %d opened", cfg.CameraDevice)
	return c, nil
}

// warmUp lets auto exposure settle before frames are used.
func (c *Camera) warmUp(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !c.capture.Read(&c.frame.Mat) {
			time.Sleep(20 * time.Millisecond)
		}
	}
}

// Next reads the next frame into the shared buffer. A failed or empty read is
// reported as capture.ErrFrameUnavailable.
func (c *Camera) Next() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, capture.ErrSourceClosed
	}
	if ok := c.capture.Read(&c.frame.Mat); !ok {
		return nil, fmt.Errorf("camera %d read failed: %w", c.device, capture.ErrFrameUnavailable)
	}
	if c.frame.Mat.Empty() {
		return nil, fmt.Errorf("camera %d returned an empty frame: %w", c.device, capture.ErrFrameUnavailable)
	}
	return c.frame, nil
}

// Close releases the device and the frame buffer. Safe to call twice.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.frame.Mat.Close()
	if err := c.capture.Close(); err != nil {
		return fmt.Errorf("failed to close camera %d: %w", c.device, err)
	}
	c.logger.Info("📷 Camera %d released", c.device)
	return nil
}
