// Package capture provides JPEG frame sources for the emotion classifier
// path. The webcam provider wraps an OpenCV capture device; the face cropper
// narrows frames to the detected face before classification.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the device produced an empty frame.
var ErrNoFrame = errors.New("capture: no frame available")

// Provider is the interface for JPEG frame sources.
type Provider interface {
	// CaptureFrame grabs one frame as JPEG data.
	CaptureFrame() ([]byte, error)

	// Close releases the underlying device.
	Close() error
}

// Config holds webcam capture settings.
type Config struct {
	DeviceID int // Capture device index (default 0)
	Width    int // Requested frame width
	Height   int // Requested frame height
}

// DefaultConfig returns defaults suitable for a laptop webcam.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    640,
		Height:   480,
	}
}

// Webcam captures frames from a local video device via OpenCV.
type Webcam struct {
	cam *gocv.VideoCapture
	img gocv.Mat
	mu  sync.Mutex // Protects the device and the reused Mat
}

// NewWebcam opens the capture device.
func NewWebcam(cfg Config) (*Webcam, error) {
	cam, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", cfg.DeviceID, err)
	}

	if cfg.Width > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		cam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	return &Webcam{
		cam: cam,
		img: gocv.NewMat(),
	}, nil
}

// CaptureFrame grabs one frame and encodes it as JPEG.
func (w *Webcam) CaptureFrame() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ok := w.cam.Read(&w.img); !ok {
		return nil, ErrNoFrame
	}
	if w.img.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, w.img)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, copy out
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the device and the frame buffer.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.img.Close()
	return w.cam.Close()
}
