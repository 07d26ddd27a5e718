package capture

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFace is returned when no face clears the confidence threshold.
var ErrNoFace = errors.New("capture: no face detected")

// FaceConfig holds face detector settings.
type FaceConfig struct {
	ModelPath        string  // Path to the YuNet ONNX model
	ConfidenceThresh float64 // Minimum detection confidence (default 0.6)
	Margin           float64 // Crop margin as a fraction of box size (default 0.2)
}

// DefaultFaceConfig returns production defaults for YuNet.
func DefaultFaceConfig() FaceConfig {
	return FaceConfig{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.6,
		Margin:           0.2,
	}
}

// FaceCropper narrows JPEG frames to the most confident detected face so the
// emotion classifier never sees background.
type FaceCropper struct {
	detector gocv.FaceDetectorYN
	config   FaceConfig
	mu       sync.Mutex // Protects inference
}

// NewFaceCropper creates a YuNet-backed face cropper.
func NewFaceCropper(cfg FaceConfig) (*FaceCropper, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",                 // No config file needed for ONNX
		image.Pt(320, 320), // Initial input size, updated per-image
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &FaceCropper{
		detector: detector,
		config:   cfg,
	}, nil
}

// Crop returns a JPEG of the best face in the frame, with the configured
// margin around the detector's bounding box.
func (f *FaceCropper) Crop(jpeg []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	f.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	f.detector.Detect(img, &faces)

	best := -1
	bestScore := float32(0)
	for r := 0; r < faces.Rows(); r++ {
		// YuNet rows: 0-3 box, 4-13 landmarks, 14 score
		if score := faces.GetFloatAt(r, 14); score > bestScore {
			bestScore = score
			best = r
		}
	}
	if best < 0 {
		return nil, ErrNoFace
	}

	x := float64(faces.GetFloatAt(best, 0))
	y := float64(faces.GetFloatAt(best, 1))
	w := float64(faces.GetFloatAt(best, 2))
	h := float64(faces.GetFloatAt(best, 3))

	mx := w * f.config.Margin
	my := h * f.config.Margin

	rect := image.Rect(
		clampInt(int(x-mx), 0, img.Cols()),
		clampInt(int(y-my), 0, img.Rows()),
		clampInt(int(x+w+mx), 0, img.Cols()),
		clampInt(int(y+h+my), 0, img.Rows()),
	)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, ErrNoFace
	}

	crop := img.Region(rect)
	defer crop.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, crop)
	if err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the detector resources.
func (f *FaceCropper) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detector.Close()
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
