// Package protocol defines the WebSocket message types exchanged between
// the analysis core and its clients: landmark frames inbound, metric
// snapshots and discrete tell/alert events outbound.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/candormetrics/go-candor/pkg/alert"
	"github.com/candormetrics/go-candor/pkg/emotion"
	"github.com/candormetrics/go-candor/pkg/landmark"
	"github.com/candormetrics/go-candor/pkg/stress"
	"github.com/candormetrics/go-candor/pkg/tells"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Core messages
	TypeFrame MessageType = "frame" // Landmark frame

	// Core → Client messages
	TypeMetrics     MessageType = "metrics"     // Periodic metrics snapshot
	TypeTell        MessageType = "tell"        // New behavioral indicator
	TypeAlert       MessageType = "alert"       // High-stress alert
	TypeCalibration MessageType = "calibration" // Calibration progress
	TypeSession     MessageType = "session"     // Session state change

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Client → Core Message Types
// =============================================================================

// FrameData carries one landmark frame from the upstream inference oracle.
type FrameData struct {
	Frame landmark.Frame `json:"frame"`

	// Jpeg optionally carries the cropped face image for emotion
	// classification, base64 encoded.
	Jpeg string `json:"jpeg,omitempty"`
}

// =============================================================================
// Core → Client Message Types
// =============================================================================

// MetricsSnapshot is the periodic aggregated state push. Every field is
// always present so clients never probe for optional keys.
type MetricsSnapshot struct {
	SessionID string `json:"session_id"`

	BlinkRate       int  `json:"blink_rate"`
	CycleBlinkCount int  `json:"cycle_blink_count"`
	BlinkTotal      int  `json:"blink_total"`
	HandTouchTotal  int  `json:"hand_touch_total"`
	HandOnFace      bool `json:"hand_on_face"`
	LipCompressed   bool `json:"lip_compressed"`
	FaceDetected    bool `json:"face_detected"`
	FrameCount      int  `json:"frame_count"`

	GazeShift float64 `json:"gaze_shift"`

	Emotion emotion.Vector `json:"emotion"`

	StressScore int          `json:"stress_score"`
	StressLevel stress.Level `json:"stress_level"`
	Bpm         float64      `json:"bpm"`
	TruthMeter  float64      `json:"truth_meter"`

	Tells []tells.Tell `json:"tells"`
}

// TellEvent announces a newly created tell.
type TellEvent struct {
	SessionID string     `json:"session_id"`
	Tell      tells.Tell `json:"tell"`
}

// AlertEvent announces a high-stress alert.
type AlertEvent struct {
	SessionID string      `json:"session_id"`
	Alert     alert.Alert `json:"alert"`
}

// CalibrationProgress reports the baseline-collection phase.
type CalibrationProgress struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Progress  int    `json:"progress"` // percent
}

// SessionState announces lifecycle transitions.
type SessionState struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"` // "started", "calibrating", "analyzing", "ended"
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
