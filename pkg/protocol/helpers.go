package protocol

import (
	"encoding/base64"

	"github.com/candormetrics/go-candor/pkg/landmark"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewFrameMessage creates a frame message, optionally carrying a face crop.
func NewFrameMessage(frame landmark.Frame, jpeg []byte) (*Message, error) {
	data := FrameData{Frame: frame}
	if len(jpeg) > 0 {
		data.Jpeg = base64.StdEncoding.EncodeToString(jpeg)
	}
	return NewMessage(TypeFrame, data)
}

// NewMetricsMessage creates a metrics snapshot message.
func NewMetricsMessage(snap MetricsSnapshot) (*Message, error) {
	return NewMessage(TypeMetrics, snap)
}

// NewTellMessage creates a tell event message.
func NewTellMessage(ev TellEvent) (*Message, error) {
	return NewMessage(TypeTell, ev)
}

// NewAlertMessage creates an alert event message.
func NewAlertMessage(ev AlertEvent) (*Message, error) {
	return NewMessage(TypeAlert, ev)
}

// NewCalibrationMessage creates a calibration progress message.
func NewCalibrationMessage(p CalibrationProgress) (*Message, error) {
	return NewMessage(TypeCalibration, p)
}

// NewSessionMessage creates a session state message.
func NewSessionMessage(s SessionState) (*Message, error) {
	return NewMessage(TypeSession, s)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeJpeg decodes the base64 face crop, or returns nil when absent.
func (f *FrameData) DecodeJpeg() ([]byte, error) {
	if f.Jpeg == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(f.Jpeg)
}

// GetMetricsSnapshot extracts a metrics snapshot from a message
func (m *Message) GetMetricsSnapshot() (*MetricsSnapshot, error) {
	var data MetricsSnapshot
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTellEvent extracts a tell event from a message
func (m *Message) GetTellEvent() (*TellEvent, error) {
	var data TellEvent
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAlertEvent extracts an alert event from a message
func (m *Message) GetAlertEvent() (*AlertEvent, error) {
	var data AlertEvent
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCalibrationProgress extracts calibration progress from a message
func (m *Message) GetCalibrationProgress() (*CalibrationProgress, error) {
	var data CalibrationProgress
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionState extracts session state from a message
func (m *Message) GetSessionState() (*SessionState, error) {
	var data SessionState
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
