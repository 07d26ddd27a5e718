package session

import (
	"context"
	"testing"
	"time"

	"github.com/candormetrics/go-candor/pkg/emotion"
	"github.com/candormetrics/go-candor/pkg/landmark"
	"github.com/candormetrics/go-candor/pkg/protocol"
)

// testFrame builds a refined mesh reading as a calm face: eyes open, lips
// relaxed, gaze centered, no hands.
func testFrame() landmark.Frame {
	face := make(landmark.Face, landmark.FaceMeshRefined)
	for i := range face {
		face[i] = landmark.Point{X: 0.5, Y: 0.9}
	}

	face[33] = landmark.Point{X: 0.25, Y: 0.30}
	face[133] = landmark.Point{X: 0.35, Y: 0.30}
	face[159] = landmark.Point{X: 0.30, Y: 0.28}
	face[145] = landmark.Point{X: 0.30, Y: 0.32}

	face[362] = landmark.Point{X: 0.65, Y: 0.30}
	face[263] = landmark.Point{X: 0.75, Y: 0.30}
	face[386] = landmark.Point{X: 0.70, Y: 0.28}
	face[374] = landmark.Point{X: 0.70, Y: 0.32}

	face[469] = landmark.Point{X: 0.30, Y: 0.30}
	face[471] = landmark.Point{X: 0.30, Y: 0.30}
	face[474] = landmark.Point{X: 0.70, Y: 0.30}
	face[476] = landmark.Point{X: 0.70, Y: 0.30}

	face[61] = landmark.Point{X: 0.40, Y: 0.60}
	face[291] = landmark.Point{X: 0.60, Y: 0.60}
	face[0] = landmark.Point{X: 0.50, Y: 0.55}
	face[17] = landmark.Point{X: 0.50, Y: 0.65}

	return landmark.Frame{Face: face, TimestampMs: time.Now().UnixMilli()}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Detect.EmitEvery = 1
	cfg.Calibration.Duration = time.Second
	return cfg
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session never reached state %s, stuck at %s", want, s.State())
}

func TestSessionLifecycle(t *testing.T) {
	s := New("s1", fastConfig())
	defer s.Close()

	if s.State() != StateStarted {
		t.Fatalf("initial state: got %s, want %s", s.State(), StateStarted)
	}

	s.StartCalibration()
	waitState(t, s, StateCalibrating)

	s.CompleteCalibration()
	waitState(t, s, StateAnalyzing)

	b := s.Baseline()
	if !b.Calibrated {
		t.Error("baseline should be calibrated after completion")
	}
	if b.BlinkRatePerMinute == 0 {
		t.Error("baseline blink rate should carry the fallback, not 0")
	}
	if b.Bpm == 0 {
		t.Error("baseline bpm should carry the jittered default, not 0")
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := New("s1", fastConfig())
	s.Close()
	s.Close()

	// Feeding a closed session must not block or panic
	s.Feed(testFrame(), nil)
}

func TestSessionEmitsSnapshots(t *testing.T) {
	snaps := make(chan protocol.MetricsSnapshot, 64)

	s := New("s1", fastConfig(), WithCallbacks(Callbacks{
		OnSnapshot: func(snap protocol.MetricsSnapshot) {
			select {
			case snaps <- snap:
			default:
			}
		},
	}))
	defer s.Close()

	s.StartCalibration()
	waitState(t, s, StateCalibrating)
	s.CompleteCalibration()
	waitState(t, s, StateAnalyzing)

	deadline := time.After(2 * time.Second)
	go func() {
		for i := 0; i < 200; i++ {
			s.Feed(testFrame(), nil)
			time.Sleep(2 * time.Millisecond)
		}
	}()

	select {
	case snap := <-snaps:
		if snap.SessionID != "s1" {
			t.Errorf("snapshot session: got %s, want s1", snap.SessionID)
		}
		if !snap.FaceDetected {
			t.Error("snapshot should report the detected face")
		}
		if snap.Bpm == 0 {
			t.Error("snapshot bpm should be anchored after calibration")
		}
	case <-deadline:
		t.Fatal("no snapshot emitted")
	}
}

func TestSessionStaringProducesTell(t *testing.T) {
	tellCh := make(chan protocol.TellEvent, 8)

	s := New("s1", fastConfig(), WithCallbacks(Callbacks{
		OnTell: func(ev protocol.TellEvent) {
			select {
			case tellCh <- ev:
			default:
			}
		},
	}))
	defer s.Close()

	s.StartCalibration()
	waitState(t, s, StateCalibrating)
	s.CompleteCalibration()
	waitState(t, s, StateAnalyzing)

	// Zero blinks against the 15/min fallback baseline reads as staring
	deadline := time.After(2 * time.Second)
	go func() {
		for i := 0; i < 200; i++ {
			s.Feed(testFrame(), nil)
			time.Sleep(2 * time.Millisecond)
		}
	}()

	select {
	case ev := <-tellCh:
		if ev.Tell.Type != "blink" {
			t.Errorf("tell type: got %s, want blink", ev.Tell.Type)
		}
		if ev.SessionID != "s1" {
			t.Errorf("tell session: got %s, want s1", ev.SessionID)
		}
	case <-deadline:
		t.Fatal("no tell emitted for staring")
	}
}

func TestSessionAlertOnExtremeSignals(t *testing.T) {
	alertCh := make(chan protocol.AlertEvent, 8)

	provider := &emotion.Mock{
		ClassifyFunc: func(ctx context.Context, jpeg []byte) ([]emotion.Scored, error) {
			return []emotion.Scored{
				{Label: emotion.Fear, Score: 30},
				{Label: emotion.Angry, Score: 25},
				{Label: emotion.Disgust, Score: 25},
				{Label: emotion.Sad, Score: 20},
			}, nil
		},
	}

	s := New("s1", fastConfig(),
		WithProvider(provider),
		WithCallbacks(Callbacks{
			OnAlert: func(ev protocol.AlertEvent) {
				select {
				case alertCh <- ev:
				default:
				}
			},
		}))
	defer s.Close()

	s.StartCalibration()
	waitState(t, s, StateCalibrating)
	s.CompleteCalibration()
	waitState(t, s, StateAnalyzing)

	jpeg := []byte{0xFF, 0xD8}
	deadline := time.After(3 * time.Second)
	go func() {
		for i := 0; i < 400; i++ {
			s.Feed(testFrame(), jpeg)
			time.Sleep(2 * time.Millisecond)
		}
	}()

	select {
	case ev := <-alertCh:
		if ev.Alert.Score <= 80 {
			t.Errorf("alert score: got %d, want > 80", ev.Alert.Score)
		}
	case <-deadline:
		t.Fatal("no alert despite saturated stress signals")
	}

	if provider.Calls() == 0 {
		t.Error("classifier was never polled")
	}
}

func TestSessionCalibrationProgress(t *testing.T) {
	progress := make(chan protocol.CalibrationProgress, 128)

	cfg := fastConfig()
	cfg.Calibration.Duration = 200 * time.Millisecond

	s := New("s1", cfg, WithCallbacks(Callbacks{
		OnCalibration: func(p protocol.CalibrationProgress) {
			select {
			case progress <- p:
			default:
			}
		},
	}))
	defer s.Close()

	s.StartCalibration()

	// The run must complete on its own through the tick timer
	waitState(t, s, StateAnalyzing)

	var last protocol.CalibrationProgress
	count := 0
	for {
		select {
		case p := <-progress:
			last = p
			count++
			continue
		default:
		}
		break
	}
	if count == 0 {
		t.Fatal("no progress callbacks fired")
	}
	if last.Progress != 100 {
		t.Errorf("final progress: got %d, want 100", last.Progress)
	}
}
