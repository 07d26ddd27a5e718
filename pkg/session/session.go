// Package session ties the per-frame pipeline together: geometry analysis,
// event detection, calibration, stress scoring, tells and alerts, all owned
// by one goroutine per session. Frames and lifecycle commands arrive over
// channels; results leave through callbacks.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/candormetrics/go-candor/internal/log"
	"github.com/candormetrics/go-candor/pkg/alert"
	"github.com/candormetrics/go-candor/pkg/calibrate"
	"github.com/candormetrics/go-candor/pkg/detect"
	"github.com/candormetrics/go-candor/pkg/emotion"
	"github.com/candormetrics/go-candor/pkg/geometry"
	"github.com/candormetrics/go-candor/pkg/landmark"
	"github.com/candormetrics/go-candor/pkg/protocol"
	"github.com/candormetrics/go-candor/pkg/stress"
	"github.com/candormetrics/go-candor/pkg/tells"
)

// State is the session lifecycle phase.
type State string

const (
	StateStarted     State = "started"
	StateCalibrating State = "calibrating"
	StateAnalyzing   State = "analyzing"
	StateEnded       State = "ended"
)

// Config bundles the tunables of one session's pipeline.
type Config struct {
	Geometry    geometry.Config
	Detect      detect.Config
	Calibration calibrate.Config
	Alert       alert.Config

	// ClassifyTimeout bounds one emotion classification request.
	ClassifyTimeout time.Duration

	// FrameBuffer is the depth of the inbound frame channel. When the
	// pipeline falls behind, newer frames win and older ones drop.
	FrameBuffer int
}

// DefaultConfig returns the canonical pipeline settings.
func DefaultConfig() Config {
	return Config{
		Geometry:        geometry.DefaultConfig(),
		Detect:          detect.DefaultConfig(),
		Calibration:     calibrate.DefaultConfig(),
		Alert:           alert.DefaultConfig(),
		ClassifyTimeout: 5 * time.Second,
		FrameBuffer:     8,
	}
}

// Callbacks are the session's outward channel. Nil callbacks are skipped.
// They are invoked from the session goroutine and must not block.
type Callbacks struct {
	OnSnapshot    func(protocol.MetricsSnapshot)
	OnTell        func(protocol.TellEvent)
	OnAlert       func(protocol.AlertEvent)
	OnCalibration func(protocol.CalibrationProgress)
	OnState       func(protocol.SessionState)
}

type frameInput struct {
	frame landmark.Frame
	jpeg  []byte
}

type command int

const (
	cmdStartCalibration command = iota
	cmdCompleteCalibration
)

// Session is one independent analysis pipeline. All mutable pipeline state
// is confined to the run goroutine; the exported accessors read
// mutex-guarded copies maintained for request handlers.
type Session struct {
	ID string

	cfg       Config
	cb        Callbacks
	provider  emotion.Provider
	bpmOracle func() (float64, bool)

	analyzer *geometry.Analyzer
	detector *detect.Detector
	calib    *calibrate.Controller
	tells    *tells.Manager
	alerts   *alert.Dispatcher
	heart    *stress.Heart
	mailbox  *emotion.Mailbox

	frames   chan frameInput
	commands chan command
	done     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}

	mu        sync.RWMutex
	state     State
	lastSnap  protocol.MetricsSnapshot
	lastScore stress.Result
	baseline  calibrate.Baseline
}

// Option configures a Session.
type Option func(*Session)

// WithProvider sets the emotion classifier backend.
func WithProvider(p emotion.Provider) Option {
	return func(s *Session) { s.provider = p }
}

// WithBpmOracle sets an external resting heart-rate source consulted at
// calibration completion. Without one, a synthesized default is used.
func WithBpmOracle(fn func() (float64, bool)) Option {
	return func(s *Session) { s.bpmOracle = fn }
}

// WithCallbacks sets the outward event callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(s *Session) { s.cb = cb }
}

// New creates a session and starts its goroutine.
func New(id string, cfg Config, opts ...Option) *Session {
	s := &Session{
		ID:       id,
		cfg:      cfg,
		analyzer: geometry.NewAnalyzer(cfg.Geometry),
		detector: detect.New(cfg.Detect),
		calib:    calibrate.NewController(cfg.Calibration),
		tells:    tells.NewManager(),
		alerts:   alert.NewDispatcher(cfg.Alert),
		heart:    stress.NewHeart(),
		mailbox:  &emotion.Mailbox{},
		frames:   make(chan frameInput, cfg.FrameBuffer),
		commands: make(chan command, 4),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		state:    StateStarted,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Baseline returns the calibrated baseline; zero value before calibration.
func (s *Session) Baseline() calibrate.Baseline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline
}

// Snapshot returns the most recent metrics snapshot.
func (s *Session) Snapshot() protocol.MetricsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnap
}

// Tells returns the live tell list.
func (s *Session) Tells() []tells.Tell {
	return s.tells.Active()
}

// Feed delivers one landmark frame to the pipeline. When the pipeline is
// behind, the oldest queued frame is dropped so the newest always lands.
func (s *Session) Feed(frame landmark.Frame, jpeg []byte) {
	in := frameInput{frame: frame, jpeg: jpeg}
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.frames <- in:
	default:
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- in:
		default:
		}
	}
}

// StartCalibration begins the baseline-collection phase.
func (s *Session) StartCalibration() {
	select {
	case s.commands <- cmdStartCalibration:
	case <-s.done:
	}
}

// CompleteCalibration forces completion ahead of the timer.
func (s *Session) CompleteCalibration() {
	select {
	case s.commands <- cmdCompleteCalibration:
	case <-s.done:
	}
}

// Close ends the session: all timers stop and pipeline state is discarded.
// Safe to call more than once; blocks until the goroutine exits.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Session) run() {
	defer close(s.stopped)

	secTick := time.NewTicker(time.Second)
	defer secTick.Stop()
	calibTick := time.NewTicker(s.calib.TickInterval())
	defer calibTick.Stop()

	for {
		select {
		case <-s.done:
			s.setState(StateEnded)
			s.tells.Reset()
			s.alerts.Reset()
			return

		case cmd := <-s.commands:
			s.handleCommand(cmd)

		case in := <-s.frames:
			s.processFrame(in, time.Now())

		case <-calibTick.C:
			s.calibrationTick()

		case <-secTick.C:
			s.secondTick()
		}
	}
}

func (s *Session) handleCommand(cmd command) {
	switch cmd {
	case cmdStartCalibration:
		s.calib.Start(s.detector.HandTouchTotal())
		s.tells.Reset()
		s.alerts.Reset()
		s.setState(StateCalibrating)
		log.Info("calibration started", "session", s.ID)
	case cmdCompleteCalibration:
		if s.calib.State() == calibrate.StateCalibrating {
			s.completeCalibration()
		}
	}
}

func (s *Session) processFrame(in frameInput, now time.Time) {
	m := s.analyzer.Analyze(&in.frame)

	if s.calib.State() == calibrate.StateCalibrating && m.FaceDetected {
		s.calib.AddGaze(m.GazeShift)
	}

	if s.detector.ShouldPoll() {
		s.classify(in.jpeg)
	}

	snap := s.detector.Observe(m, now)
	if snap == nil {
		return
	}

	if v, fresh := s.mailbox.TakeNew(); fresh && s.calib.State() == calibrate.StateCalibrating {
		s.calib.AddEmotion(v)
	}

	if s.calib.State() != calibrate.StateCalibrated {
		return
	}
	s.analyze(snap, now)
}

// analyze runs one scoring cycle off an emitted detector snapshot.
func (s *Session) analyze(snap *detect.Snapshot, now time.Time) {
	baseline := s.calib.Baseline()
	result := stress.Score(stress.Input{
		BlinkRate:     snap.BlinkRate,
		Emotion:       s.mailbox.Latest(),
		HandOnFace:    snap.HandOnFace,
		LipCompressed: snap.LipCompressed,
		GazeShift:     snap.GazeShift,
		BpmDelta:      s.heart.Delta(),
	}, baseline)

	for _, trig := range result.Triggers {
		if t, ok := s.tells.Add(trig.Message, trig.Type); ok {
			s.emitTell(t)
		}
	}

	if a := s.alerts.Observe(result.Score, now); a != nil {
		s.emitAlert(*a)
	}

	out := protocol.MetricsSnapshot{
		SessionID:       s.ID,
		BlinkRate:       snap.BlinkRate,
		CycleBlinkCount: snap.CycleBlinkCount,
		BlinkTotal:      snap.BlinkTotal,
		HandTouchTotal:  snap.HandTouchTotal,
		HandOnFace:      snap.HandOnFace,
		LipCompressed:   snap.LipCompressed,
		FaceDetected:    snap.FaceDetected,
		FrameCount:      snap.FrameCount,
		GazeShift:       snap.GazeShift,
		Emotion:         s.mailbox.Latest(),
		StressScore:     result.Score,
		StressLevel:     result.Level,
		Bpm:             s.heart.Current(),
		TruthMeter:      s.tells.TruthMeter(),
		Tells:           s.tells.Active(),
	}

	s.mu.Lock()
	s.lastScore = result
	s.lastSnap = out
	s.mu.Unlock()

	if s.cb.OnSnapshot != nil {
		s.cb.OnSnapshot(out)
	}
}

// classify dispatches one fire-and-forget emotion classification. The
// frame loop never waits on the result; the mailbox merge is
// last-write-wins.
func (s *Session) classify(jpeg []byte) {
	if s.provider == nil || len(jpeg) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ClassifyTimeout)
		defer cancel()
		scores, err := s.provider.Classify(ctx, jpeg)
		if err != nil {
			// Keep the last-known vector; a tick must never die on a
			// classifier hiccup.
			log.Warn("emotion classification failed", "session", s.ID, "error", err)
			return
		}
		s.mailbox.Put(emotion.NewVector(scores))
	}()
}

func (s *Session) calibrationTick() {
	if s.calib.State() != calibrate.StateCalibrating {
		return
	}
	finished := s.calib.Tick()

	if s.cb.OnCalibration != nil {
		s.cb.OnCalibration(protocol.CalibrationProgress{
			SessionID: s.ID,
			State:     string(s.calib.State()),
			Progress:  s.calib.Progress(),
		})
	}
	if finished {
		s.completeCalibration()
	}
}

func (s *Session) completeCalibration() {
	var bpm *float64
	if s.bpmOracle != nil {
		if v, ok := s.bpmOracle(); ok {
			bpm = &v
		}
	}
	baseline := s.calib.Complete(s.detector.BlinkRate(), s.detector.HandTouchTotal(), bpm)
	s.heart.SetBaseline(baseline.Bpm)

	s.mu.Lock()
	s.baseline = baseline
	s.mu.Unlock()

	s.setState(StateAnalyzing)
	log.Info("calibration complete",
		"session", s.ID,
		"blink_rate", baseline.BlinkRatePerMinute,
		"dominant_emotion", baseline.DominantEmotion,
		"bpm", baseline.Bpm)
}

// secondTick drives the timer-based side effects: tell decay and the heart
// simulation. Both no-op until calibration completes.
func (s *Session) secondTick() {
	if s.calib.State() != calibrate.StateCalibrated {
		return
	}
	s.tells.Decay()

	s.mu.RLock()
	score := s.lastScore.Score
	s.mu.RUnlock()
	s.heart.Step(score)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	if s.cb.OnState != nil {
		s.cb.OnState(protocol.SessionState{SessionID: s.ID, State: string(st)})
	}
}

func (s *Session) emitTell(t tells.Tell) {
	if s.cb.OnTell != nil {
		s.cb.OnTell(protocol.TellEvent{SessionID: s.ID, Tell: t})
	}
}

func (s *Session) emitAlert(a alert.Alert) {
	if s.cb.OnAlert != nil {
		s.cb.OnAlert(protocol.AlertEvent{SessionID: s.ID, Alert: a})
	}
}
