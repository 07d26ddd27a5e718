// candor-capture: grabs webcam frames, crops the face and feeds the JPEGs
// into a candor-server session so the emotion classifier path runs against
// live video. Landmarks still come from the upstream inference oracle; this
// tool only supplies the image side.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/candormetrics/go-candor/pkg/capture"
	"github.com/candormetrics/go-candor/pkg/landmark"
	"github.com/candormetrics/go-candor/pkg/protocol"
)

var (
	server    = flag.String("server", "localhost:8080", "candor-server host:port")
	sessionID = flag.String("session", "", "existing session ID (created when empty)")
	device    = flag.Int("device", 0, "capture device index")
	model     = flag.String("model", "", "YuNet face model path (no cropping when empty)")
	interval  = flag.Duration("interval", time.Second, "capture interval")
)

func main() {
	flag.Parse()

	cfg := capture.DefaultConfig()
	cfg.DeviceID = *device

	cam, err := capture.NewWebcam(cfg)
	if err != nil {
		fatal("open webcam: %v", err)
	}
	defer cam.Close()

	var cropper *capture.FaceCropper
	if *model != "" {
		faceCfg := capture.DefaultFaceConfig()
		faceCfg.ModelPath = *model
		cropper, err = capture.NewFaceCropper(faceCfg)
		if err != nil {
			fatal("face cropper: %v", err)
		}
		defer cropper.Close()
	}

	id := *sessionID
	created := false
	if id == "" {
		id, err = createSession(*server)
		if err != nil {
			fatal("create session: %v", err)
		}
		created = true
		fmt.Printf("session %s\n", id)
	}
	if created {
		defer endSession(*server, id)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(fmt.Sprintf("ws://%s/ws/ingest/%s", *server, id), nil)
	if err != nil {
		fatal("dial ingest: %v", err)
	}
	defer conn.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-quit:
			fmt.Printf("\nsent %d frames\n", sent)
			return
		case <-ticker.C:
		}

		jpeg, err := cam.CaptureFrame()
		if err != nil {
			fmt.Fprintf(os.Stderr, "capture: %v\n", err)
			continue
		}

		if cropper != nil {
			crop, err := cropper.Crop(jpeg)
			if err == nil {
				jpeg = crop
			}
		}

		frame := landmark.Frame{TimestampMs: time.Now().UnixMilli()}
		msg, err := protocol.NewFrameMessage(frame, jpeg)
		if err != nil {
			continue
		}
		raw, err := msg.Bytes()
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			fatal("send frame: %v", err)
		}
		sent++
	}
}

func createSession(host string) (string, error) {
	resp, err := http.Post(fmt.Sprintf("http://%s/api/sessions", host), "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.SessionID, nil
}

func endSession(host, id string) {
	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("http://%s/api/sessions/%s", host, id), nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
