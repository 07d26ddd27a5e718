// candor-replay: replays recorded landmark frames into a running
// candor-server, creating a session, driving calibration and printing the
// metrics stream. Input is JSONL, one landmark frame per line.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/candormetrics/go-candor/pkg/landmark"
	"github.com/candormetrics/go-candor/pkg/protocol"
)

var (
	server    = flag.String("server", "localhost:8080", "candor-server host:port")
	file      = flag.String("file", "", "JSONL recording of landmark frames")
	fps       = flag.Float64("fps", 30, "replay rate when frames carry no timestamps")
	calibrate = flag.Bool("calibrate", true, "run calibration before analysis")
)

func main() {
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: candor-replay -file recording.jsonl [-server host:port]")
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		fatal("open recording: %v", err)
	}
	defer f.Close()

	sessionID, err := createSession(*server)
	if err != nil {
		fatal("create session: %v", err)
	}
	fmt.Printf("session %s\n", sessionID)
	defer endSession(*server, sessionID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	ingest, _, err := dialer.Dial(fmt.Sprintf("ws://%s/ws/ingest/%s", *server, sessionID), nil)
	if err != nil {
		fatal("dial ingest: %v", err)
	}
	defer ingest.Close()

	// Watch the metrics stream concurrently
	metrics, _, err := dialer.Dial(fmt.Sprintf("ws://%s/ws/metrics/%s", *server, sessionID), nil)
	if err != nil {
		fatal("dial metrics: %v", err)
	}
	defer metrics.Close()
	go watchMetrics(metrics)

	if *calibrate {
		if err := post(fmt.Sprintf("http://%s/api/sessions/%s/calibrate", *server, sessionID)); err != nil {
			fatal("start calibration: %v", err)
		}
		fmt.Println("calibrating...")
	}

	frameGap := time.Duration(float64(time.Second) / *fps)
	var lastTS int64
	sent := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var frame landmark.Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			fmt.Fprintf(os.Stderr, "skipping bad line: %v\n", err)
			continue
		}

		msg, err := protocol.NewFrameMessage(frame, nil)
		if err != nil {
			continue
		}
		raw, err := msg.Bytes()
		if err != nil {
			continue
		}
		if err := ingest.WriteMessage(websocket.TextMessage, raw); err != nil {
			fatal("send frame: %v", err)
		}
		sent++

		// Pace by recorded timestamps when available
		gap := frameGap
		if frame.TimestampMs > 0 && lastTS > 0 && frame.TimestampMs > lastTS {
			gap = time.Duration(frame.TimestampMs-lastTS) * time.Millisecond
		}
		if frame.TimestampMs > 0 {
			lastTS = frame.TimestampMs
		}
		time.Sleep(gap)
	}
	if err := scanner.Err(); err != nil {
		fatal("read recording: %v", err)
	}

	fmt.Printf("replayed %d frames\n", sent)
}

func watchMetrics(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeMetrics {
			continue
		}
		snap, err := msg.GetMetricsSnapshot()
		if err != nil {
			continue
		}
		fmt.Printf("stress=%d (%s) blink=%d/min bpm=%.1f truth=%.0f tells=%d\n",
			snap.StressScore, snap.StressLevel, snap.BlinkRate,
			snap.Bpm, snap.TruthMeter, len(snap.Tells))
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

func post(url string) error {
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
