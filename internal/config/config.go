// Package config provides configuration helpers for go-candor commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default server configuration.
const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"
)

// Port returns the HTTP port from the PORT env var or the default.
func Port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// LogLevel returns the log level from LOG_LEVEL or the default.
func LogLevel() string {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		return l
	}
	return DefaultLogLevel
}

// EmotionEndpoint returns the emotion-classifier service URL from
// EMOTION_ENDPOINT. Empty means no classifier is wired and the pipeline
// runs on geometry alone.
func EmotionEndpoint() string {
	return os.Getenv("EMOTION_ENDPOINT")
}

// CalibrationDuration returns the calibration run length from
// CALIBRATION_SECONDS, falling back to the given default.
func CalibrationDuration(fallback time.Duration) time.Duration {
	raw := os.Getenv("CALIBRATION_SECONDS")
	if raw == "" {
		return fallback
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// BlinkThreshold returns the EAR blink threshold from BLINK_THRESHOLD,
// falling back to the given default.
func BlinkThreshold(fallback float64) float64 {
	raw := os.Getenv("BLINK_THRESHOLD")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v >= 1 {
		return fallback
	}
	return v
}
