package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		verbose bool
		quiet   bool
		want    zapcore.Level
	}{
		{"configured", "warn", false, false, zapcore.WarnLevel},
		{"verbose", "info", true, false, zapcore.DebugLevel},
		{"quiet wins", "debug", true, true, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.verbose, tt.quiet)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if got := logger.Level(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", false, false); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
