package main

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"error", LogLevelError, true},
		{"WARN", LogLevelWarn, true},
		{"warning", LogLevelWarn, true},
		{"Info", LogLevelInfo, true},
		{"debug", LogLevelDebug, true},
		{"verbose", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("parseLogLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("parseLogLevel(%q) accepted", tt.in)
		}
	}
}
