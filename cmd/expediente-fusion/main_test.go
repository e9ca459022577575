package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/a3tai/mcp-expediente-fusion/internal/config"
)

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()
	version = "1.2.3"
	buildTime = "2025-05-14_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	for _, expected := range []string{
		"MCP Expediente Fusion",
		"Version: 1.2.3",
		"Build Time: 2025-05-14_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing %q\nActual output:\n%s", expected, output)
		}
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		level    string
		wantLogs bool
	}{
		{"stdio discards", "stdio", "info", false},
		{"stdio debug logs", "stdio", "debug", true},
		{"server logs", "server", "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.level

			var buf bytes.Buffer
			newLogger(cfg, &buf).Info("case processed", "case_id", "c-1")

			if got := buf.Len() > 0; got != tt.wantLogs {
				t.Errorf("wrote logs = %v, want %v (output %q)", got, tt.wantLogs, buf.String())
			}
			if tt.wantLogs && !strings.Contains(buf.String(), "case_id=c-1") {
				t.Errorf("unexpected log line: %q", buf.String())
			}
		})
	}
}
