package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Cyclone1070/devrun/internal/config"
)

func TestDefaultTimeout(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		command string
		want    time.Duration
	}{
		{"npm install", 300 * time.Second},
		{"pip install -U requests", 300 * time.Second},
		{"brew upgrade", 300 * time.Second},
		{"npm run build", 180 * time.Second},
		{"tsc --build", 180 * time.Second},
		{"javac -d out Main.java && echo compile", 180 * time.Second},
		{"go test ./...", 180 * time.Second},
		{"pytest -q", 180 * time.Second},
		{"ls -la", 60 * time.Second},
		{"NPM INSTALL", 300 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultTimeout(tt.command, cfg))
		})
	}
}

func TestDefaultTimeout_UsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Exec.DefaultTimeoutMs = 1500

	assert.Equal(t, 1500*time.Millisecond, DefaultTimeout("echo hi", cfg))
}
