package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFileSystem implements FileSystem for testing.
type MockFileSystem struct {
	HomeDir     string
	HomeDirErr  error
	Files       map[string][]byte
	ReadFileErr error
}

func (m *MockFileSystem) UserHomeDir() (string, error) {
	return m.HomeDir, m.HomeDirErr
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	if m.ReadFileErr != nil {
		return nil, m.ReadFileErr
	}
	data, ok := m.Files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

const configPath = "/home/user/.config/devrun/config.json"

// --- HAPPY PATH TESTS ---

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), cfg.Exec.MaxStdoutBytes)
	assert.Equal(t, 5000, cfg.Exec.GracefulShutdownMs)
	assert.True(t, cfg.Policy.RejectShellMetacharacters)
}

func TestLoad_PartialOverride_MergesWithDefaults(t *testing.T) {
	configJSON := `{"exec": {"default_timeout_ms": 1000}, "servers": {"stop_grace_ms": 500}}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}
	loader := NewLoaderWithFS(fs)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Exec.DefaultTimeoutMs)   // Overridden
	assert.Equal(t, 500, cfg.Servers.StopGraceMs)      // Overridden
	assert.Equal(t, 300000, cfg.Exec.InstallTimeoutMs) // Default
	assert.Equal(t, "/bin/sh", cfg.Exec.Shell)         // Default

	assert.Contains(t, cfg.Servers.PortLookupCommand, "tcp:{port}")
}

func TestLoad_ExplicitFalse_OverridesDefault(t *testing.T) {
	configJSON := `{"policy": {"reject_shell_metacharacters": false}}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	require.NoError(t, err)
	assert.False(t, cfg.Policy.RejectShellMetacharacters)
}

func TestLoad_ArrayOverride_ReplacesDefault(t *testing.T) {
	configJSON := `{"servers": {"port_lookup_command": ["fuser", "{port}/tcp"]}}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"fuser", "{port}/tcp"}, cfg.Servers.PortLookupCommand)
}

func TestLoadFrom_ExplicitPath(t *testing.T) {
	fs := &MockFileSystem{
		Files: map[string][]byte{"/etc/devrun.json": []byte(`{"log": {"level": "debug"}}`)},
	}

	cfg, err := NewLoaderWithFS(fs).LoadFrom("/etc/devrun.json")

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// --- UNHAPPY PATH TESTS ---

func TestLoad_MalformedJSON_ReturnsError(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(`{invalid json`)},
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoad_PermissionDenied_ReturnsError(t *testing.T) {
	fs := &MockFileSystem{
		HomeDir:     "/home/user",
		ReadFileErr: os.ErrPermission,
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestLoad_HomeDirError_ReturnsDefaults(t *testing.T) {
	fs := &MockFileSystem{
		HomeDirErr: errors.New("homeless"),
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	require.NoError(t, err)
	assert.Equal(t, 60000, cfg.Exec.DefaultTimeoutMs)
}

func TestLoad_NegativeValues_Rejected(t *testing.T) {
	configJSON := `{"exec": {"graceful_shutdown_ms": -1}}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_UnknownFields_Ignored(t *testing.T) {
	configJSON := `{"exec": {"shell": "/bin/bash"}, "unknown_field": "ignored"}`
	fs := &MockFileSystem{
		HomeDir: "/home/user",
		Files:   map[string][]byte{configPath: []byte(configJSON)},
	}

	cfg, err := NewLoaderWithFS(fs).Load()

	require.NoError(t, err)
	assert.Equal(t, "/bin/bash", cfg.Exec.Shell)
}
