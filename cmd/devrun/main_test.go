package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/devrun/internal/tool/policy"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the command tree with an isolated config file and the
// project directory set to a fresh temp dir, unless args override them.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX processes")
	}
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"exec": {"ensure_docker": false}}`), 0o644))

	full := append([]string{"--config", cfgPath}, args...)
	if !containsFlag(args, "-C") {
		full = append([]string{"-C", t.TempDir()}, full...)
	}

	var out, errOut bytes.Buffer
	cmd := newApp()
	cmd.SetArgs(full)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// --- HAPPY PATH TESTS ---

func TestExec_StreamsOutput(t *testing.T) {
	res := runCLI(t, "", "exec", "--", "echo", "hello world")

	require.NoError(t, res.err)
	assert.Equal(t, "hello world\n", res.stdout)
}

func TestExec_SingleArgIsCommandLine(t *testing.T) {
	res := runCLI(t, "", "exec", "echo one two")

	require.NoError(t, res.err)
	assert.Equal(t, "one two\n", res.stdout)
}

func TestExec_JSON(t *testing.T) {
	res := runCLI(t, "", "exec", "--json", "--env", "GREETING=hi", "--", "printenv", "GREETING")

	require.NoError(t, res.err)
	var out struct {
		Stdout   string `json:"stdout"`
		ExitCode int    `json:"exit_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "hi\n", out.Stdout)
	assert.Equal(t, 0, out.ExitCode)
}

func TestExec_ProjectPolicyExtendsAllowlist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devrun.yaml"), []byte("allowed_commands: [\"true\"]\n"), 0o644))

	res := runCLI(t, "", "-C", dir, "exec", "--", "true")

	require.NoError(t, res.err)
}

func TestSeq_AllSucceed(t *testing.T) {
	res := runCLI(t, "", "seq", "echo one", "echo two")

	require.NoError(t, res.err)
	assert.Equal(t, "one\ntwo\n", res.stdout)
	assert.Contains(t, res.stderr, "[2/2] echo two: ok")
}

func TestCheck_Allowed(t *testing.T) {
	res := runCLI(t, "", "check", "npm", "install")

	require.NoError(t, res.err)
	assert.Equal(t, "allowed: npm install\n", res.stdout)
}

func TestCheck_QuotesArgumentsLikeExec(t *testing.T) {
	res := runCLI(t, "", "check", "--", "echo", "a;b")

	require.NoError(t, res.err)
	assert.Equal(t, "allowed: echo 'a;b'\n", res.stdout)

	res = runCLI(t, "", "exec", "--", "echo", "a;b")
	require.NoError(t, res.err)
	assert.Equal(t, "a;b\n", res.stdout)
}

func TestExec_FlagsAfterCommandBelongToIt(t *testing.T) {
	res := runCLI(t, "", "exec", "echo", "-n", "hi")

	require.NoError(t, res.err)
	assert.Equal(t, "hi", res.stdout)
}

func TestSeq_ProjectFlagBeforeCommands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0o644))

	res := runCLI(t, "", "-C", dir, "seq", "--json", "ls")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "marker.txt")
}

func TestCall_RunCommand(t *testing.T) {
	res := runCLI(t, "", "call", "run_command", `{"command": "echo called"}`)

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"stdout":"called\n"`)
}

func TestCall_ArgsFromStdin(t *testing.T) {
	res := runCLI(t, `{"command": "npm test"}`, "call", "check_command", "-")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"allowed":true`)
}

func TestTools_Lists(t *testing.T) {
	res := runCLI(t, "", "tools")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "NAME")
	assert.Contains(t, res.stdout, "run_sequence")
	assert.Contains(t, res.stdout, "kill_process_by_port")
}

func TestTools_JSON(t *testing.T) {
	res := runCLI(t, "", "tools", "--json")

	require.NoError(t, res.err)
	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &defs))
	assert.NotEmpty(t, defs)
}

// --- UNHAPPY PATH TESTS ---

func TestExec_NonZeroExit(t *testing.T) {
	res := runCLI(t, "", "exec", "--", "ls", "devrun-missing-path")

	var exitErr *executor.ExitError
	require.ErrorAs(t, res.err, &exitErr)
	assert.NotZero(t, exitErr.ExitCode)
}

func TestExec_Rejected(t *testing.T) {
	res := runCLI(t, "", "exec", "--", "curl", "example.com")

	assert.True(t, errors.Is(res.err, policy.ErrPolicyViolation))
	assert.Empty(t, res.stdout)
}

func TestExec_BadEnvFlag(t *testing.T) {
	res := runCLI(t, "", "exec", "--env", "NOEQUALS", "--", "echo")

	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "KEY=VALUE")
}

func TestExec_BadMode(t *testing.T) {
	res := runCLI(t, "", "exec", "--mode", "bash", "--", "echo")

	require.Error(t, res.err)
}

func TestSeq_StopsAtFailure(t *testing.T) {
	res := runCLI(t, "", "seq", "echo one", "ls devrun-missing-path", "echo three")

	require.Error(t, res.err)
	assert.Equal(t, "one\n", strings.SplitAfter(res.stdout, "\n")[0])
	assert.NotContains(t, res.stdout, "three")
	assert.Contains(t, res.stderr, "1 command(s) not run")
}

func TestCheck_Rejected(t *testing.T) {
	res := runCLI(t, "", "check", "rm", "-rf", "/")

	var silent *silentExit
	require.ErrorAs(t, res.err, &silent)
	assert.Equal(t, 1, silent.code)
	assert.Contains(t, res.stdout, "rejected:")
}

func TestCall_UnknownTool(t *testing.T) {
	res := runCLI(t, "", "call", "format_disk")

	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "unknown tool")
}

func TestCall_InvalidJSON(t *testing.T) {
	res := runCLI(t, "", "call", "run_command", "{nope")

	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid JSON")
}

func TestGlobal_BadLogFormat(t *testing.T) {
	res := runCLI(t, "", "--log-format", "xml", "tools")

	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "log-format")
}

func TestGlobal_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"exec": {"graceful_shutdown_ms": 0}}`), 0o644))

	// A later --config wins over the one runCLI injects.
	res := runCLI(t, "", "--config", cfgPath, "tools")

	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "load config")
}
