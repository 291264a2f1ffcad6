package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrainStation-23/serman/internal/paths"
	"github.com/BrainStation-23/serman/internal/service"
	"github.com/BrainStation-23/serman/internal/service/servicetest"
)

func useProvider(t *testing.T, p service.Provider, err error) {
	t.Helper()
	orig := newProvider
	newProvider = func(context.Context, service.Options) (service.Provider, error) {
		return p, err
	}
	t.Cleanup(func() { newProvider = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithLog(t, context.Background(), filepath.Join(t.TempDir(), "serman.log"), args...)
}

func executeWithLog(t *testing.T, ctx context.Context, logFile string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, finish := NewRootCmd(BuildInfo{Version: "1.2.3", BuildTime: "now", GitCommit: "abc"})
	root.SetOut(&out)
	root.SetErr(&out)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[logging]\nlevel = \"debug\"\n"), 0o644))

	root.SetArgs(append([]string{"--config", cfgFile, "--log-file", logFile, "--log-format", "json"}, args...))
	err := root.ExecuteContext(ctx)
	finish(err)
	return out.String(), err
}

func TestList(t *testing.T) {
	useProvider(t, servicetest.New("S1", "S2").Running("S2"), nil)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "S1")
	assert.Contains(t, out, "inactive")
	assert.Contains(t, out, "active")
}

func TestListJSON(t *testing.T) {
	useProvider(t, servicetest.New("S1").Running("S1"), nil)

	out, err := execute(t, "list", "--json")
	require.NoError(t, err)

	var snap service.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap, 1)
	assert.Equal(t, "S1", snap[0].Name)
	assert.Equal(t, "active", snap[0].Status)
	assert.NotEmpty(t, snap[0].PID)
}

func TestStartPrintsEveryResult(t *testing.T) {
	p := servicetest.New("S1", "S2")
	useProvider(t, p, nil)

	out, err := execute(t, "start", "S1", "S2", "S1")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "start S1..."), "duplicate names are submitted once")
	assert.Contains(t, out, "start S2...")
	assert.Contains(t, out, "S1: active (pid ")
	assert.Contains(t, out, "S2: active (pid ")
}

func TestStopUnknownService(t *testing.T) {
	useProvider(t, servicetest.New("S1"), nil)

	out, err := execute(t, "stop", "S404")
	require.NoError(t, err)
	assert.Contains(t, out, "S404: unknown (pid -)")
}

func TestStatus(t *testing.T) {
	useProvider(t, servicetest.New("S1", "S2").Running("S1"), nil)

	out, err := execute(t, "status", "S2", "S9")
	require.NoError(t, err)
	assert.Contains(t, out, "S2\n  status: inactive\n  pid:    -")
	assert.Contains(t, out, "S9\n  status: unknown")
}

func TestUnsupportedPlatformFailsFast(t *testing.T) {
	useProvider(t, nil, service.ErrUnsupportedPlatform)

	_, err := execute(t, "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrUnsupportedPlatform)
}

func TestInvalidPatternRejected(t *testing.T) {
	useProvider(t, servicetest.New(), nil)

	_, err := execute(t, "--pattern", "S(", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service.pattern")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "serman version 1.2.3")
	assert.Contains(t, out, "Git commit: abc")
	assert.Contains(t, out, "Service platform:")
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"S2", "S1"}, uniqueNames([]string{"S2", "S1", "S2"}))
}

func TestFailedCommandIsLogged(t *testing.T) {
	p := servicetest.New("S1")
	p.EnumerateErr = service.ErrTimeout
	useProvider(t, p, nil)

	logFile := filepath.Join(t.TempDir(), "serman.log")
	_, err := executeWithLog(t, context.Background(), logFile, "list")
	require.ErrorIs(t, err, service.ErrTimeout)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "command failed")
}

func TestOperationReturnsOnInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := servicetest.New("S1", "S2", "S3")
	p.Gate = make(chan struct{})
	t.Cleanup(func() { close(p.Gate) })
	p.OnCall = func(call string) {
		if strings.HasPrefix(call, "start:") {
			cancel()
		}
	}
	useProvider(t, p, nil)

	logFile := filepath.Join(t.TempDir(), "serman.log")
	done := make(chan error, 1)
	go func() {
		_, err := executeWithLog(t, ctx, logFile, "--max-concurrency", "1", "start", "S1", "S2", "S3")
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("start did not return after the context was cancelled")
	}
}

func TestIsDefaultLogFile(t *testing.T) {
	assert.True(t, isDefaultLogFile(paths.GetLogPath()))
	assert.True(t, isDefaultLogFile(paths.GetMonitorLogPath()))
	assert.False(t, isDefaultLogFile(filepath.Join(t.TempDir(), "serman.log")))
}
