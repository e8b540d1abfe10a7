package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/livehost/internal/config"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const finite = `
function run()
  for i = 1, 3 do
    host.send("out", tostring(i))
  end
end
function pause() end
function resume() end
`

const ticker = `
function run()
  local n = 0
  while not host.cancelled() do
    n = n + 1
    host.send("tick", PREFIX .. n)
    host.sleep(5)
  end
end
function pause() end
function resume() end
`

// syncBuffer lets the test read output while the command is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func defaults(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{"LIVEHOST_STOP_TIMEOUT": "1s"})
	require.NoError(t, err)
	return cfg
}

func writeScript(t *testing.T, dir, name, code string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(code), 0644))
	return path
}

func TestCheck_CleanScript(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ok.lua", finite)

	var out bytes.Buffer
	err := Check(context.Background(), CheckOptions{Paths: []string{path}, Config: defaults(t), Stdout: &out})
	require.NoError(t, err)
	assert.Equal(t, "0 errors, 0 warnings\n", out.String())
}

func TestCheck_FatalScript(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "ok.lua", finite)
	bad := writeScript(t, dir, "bad.lua", "function run(\n")

	var out bytes.Buffer
	err := Check(context.Background(), CheckOptions{Paths: []string{good, bad}, Config: defaults(t), Stdout: &out})
	assert.ErrorIs(t, err, ErrFatalDiagnostics)
	assert.Contains(t, out.String(), "ERROR (bad.lua:")
	assert.Contains(t, out.String(), "1 error")
}

func TestCheck_MissingFile(t *testing.T) {
	err := Check(context.Background(), CheckOptions{Paths: []string{filepath.Join(t.TempDir(), "nope.lua")}, Config: defaults(t), Stdout: io.Discard})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_PlaysToCompletion(t *testing.T) {
	path := writeScript(t, t.TempDir(), "finite.lua", finite)

	var out bytes.Buffer
	err := Run(context.Background(), RunOptions{Path: path, Config: defaults(t), Stdout: &out, Stderr: io.Discard})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "[out] 1\n[out] 2\n[out] 3\n")
	assert.Contains(t, got, ">>> loaded -> playing (finite.lua)")
	assert.Contains(t, got, ">>> Finished.")
}

func TestRun_QuietPrintsOnlyMessages(t *testing.T) {
	path := writeScript(t, t.TempDir(), "finite.lua", finite)

	var out bytes.Buffer
	err := Run(context.Background(), RunOptions{Path: path, Quiet: true, Config: defaults(t), Stdout: &out, Stderr: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, "[out] 1\n[out] 2\n[out] 3\n", out.String())
}

func TestRun_FaultIsReported(t *testing.T) {
	path := writeScript(t, t.TempDir(), "crash.lua", `
function run() error("boom") end
function pause() end
function resume() end
`)

	err := Run(context.Background(), RunOptions{Path: path, Quiet: true, Config: defaults(t), Stdout: io.Discard, Stderr: io.Discard})
	assert.ErrorIs(t, err, ErrModuleFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_RejectedBuild(t *testing.T) {
	path := writeScript(t, t.TempDir(), "broken.lua", "function run(\n")

	var out bytes.Buffer
	err := Run(context.Background(), RunOptions{Path: path, Config: defaults(t), Stdout: &out, Stderr: io.Discard})
	require.Error(t, err)
	assert.Contains(t, out.String(), "ERROR (broken.lua:")
}

func TestRun_InterruptStopsModule(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ticker.lua", "PREFIX = \"A\"\n"+ticker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RunOptions{Path: path, Config: defaults(t), Stdout: out, Stderr: io.Discard})
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "[tick] A2") }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.Contains(t, out.String(), ">>> Interrupted.")
	assert.Contains(t, out.String(), "-> idle")
}

func TestRun_WatchHotSwapsAndKeepsModuleOnBadBuild(t *testing.T) {
	path := writeScript(t, t.TempDir(), "ticker.lua", "PREFIX = \"A\"\n"+ticker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RunOptions{Path: path, Watch: true, Config: defaults(t), Stdout: out, Stderr: io.Discard})
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "[tick] A1") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("function run(\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Build rejected, keeping 'ticker.lua' running.")
	}, 3*time.Second, 10*time.Millisecond)

	mark := len(out.String())
	require.Eventually(t, func() bool { return strings.Contains(out.String()[mark:], "[tick] A") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("PREFIX = \"B\"\n"+ticker), 0644))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "[tick] B1") }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancellation")
	}
	assert.Contains(t, out.String(), ">>> Interrupted.")
}

func TestServe_ControlsCatalogModules(t *testing.T) {
	dir := t.TempDir()
	scripts := filepath.Join(dir, "scripts")
	require.NoError(t, os.Mkdir(scripts, 0755))
	writeScript(t, scripts, "ticker.lua", "PREFIX = \"S\"\n"+ticker)
	state := filepath.Join(dir, "state")

	cfg := defaults(t)
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.HostID = "test-host"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan string, 1)
	done := make(chan error, 1)
	var stdout bytes.Buffer
	go func() {
		done <- Serve(ctx, ServeOptions{
			ModulesPath: filepath.Join(dir, "modules.yaml"),
			ScriptDir:   scripts,
			StateDir:    state,
			Load:        "ticker",
			Config:      cfg,
			Stdout:      &stdout,
			Stderr:      io.Discard,
			ready:       func(addr string) { ready <- addr },
		})
	}()

	var base string
	select {
	case addr := <-ready:
		base = "http://" + addr
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	resp, err := http.Get(base + "/modules")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	resp.Body.Close()
	assert.Equal(t, []string{"ticker"}, names)

	resp, err = http.Post(base+"/play", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/status")
	require.NoError(t, err)
	var status domain.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, domain.StatePlaying, status.State)
	assert.Equal(t, "test-host", status.HostID)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(state, "test-host.json"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
	assert.Contains(t, stdout.String(), "Serving 1 module(s)")
}
