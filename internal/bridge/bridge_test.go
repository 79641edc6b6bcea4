package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/docspell-native/internal/config"
	"github.com/rbright/docspell-native/internal/fsm"
	"github.com/rbright/docspell-native/internal/nativemsg"
	"github.com/stretchr/testify/require"
)

// Number of seconds to wait for things that should be near-instantaneous.
const timeoutSeconds = 5

func TestRunDeletesFileAndReportsSuccess(t *testing.T) {
	script := writeScript(t, "exit 0")
	file := writeRequestFile(t)

	out, summary, err := runBridge(t, config.Config{Command: script}, file)
	require.NoError(t, err)
	require.Equal(t, []int{0}, decodeStatuses(t, out))
	require.NoFileExists(t, file)
	require.Equal(t, Summary{Requests: 1}, summary)
}

func TestRunPropagatesNonZeroStatusAndStillDeletes(t *testing.T) {
	script := writeScript(t, "exit 3")
	file := writeRequestFile(t)

	out, summary, err := runBridge(t, config.Config{Command: script}, file)
	require.NoError(t, err)
	require.Equal(t, []int{3}, decodeStatuses(t, out))
	require.NoFileExists(t, file)
	require.Equal(t, 1, summary.Failures)
	require.Zero(t, summary.DeleteErrors)
}

func TestRunPassesFileAsOnlyArgument(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, fmt.Sprintf(`printf '%%s\n' "$#" "$1" > %q`, argsFile))
	file := writeRequestFile(t)

	_, _, err := runBridge(t, config.Config{Command: script}, file)
	require.NoError(t, err)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "1\n"+file+"\n", string(args))
}

func TestRunToleratesAlreadyDeletedFile(t *testing.T) {
	script := writeScript(t, `rm -f "$1"`, "exit 5")
	file := writeRequestFile(t)

	out, summary, err := runBridge(t, config.Config{Command: script}, file)
	require.NoError(t, err)
	require.Equal(t, []int{5}, decodeStatuses(t, out))
	require.Equal(t, 1, summary.DeleteErrors)
}

func TestRunToleratesRemoveFailure(t *testing.T) {
	file := writeRequestFile(t)
	b := New(config.Config{Command: "unused"}, nil,
		WithRunner(staticRunner(0)),
		WithRemover(func(string) error { return &fs.PathError{Op: "remove", Path: file, Err: fs.ErrPermission} }),
	)

	var out bytes.Buffer
	summary, err := b.Run(context.Background(), requestStream(t, file, file), &out)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0}, decodeStatuses(t, &out))
	require.Equal(t, 2, summary.DeleteErrors)
	require.Equal(t, fsm.StateStopped, b.State())
}

func TestRunMapsMissingCommandToNotFound(t *testing.T) {
	file := writeRequestFile(t)
	missing := filepath.Join(t.TempDir(), "no-such-ds.sh")

	out, summary, err := runBridge(t, config.Config{Command: missing}, file)
	require.NoError(t, err)
	require.Equal(t, []int{StatusNotFound}, decodeStatuses(t, out))
	require.NoFileExists(t, file)
	require.Equal(t, 1, summary.Failures)
}

func TestRunMapsMissingPathCommandToNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	file := writeRequestFile(t)

	out, _, err := runBridge(t, config.Default(), file)
	require.NoError(t, err)
	require.Equal(t, []int{StatusNotFound}, decodeStatuses(t, out))
}

func TestRunResolvesDefaultCommandThroughPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ds.sh"), []byte("#!/usr/bin/env bash\nexit 7\n"), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	file := writeRequestFile(t)

	out, _, err := runBridge(t, config.Default(), file)
	require.NoError(t, err)
	require.Equal(t, []int{7}, decodeStatuses(t, out))
}

func TestRunAnswersInvalidPayloadWithoutRunning(t *testing.T) {
	var calls int
	runner := RunnerFunc(func(context.Context, string, string) Result {
		calls++
		return Result{}
	})
	b := New(config.Default(), nil, WithRunner(runner))

	var in bytes.Buffer
	require.NoError(t, nativemsg.WriteMessage(&in, 42))
	require.NoError(t, nativemsg.WriteMessage(&in, ""))
	require.NoError(t, nativemsg.WriteMessage(&in, map[string]string{"filename": "/tmp/x"}))

	var out bytes.Buffer
	summary, err := b.Run(context.Background(), &in, &out)
	require.NoError(t, err)
	require.Equal(t, []int{StatusInvalidRequest, StatusInvalidRequest, StatusInvalidRequest}, decodeStatuses(t, &out))
	require.Zero(t, calls)
	require.Equal(t, 3, summary.InvalidRequests)
}

func TestRunStrictAlternation(t *testing.T) {
	const k = 4

	files := make([]string, k)
	for i := range files {
		files[i] = writeRequestFile(t)
	}
	statusByFile := make(map[string]int, k)
	for i, f := range files {
		statusByFile[f] = i + 10
	}

	inFlight := 0
	runner := RunnerFunc(func(_ context.Context, _ string, file string) Result {
		inFlight++
		defer func() { inFlight-- }()
		if inFlight != 1 {
			return Result{Status: 99}
		}
		return Result{Status: statusByFile[file]}
	})

	in, inPipe := io.Pipe()
	outPipe, out := io.Pipe()
	b := New(config.Default(), nil, WithRunner(runner))

	done := make(chan error, 1)
	go func() {
		_, err := b.Run(context.Background(), in, out)
		_ = out.Close()
		done <- err
	}()

	for i, file := range files {
		writeDone := make(chan error, 1)
		go func() { writeDone <- nativemsg.WriteMessage(inPipe, file) }()

		var status int
		require.NoError(t, nativemsg.Decode(outPipe, &status))
		require.Equal(t, i+10, status)
		require.NoError(t, <-writeDone)
	}

	select {
	case err := <-done:
		t.Fatalf("bridge returned before input closed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, inPipe.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(timeoutSeconds * time.Second):
		t.Fatal("timeout waiting for bridge to stop")
	}

	_, err := nativemsg.ReadMessage(outPipe)
	require.ErrorIs(t, err, io.EOF)
}

func TestRunStopsOnProtocolError(t *testing.T) {
	b := New(config.Default(), nil, WithRunner(staticRunner(0)))

	var out bytes.Buffer
	_, err := b.Run(context.Background(), bytes.NewReader([]byte{0x10, 0x00}), &out)
	require.ErrorIs(t, err, nativemsg.ErrProtocol)
	require.Zero(t, out.Len())
	require.Equal(t, fsm.StateAwaitingRequest, b.State())
}

func TestRunEmptyInputStopsCleanly(t *testing.T) {
	b := New(config.Default(), nil)

	var out bytes.Buffer
	summary, err := b.Run(context.Background(), bytes.NewReader(nil), &out)
	require.NoError(t, err)
	require.Zero(t, out.Len())
	require.Equal(t, Summary{}, summary)
	require.Equal(t, fsm.StateStopped, b.State())
}

func TestRunReturnsWriteFailure(t *testing.T) {
	file := writeRequestFile(t)
	b := New(config.Default(), nil, WithRunner(staticRunner(0)))

	_, err := b.Run(context.Background(), requestStream(t, file), failWriter{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "write response")
}

func TestRunCancelledWhileAwaitingRequest(t *testing.T) {
	in, inPipe := io.Pipe()
	t.Cleanup(func() { _ = inPipe.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	b := New(config.Default(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := b.Run(ctx, in, io.Discard)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(timeoutSeconds * time.Second):
		t.Fatal("timeout waiting for cancelled bridge")
	}
}

func TestProcessKeepsFileWhenCancelledBeforeCommandRuns(t *testing.T) {
	file := writeRequestFile(t)
	ranFile := filepath.Join(t.TempDir(), "ran")
	script := writeScript(t, fmt.Sprintf("touch %q", ranFile))
	b := New(config.Config{Command: script}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw, err := json.Marshal(file)
	require.NoError(t, err)

	var summary Summary
	status := b.process(ctx, raw, &summary)
	require.NotZero(t, status)
	require.FileExists(t, file)
	require.NoFileExists(t, ranFile)
	require.Zero(t, summary.DeleteErrors)
}

func TestProcessDeletesFileAfterSpawnFailureWithLiveContext(t *testing.T) {
	file := writeRequestFile(t)
	b := New(config.Config{Command: filepath.Join(t.TempDir(), "missing")}, nil)

	raw, err := json.Marshal(file)
	require.NoError(t, err)

	var summary Summary
	status := b.process(context.Background(), raw, &summary)
	require.Equal(t, StatusNotFound, status)
	require.NoFileExists(t, file)
}

func runBridge(t *testing.T, cfg config.Config, files ...string) (*bytes.Buffer, Summary, error) {
	t.Helper()

	var out bytes.Buffer
	summary, err := New(cfg, nil).Run(context.Background(), requestStream(t, files...), &out)
	return &out, summary, err
}

func requestStream(t *testing.T, files ...string) io.Reader {
	t.Helper()

	var in bytes.Buffer
	for _, f := range files {
		require.NoError(t, nativemsg.WriteMessage(&in, f))
	}
	return &in
}

func decodeStatuses(t *testing.T, out io.Reader) []int {
	t.Helper()

	var statuses []int
	for {
		var status int
		err := nativemsg.Decode(out, &status)
		if errors.Is(err, io.EOF) {
			return statuses
		}
		require.NoError(t, err)
		statuses = append(statuses, status)
	}
}

func writeRequestFile(t *testing.T) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "download-*.pdf")
	require.NoError(t, err)
	_, err = f.WriteString("%PDF-1.4\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func writeScript(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ds.sh")
	script := "#!/usr/bin/env bash\n"
	for _, line := range lines {
		script += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func staticRunner(status int) Runner {
	return RunnerFunc(func(context.Context, string, string) Result {
		return Result{Status: status}
	})
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}
