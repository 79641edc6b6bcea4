// Package bridge runs the native-messaging request loop: one file path in,
// one external command run, one exit status out.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/docspell-native/internal/config"
	"github.com/rbright/docspell-native/internal/fsm"
	"github.com/rbright/docspell-native/internal/nativemsg"
)

// Summary counts what a Run processed before it returned.
type Summary struct {
	Requests        int
	Failures        int
	InvalidRequests int
	DeleteErrors    int
}

// Bridge pairs every request frame with exactly one response frame.
type Bridge struct {
	command string
	runner  Runner
	remove  func(string) error
	newID   func() string
	logger  *slog.Logger
	state   fsm.State
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(b *Bridge) { b.runner = r }
}

// WithRemover replaces the function used to delete request files.
func WithRemover(remove func(string) error) Option {
	return func(b *Bridge) { b.remove = remove }
}

// New constructs a bridge for the command resolved in cfg.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Bridge{
		command: cfg.Command,
		runner:  ExecRunner{},
		remove:  os.Remove,
		newID:   uuid.NewString,
		logger:  logger.With("component", "bridge"),
		state:   fsm.StateAwaitingRequest,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State reports the loop state.
func (b *Bridge) State() fsm.State {
	return b.state
}

type readResult struct {
	raw json.RawMessage
	err error
}

// Run reads requests from in and writes responses to out until in ends.
//
// A clean end of stream returns a nil error. Protocol and write errors are
// fatal and returned. ctx cancellation abandons the pending read and returns
// ctx.Err(); a running command is killed through exec.CommandContext.
func (b *Bridge) Run(ctx context.Context, in io.Reader, out io.Writer) (Summary, error) {
	var summary Summary
	b.logger.Info("bridge started", "command", b.command)

	for {
		// The next read starts only after the previous response is written.
		readCh := make(chan readResult, 1)
		go func() {
			raw, err := nativemsg.ReadMessage(in)
			readCh <- readResult{raw: raw, err: err}
		}()

		var res readResult
		select {
		case <-ctx.Done():
			b.logger.Info("bridge cancelled", "requests", summary.Requests)
			return summary, ctx.Err()
		case res = <-readCh:
		}

		if errors.Is(res.err, io.EOF) {
			if err := b.advance(fsm.EventEndOfStream); err != nil {
				return summary, err
			}
			b.logger.Info("input closed; bridge stopped",
				"requests", summary.Requests,
				"failures", summary.Failures,
				"invalid_requests", summary.InvalidRequests,
				"delete_errors", summary.DeleteErrors,
			)
			return summary, nil
		}
		if res.err != nil {
			b.logger.Error("read request failed", "error", res.err.Error())
			return summary, fmt.Errorf("read request: %w", res.err)
		}

		if err := b.advance(fsm.EventRequest); err != nil {
			return summary, err
		}

		status := b.process(ctx, res.raw, &summary)

		if err := nativemsg.WriteMessage(out, status); err != nil {
			b.logger.Error("write response failed", "error", err.Error(), "status", status)
			return summary, fmt.Errorf("write response: %w", err)
		}
		if err := b.advance(fsm.EventRespond); err != nil {
			return summary, err
		}
	}
}

// process handles one decoded request and returns the status to report.
func (b *Bridge) process(ctx context.Context, raw json.RawMessage, summary *Summary) int {
	summary.Requests++
	logger := b.logger.With("request_id", b.newID())

	var path string
	if err := json.Unmarshal(raw, &path); err != nil || path == "" {
		summary.InvalidRequests++
		summary.Failures++
		logger.Warn("request payload is not a file path", "payload", string(raw))
		return StatusInvalidRequest
	}
	logger = logger.With("file", path)

	started := time.Now()
	result := b.runner.Run(ctx, b.command, path)
	fields := []any{
		"status", result.Status,
		"duration_ms", time.Since(started).Milliseconds(),
	}
	switch {
	case result.Err != nil:
		logger.Error("command failed to run", append(fields, "error", result.Err.Error())...)
	case result.Status != 0:
		logger.Warn("command exited non-zero", fields...)
	default:
		logger.Info("command completed", fields...)
	}
	if result.Status != 0 {
		summary.Failures++
	}

	// A status synthesized during shutdown means the command never finished
	// with the file, so it stays for the next launch.
	if result.Err != nil && ctx.Err() != nil {
		logger.Warn("shutdown interrupted request; keeping file", "error", ctx.Err().Error())
		return result.Status
	}

	if err := b.remove(path); err != nil {
		summary.DeleteErrors++
		logger.Warn("delete request file failed", "error", err.Error())
	}

	return result.Status
}

func (b *Bridge) advance(event fsm.Event) error {
	next, err := fsm.Transition(b.state, event)
	if err != nil {
		return err
	}
	b.logger.Debug("state transition", "from", b.state, "event", event, "to", next)
	b.state = next
	return nil
}
