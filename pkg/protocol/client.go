package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/openfroyo/gluejob/pkg/engine"
)

type scopeKey struct{}

type invocationScope struct {
	workflowID string
	attempt    int
}

// WithInvocation records the workflow and attempt a call belongs to, so a
// Client stamps them on the invocation it sends.
func WithInvocation(ctx context.Context, workflowID string, attempt int) context.Context {
	return context.WithValue(ctx, scopeKey{}, invocationScope{workflowID: workflowID, attempt: attempt})
}

// InvocationFrom returns the workflow and attempt recorded by WithInvocation.
func InvocationFrom(ctx context.Context) (workflowID string, attempt int, ok bool) {
	scope, ok := ctx.Value(scopeKey{}).(invocationScope)
	return scope.workflowID, scope.attempt, ok
}

// Client sends invocations to a handler process that answers them with
// Serve, and exposes that process as an engine.Handler.
type Client[M, C any] struct {
	encoder *Encoder
	decoder *Decoder
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	cmd     *exec.Cmd
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a client over an already connected pair of streams.
func NewClient[M, C any](stdin io.WriteCloser, stdout io.ReadCloser) *Client[M, C] {
	return &Client[M, C]{
		encoder: NewEncoder(stdin),
		decoder: NewDecoder(stdout),
		stdin:   stdin,
		stdout:  stdout,
	}
}

// StartClient starts name with args and connects to its stdin and stdout.
// The process stderr is passed through.
func StartClient[M, C any](ctx context.Context, name string, args ...string) (*Client[M, C], error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start handler process: %w", err)
	}

	c := NewClient[M, C](stdin, stdout)
	c.cmd = cmd
	return c, nil
}

// Call sends one invocation and waits for its result. An ERROR answer is
// returned as *ErrorMessage. A cancelled call leaves the stream out of
// step, so the client is closed.
func (c *Client[M, C]) Call(ctx context.Context, action engine.Action, req engine.Request[M], cb *C) (engine.ProgressEvent[M, C], error) {
	var zero engine.ProgressEvent[M, C]

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, fmt.Errorf("client is closed")
	}

	inv, err := NewInvocation(uuid.NewString(), action, req, cb)
	if err != nil {
		return zero, err
	}
	if wfID, attempt, ok := InvocationFrom(ctx); ok {
		inv.WorkflowID = wfID
		inv.Attempt = attempt
	}
	if err := c.encoder.EncodeInvocation(inv); err != nil {
		return zero, fmt.Errorf("failed to send invocation: %w", err)
	}

	type reply struct {
		result *Result
		err    error
	}
	replyCh := make(chan reply, 1)
	go func() {
		result, err := c.decoder.DecodeResult()
		replyCh <- reply{result, err}
	}()

	select {
	case <-ctx.Done():
		_ = c.closeLocked()
		return zero, ctx.Err()
	case r := <-replyCh:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return zero, fmt.Errorf("handler process exited")
			}
			return zero, r.err
		}
		if r.result.InvocationID != inv.ID {
			return zero, fmt.Errorf("invocation ID mismatch: expected %s, got %s", inv.ID, r.result.InvocationID)
		}
		return ParseEvent[M, C](r.result)
	}
}

// For returns a handler that forwards action to the process. Transport
// failures become FAILED events so the caller sees an ordinary outcome.
func (c *Client[M, C]) For(action engine.Action) (engine.Handler[M, C], error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	return engine.HandlerFunc[M, C](func(ctx context.Context, req engine.Request[M], cb *C) engine.ProgressEvent[M, C] {
		ev, err := c.Call(ctx, action, req, cb)
		if err == nil {
			return ev
		}

		code := engine.ErrorCodeServiceInternalError
		var em *ErrorMessage
		if errors.As(err, &em) && (em.Code == engine.ErrCodeValidation || em.Code == engine.ErrCodePolicyViolation) {
			code = engine.ErrorCodeInvalidRequest
		}
		return engine.Failed[M, C](req.DesiredResourceState, code, err.Error())
	}), nil
}

// Close closes the streams and waits for the process, if one was started.
func (c *Client[M, C]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client[M, C]) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error

	// Closing stdin ends the Serve loop on the other side.
	if err := c.stdin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close stdin: %w", err))
	}
	if c.cmd != nil {
		if err := c.cmd.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("handler process: %w", err))
		}
	} else if err := c.stdout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close stdout: %w", err))
	}

	return errors.Join(errs...)
}
