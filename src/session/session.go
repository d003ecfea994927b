package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"answer-overlay/src/clipboard"
	"answer-overlay/src/singleinstance"
	"answer-overlay/src/workflow"
)

// Runner is satisfied by *workflow.Workflow.
type Runner interface {
	Run(ctx context.Context) workflow.Outcome
}

type ResultTarget interface {
	OnSuccess(text string) error
	OnFailure(err error) error
}

type Options struct {
	Deadline time.Duration
	Workflow Runner
	Target   ResultTarget
}

// Execute performs one standalone workflow run and delivers its result to
// the target. Used when no resident overlay is available.
func Execute(ctx context.Context, opts Options) (workflow.Outcome, error) {
	if opts.Workflow == nil {
		return workflow.Outcome{}, errors.New("Workflow is required")
	}
	if opts.Target == nil {
		return workflow.Outcome{}, errors.New("Target is required")
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	out := opts.Workflow.Run(jobCtx)
	if out.Err != nil {
		_ = opts.Target.OnFailure(out.Err)
		return out, out.Err
	}
	if err := opts.Target.OnSuccess(out.Answer); err != nil {
		_ = opts.Target.OnFailure(err)
		return out, err
	}
	return out, nil
}

// Reply adapts a ResultTarget to the event loop's reply contract and closes
// the underlying connection, if any, once answered.
type Reply struct {
	Target ResultTarget
	Closer io.Closer
}

func (r Reply) Success(text string) {
	if err := r.Target.OnSuccess(text); err != nil {
		log.Printf("session: delivery error: %v", err)
		_ = r.Target.OnFailure(err)
	}
	r.close()
}

func (r Reply) Failure(err error) {
	if ferr := r.Target.OnFailure(err); ferr != nil {
		log.Printf("session: failure delivery error: %v", ferr)
	}
	r.close()
}

func (r Reply) close() {
	if r.Closer != nil {
		_ = r.Closer.Close()
	}
}

type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(text string) error {
	return clipboard.Write(text)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// StdoutTarget prints the answer, or the fallback message, on stdout. Hard
// failures print nothing; the caller reports them.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) writer() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t StdoutTarget) OnSuccess(text string) error {
	_, err := fmt.Fprintln(t.writer(), text)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	if !workflow.IsFallback(err) {
		return nil
	}
	_, werr := fmt.Fprintln(t.writer(), workflow.Outcome{Err: err}.Message())
	return werr
}

// DelegatedTarget answers a client connected to the resident overlay.
type DelegatedTarget struct {
	Conn singleinstance.Conn
}

func (t DelegatedTarget) OnSuccess(text string) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	return t.Conn.RespondSuccess(text)
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	if msg := (workflow.Outcome{Err: err}).Message(); msg != "" {
		return t.Conn.RespondError(msg)
	}
	return t.Conn.RespondError(err.Error())
}
