package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-overlay/src/singleinstance"
	"answer-overlay/src/workflow"
)

type fakeRunner struct {
	out      workflow.Outcome
	deadline time.Time
}

func (f *fakeRunner) Run(ctx context.Context) workflow.Outcome {
	f.deadline, _ = ctx.Deadline()
	return f.out
}

type recordTarget struct {
	success    []string
	failures   []error
	successErr error
}

func (r *recordTarget) OnSuccess(text string) error {
	r.success = append(r.success, text)
	return r.successErr
}

func (r *recordTarget) OnFailure(err error) error {
	r.failures = append(r.failures, err)
	return nil
}

type fakeConn struct {
	success []string
	errors  []string
	closed  bool
}

func (c *fakeConn) Request() singleinstance.Request {
	return singleinstance.Request{Action: singleinstance.ActionCapture}
}
func (c *fakeConn) RespondSuccess(text string) error { c.success = append(c.success, text); return nil }
func (c *fakeConn) RespondError(text string) error   { c.errors = append(c.errors, text); return nil }
func (c *fakeConn) Close() error                     { c.closed = true; return nil }

func TestExecuteRequiresWorkflowAndTarget(t *testing.T) {
	_, err := Execute(context.Background(), Options{Target: &recordTarget{}})
	assert.Error(t, err)
	_, err = Execute(context.Background(), Options{Workflow: &fakeRunner{}})
	assert.Error(t, err)
}

func TestExecuteSuccess(t *testing.T) {
	runner := &fakeRunner{out: workflow.Outcome{Answer: "4"}}
	target := &recordTarget{}

	out, err := Execute(context.Background(), Options{Workflow: runner, Target: target, Deadline: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "4", out.Answer)
	assert.Equal(t, []string{"4"}, target.success)
	assert.Empty(t, target.failures)
	assert.WithinDuration(t, time.Now().Add(time.Second), runner.deadline, time.Second)
}

func TestExecuteFailure(t *testing.T) {
	stepErr := &workflow.StepError{Kind: workflow.RecognizeFailed, Err: workflow.ErrNoText}
	target := &recordTarget{}

	_, err := Execute(context.Background(), Options{Workflow: &fakeRunner{out: workflow.Outcome{Err: stepErr}}, Target: target})
	require.Error(t, err)
	assert.Equal(t, workflow.RecognizeFailed, workflow.KindOf(err))
	assert.Empty(t, target.success)
	require.Len(t, target.failures, 1)
}

func TestExecuteDeliveryError(t *testing.T) {
	target := &recordTarget{successErr: errors.New("clipboard gone")}
	_, err := Execute(context.Background(), Options{Workflow: &fakeRunner{out: workflow.Outcome{Answer: "x"}}, Target: target})
	require.EqualError(t, err, "clipboard gone")
	assert.Len(t, target.failures, 1)
}

func TestStdoutTargetPrintsFallback(t *testing.T) {
	var out bytes.Buffer
	target := StdoutTarget{Writer: &out}

	require.NoError(t, target.OnSuccess("Paris"))
	require.NoError(t, target.OnFailure(&workflow.StepError{Kind: workflow.InferFailed, Err: errors.New("boom")}))
	assert.Equal(t, "Paris\n"+workflow.NoAnswerMessage+"\n", out.String())
}

func TestStdoutTargetLeavesHardFailuresToCaller(t *testing.T) {
	var out bytes.Buffer
	target := StdoutTarget{Writer: &out}

	require.NoError(t, target.OnFailure(&workflow.StepError{Kind: workflow.CaptureFailed, Err: errors.New("no display")}))
	require.NoError(t, target.OnFailure(errors.New("busy, please retry")))
	assert.Empty(t, out.String())
}

func TestDelegatedTarget(t *testing.T) {
	conn := &fakeConn{}
	target := DelegatedTarget{Conn: conn}

	require.NoError(t, target.OnSuccess("42"))
	require.NoError(t, target.OnFailure(&workflow.StepError{Kind: workflow.RecognizeFailed, Err: workflow.ErrNoText}))
	require.NoError(t, target.OnFailure(nil))

	assert.Equal(t, []string{"42"}, conn.success)
	assert.Equal(t, []string{workflow.NoTextMessage, "unknown session error"}, conn.errors)

	assert.Error(t, DelegatedTarget{}.OnSuccess("x"))
	assert.NoError(t, DelegatedTarget{}.OnFailure(errors.New("x")))
}

func TestReplyClosesConnection(t *testing.T) {
	conn := &fakeConn{}
	Reply{Target: DelegatedTarget{Conn: conn}, Closer: conn}.Success("Dark")
	assert.True(t, conn.closed)
	assert.Equal(t, []string{"Dark"}, conn.success)

	conn = &fakeConn{}
	Reply{Target: DelegatedTarget{Conn: conn}, Closer: conn}.Failure(errors.New("busy, please retry"))
	assert.True(t, conn.closed)
	assert.Equal(t, []string{"busy, please retry"}, conn.errors)
}
