package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-overlay/src/config"
	"answer-overlay/src/eventloop"
	"answer-overlay/src/messages"
	"answer-overlay/src/singleinstance"
	"answer-overlay/src/workflow"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"answer-overlay", "-run-once", "-api-key-path", "/tmp/key"},
			out:  []string{"answer-overlay", "--run-once", "--api-key-path", "/tmp/key"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"answer-overlay", "-run-once=true", "-env-file=/tmp/.env"},
			out:  []string{"answer-overlay", "--run-once=true", "--env-file=/tmp/.env"},
		},
		{
			name: "Leaves other args unchanged",
			in:   []string{"answer-overlay", "--run-once", "--other", "trigger"},
			out:  []string{"answer-overlay", "--run-once", "--other", "trigger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, normalizeLegacyArgs(tt.in))
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--run-once", "--api-key-path", "/tmp/key", "--env-file", "/tmp/.env"}))

	assert.True(t, opts.runOnce)
	assert.Equal(t, config.LoadOptions{APIKeyPathOverride: "/tmp/key", EnvFileOverride: "/tmp/.env"}, opts.loadOptions())
}

func TestNewRootCmdSubcommands(t *testing.T) {
	cmd := newRootCmd(&mainOptions{})
	for _, name := range []string{"trigger", "toggle", "check"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

type fakeClient struct {
	delegated bool
	text      string
	err       error
	called    bool
	action    singleinstance.Action
}

func (f *fakeClient) Send(ctx context.Context, action singleinstance.Action) (bool, string, error) {
	f.called = true
	f.action = action
	return f.delegated, f.text, f.err
}

func TestHandleRunOnceWithDelegation_Delegated(t *testing.T) {
	client := &fakeClient{delegated: true, text: "42"}
	var out bytes.Buffer
	fallbackCalled := false

	err := handleRunOnceWithDelegation(context.Background(), client, &out, func() error {
		fallbackCalled = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, client.called)
	assert.Equal(t, singleinstance.ActionCapture, client.action)
	assert.False(t, fallbackCalled, "no fallback when delegation succeeds")
	assert.Equal(t, "42\n", out.String())
}

func TestHandleRunOnceWithDelegation_NoResidentFallback(t *testing.T) {
	client := &fakeClient{}
	fallbackErr := errors.New("standalone result")

	err := handleRunOnceWithDelegation(context.Background(), client, &bytes.Buffer{}, func() error {
		return fallbackErr
	})
	assert.True(t, client.called)
	assert.ErrorIs(t, err, fallbackErr)
}

func TestHandleRunOnceWithDelegation_ResidentError(t *testing.T) {
	client := &fakeClient{delegated: true, err: errors.New("upstream 500")}
	var out bytes.Buffer
	fallbackCalled := false

	err := handleRunOnceWithDelegation(context.Background(), client, &out, func() error {
		fallbackCalled = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
	assert.False(t, workflow.IsFallback(err))
	assert.Empty(t, out.String())
	assert.False(t, fallbackCalled, "a resident that answered is not retried standalone")
}

func TestHandleRunOnceWithDelegation_ResidentFallbackGoesToStdout(t *testing.T) {
	client := &fakeClient{delegated: true, err: errors.New(workflow.NoTextMessage)}
	var out bytes.Buffer

	err := handleRunOnceWithDelegation(context.Background(), client, &out, func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, workflow.NoTextMessage+"\n", out.String())
	assert.True(t, workflow.IsFallback(err), "main exits 1 without repeating the message")
	assert.Equal(t, workflow.RecognizeFailed, workflow.KindOf(err))
}

func TestRunWithoutCredentialFailsBeforeUI(t *testing.T) {
	t.Setenv(config.APIKeyEnvVar, "")
	t.Setenv(config.APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv(config.EnvFileEnvVar, "")

	err := run([]string{"answer-overlay"})
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestDelegateNoResident(t *testing.T) {
	err := delegate(context.Background(), &fakeClient{}, singleinstance.ActionToggle, &bytes.Buffer{})
	assert.ErrorIs(t, err, errNoResident)
}

func TestDelegationTimeout(t *testing.T) {
	assert.Equal(t, 65*time.Second, delegationTimeout(nil))
	assert.Equal(t, 15*time.Second, delegationTimeout(&config.Config{DeadlineSec: 10}))
}

type fakeConn struct {
	action  singleinstance.Action
	success []string
	errs    []string
	closed  bool
}

func (c *fakeConn) Request() singleinstance.Request   { return singleinstance.Request{Action: c.action} }
func (c *fakeConn) RespondSuccess(text string) error { c.success = append(c.success, text); return nil }
func (c *fakeConn) RespondError(msg string) error    { c.errs = append(c.errs, msg); return nil }
func (c *fakeConn) Close() error                     { c.closed = true; return nil }

type fakeServer struct {
	conns []singleinstance.Conn
}

func (s *fakeServer) Start(ctx context.Context) error { return nil }
func (s *fakeServer) Port() int                       { return 0 }
func (s *fakeServer) Close() error                    { return nil }
func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	if len(s.conns) == 0 {
		return nil, context.Canceled
	}
	c := s.conns[0]
	s.conns = s.conns[1:]
	return c, nil
}

func TestServeDelegatedMapsActions(t *testing.T) {
	capture := &fakeConn{action: singleinstance.ActionCapture}
	toggle := &fakeConn{action: singleinstance.ActionToggle}
	bogus := &fakeConn{action: singleinstance.Action(99)}
	server := &fakeServer{conns: []singleinstance.Conn{capture, toggle, bogus}}

	var posted []messages.Message
	serveDelegated(context.Background(), server, func(m messages.Message) bool {
		posted = append(posted, m)
		return true
	})

	require.Len(t, posted, 2)
	c, ok := posted[0].(messages.Capture)
	require.True(t, ok)
	assert.Equal(t, messages.SourceResident, c.Source)
	require.NotNil(t, c.Reply)
	_, ok = posted[1].(messages.Toggle)
	assert.True(t, ok)

	c.Reply.Success("42")
	assert.Equal(t, []string{"42"}, capture.success)
	assert.True(t, capture.closed)

	assert.True(t, bogus.closed)
	require.Len(t, bogus.errs, 1)
	assert.Contains(t, bogus.errs[0], "unsupported action")
}

func TestServeDelegatedFullInbox(t *testing.T) {
	conn := &fakeConn{action: singleinstance.ActionCapture}
	serveDelegated(context.Background(), &fakeServer{conns: []singleinstance.Conn{conn}}, func(messages.Message) bool {
		return false
	})
	assert.Equal(t, []string{eventloop.ErrBusy.Error()}, conn.errs)
	assert.True(t, conn.closed)
}
