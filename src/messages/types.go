package messages

import (
	"answer-overlay/src/workflow"
)

// Message is the base interface for everything posted into the event loop.
type Message interface {
	Type() string
}

const (
	TypeCapture      = "Capture"
	TypeToggle       = "Toggle"
	TypeWorkflowDone = "WorkflowDone"
	TypeQuit         = "Quit"
)

// Source identifies which input produced a request.
const (
	SourceButton   = "button"
	SourceHotkey   = "hotkey"
	SourceTray     = "tray"
	SourceResident = "resident"
)

// Reply receives the human-readable result of a delegated request.
// Nil for requests coming from on-screen input.
type Reply interface {
	Success(text string)
	Failure(err error)
}

// Capture asks the loop to run one workflow.
type Capture struct {
	Source string
	Reply  Reply
}

func (m Capture) Type() string { return TypeCapture }

// Toggle asks the loop to flip overlay visibility.
type Toggle struct {
	Source string
	Reply  Reply
}

func (m Toggle) Type() string { return TypeToggle }

// WorkflowDone carries a finished run back to the loop goroutine.
type WorkflowDone struct {
	Outcome workflow.Outcome
	Reply   Reply
}

func (m WorkflowDone) Type() string { return TypeWorkflowDone }

// Quit stops the loop.
type Quit struct{}

func (m Quit) Type() string { return TypeQuit }
