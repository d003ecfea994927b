package singleinstance

// This file defines the API for single-instance ownership and request delegation.

import (
	"context"
	"fmt"
)

// Action is what a client asks the resident overlay to do.
type Action int

const (
	ActionCapture Action = iota + 1
	ActionToggle
)

func (a Action) String() string {
	switch a {
	case ActionCapture:
		return "CAPTURE"
	case ActionToggle:
		return "TOGGLE"
	default:
		return "UNKNOWN"
	}
}

func parseAction(line string) (Action, error) {
	switch line {
	case "CAPTURE\n":
		return ActionCapture, nil
	case "TOGGLE\n":
		return ActionToggle, nil
	default:
		return 0, fmt.Errorf("unknown request %q", line)
	}
}

// Server owns the TCP endpoint and answers delegated requests.
type Server interface {
	// Start listens on the first port of the configured range and accepts clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess sends success followed by text (answer or toggle label).
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	Close() error
}

// Request represents a single delegated request.
type Request struct {
	Action Action
}

// Client delegates an action to a resident overlay.
type Client interface {
	// Send scans the port range for a resident and delegates action to it.
	// If no resident is found, returns delegated=false, err=nil.
	Send(ctx context.Context, action Action) (delegated bool, text string, err error)
}

// NewServer returns TCP implementation bound to ports.Start.
func NewServer(ports Ports) Server { return newTcpServer(ports) }

// NewClient returns TCP implementation scanning ports.
func NewClient(ports Ports) Client { return newTcpClient(ports) }
