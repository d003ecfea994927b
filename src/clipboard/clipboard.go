package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var ErrNotInitialized = errors.New("clipboard not initialized")

var (
	mu    sync.Mutex
	ready bool
)

// Init must succeed once before Write. It fails when the platform has no
// clipboard available (e.g. no X11 display).
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready = true
	return nil
}

// Write replaces the clipboard text. Writes are serialized.
func Write(text string) error {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return ErrNotInitialized
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
