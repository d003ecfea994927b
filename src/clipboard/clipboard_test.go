package clipboard

import (
	"testing"
)

func TestWrite(t *testing.T) {
	// Requires a desktop session; headless runs only log.
	if err := Init(); err != nil {
		t.Logf("Clipboard unavailable: %v", err)
		if err := Write("42"); err != ErrNotInitialized {
			t.Errorf("Expected ErrNotInitialized, got %v", err)
		}
		return
	}
	if err := Write("42"); err != nil {
		t.Errorf("Failed to write to clipboard: %v", err)
	}
}
