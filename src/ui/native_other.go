//go:build !windows

package ui

import (
	"image"
	"log"
	"sync"

	"fyne.io/fyne/v2"
)

var warnOnce sync.Once

// placeWindow is a no-op outside Windows: fyne cannot move or raise windows,
// so they stay where the window manager puts them.
func placeWindow(w fyne.Window, r image.Rectangle, alpha byte) {
	warnOnce.Do(func() {
		log.Printf("ui: native placement not supported on this platform; %s wanted at %v", w.Title(), r)
	})
}
