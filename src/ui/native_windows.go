//go:build windows

package ui

import (
	"image"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const lwaAlpha = 0x2

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

// placeWindow makes w a translucent, always-on-top tool window and moves it
// to r (physical pixels). Must run on the fyne main goroutine after Show.
func placeWindow(w fyne.Window, r image.Rectangle, alpha byte) {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		return
	}
	nw.RunNative(func(ctx any) {
		wc, ok := ctx.(driver.WindowsWindowContext)
		if !ok || wc.HWND == 0 {
			return
		}
		hwnd := win.HWND(wc.HWND)

		ex := uint32(win.GetWindowLong(hwnd, win.GWL_EXSTYLE))
		ex |= win.WS_EX_TOPMOST | win.WS_EX_TOOLWINDOW | win.WS_EX_LAYERED
		win.SetWindowLong(hwnd, win.GWL_EXSTYLE, int32(ex))

		if ret, _, err := procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, uintptr(alpha), lwaAlpha); ret == 0 {
			log.Printf("ui: SetLayeredWindowAttributes failed: %v", err)
		}

		flags := uint32(win.SWP_NOACTIVATE)
		if r.Dx() <= 0 || r.Dy() <= 0 {
			flags |= win.SWP_NOSIZE | win.SWP_NOMOVE
		}
		if !win.SetWindowPos(hwnd, win.HWND_TOPMOST, int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()), flags) {
			log.Printf("ui: SetWindowPos failed for %s", w.Title())
		}
	})
}
