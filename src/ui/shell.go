package ui

import (
	"image"
	"log"
	"math"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"answer-overlay/src/messages"
	"answer-overlay/src/overlay"
)

const (
	trayTitle     = "Answer Overlay"
	overlayAlpha  = 200
	buttonAlpha   = 160
	textSizeLabel = 10
)

type Options struct {
	ButtonLabel string
	// Screen returns the primary display bounds in physical pixels.
	Screen func() image.Rectangle
	// Post delivers input to the event loop.
	Post func(messages.Message) bool
}

// Shell is the on-screen part of the overlay: a capture button, a toggle
// button and the answer label, each in its own borderless window. It never
// decides what to show; it renders overlay.State and forwards input.
type Shell struct {
	app  fyne.App
	opts Options

	captureWin fyne.Window
	toggleWin  fyne.Window
	answerWin  fyne.Window

	captureBtn *widget.Button
	toggleBtn  *widget.Button
	label      *widget.Label

	placeOnce sync.Once
}

func New(a fyne.App, opts Options) *Shell {
	a.Settings().SetTheme(overlayTheme{base: theme.DefaultTheme()})
	s := &Shell{app: a, opts: opts}

	s.captureBtn = widget.NewButton(opts.ButtonLabel, func() {
		log.Printf("Capture button clicked")
		s.post(messages.Capture{Source: messages.SourceButton})
	})
	s.toggleBtn = widget.NewButton(overlay.ToggleLabelHidden, func() {
		s.post(messages.Toggle{Source: messages.SourceButton})
	})
	s.label = widget.NewLabel("")
	s.label.Alignment = fyne.TextAlignLeading

	s.captureWin = s.newBorderless("Answer Overlay Capture")
	s.captureWin.SetContent(s.captureBtn)
	s.captureWin.Resize(fyne.NewSize(float32(overlay.ButtonSize.X), float32(overlay.ButtonSize.Y)))
	s.captureWin.SetFixedSize(true)

	s.toggleWin = s.newBorderless("Answer Overlay Toggle")
	s.toggleWin.SetContent(s.toggleBtn)
	s.toggleWin.Resize(fyne.NewSize(float32(overlay.ButtonSize.X), float32(overlay.ButtonSize.Y)))
	s.toggleWin.SetFixedSize(true)

	s.answerWin = s.newBorderless("Answer Overlay")
	s.answerWin.SetContent(s.label)

	s.setupTray()
	return s
}

func (s *Shell) newBorderless(title string) fyne.Window {
	if drv, ok := s.app.Driver().(desktop.Driver); ok {
		w := drv.CreateSplashWindow()
		w.SetTitle(title)
		return w
	}
	return s.app.NewWindow(title)
}

func (s *Shell) setupTray() {
	desk, ok := s.app.(desktop.App)
	if !ok {
		return
	}
	desk.SetSystemTrayIcon(trayIcon)
	// fyne appends its own Quit item
	desk.SetSystemTrayMenu(fyne.NewMenu(trayTitle,
		fyne.NewMenuItem("Capture", func() { s.post(messages.Capture{Source: messages.SourceTray}) }),
		fyne.NewMenuItem("Toggle answer", func() { s.post(messages.Toggle{Source: messages.SourceTray}) }),
	))
}

func (s *Shell) post(m messages.Message) {
	if s.opts.Post == nil || !s.opts.Post(m) {
		log.Printf("ui: %s not delivered", m.Type())
	}
}

// Run shows the buttons and blocks on the fyne main loop until Quit.
func (s *Shell) Run() {
	s.captureWin.Show()
	s.toggleWin.Show()
	s.placeButtons()
	s.app.Run()
}

// Quit stops the fyne main loop; safe from any goroutine.
func (s *Shell) Quit() {
	fyne.Do(s.app.Quit)
}

func (s *Shell) placeButtons() {
	s.placeOnce.Do(func() {
		screen := s.opts.Screen()
		size := overlay.ButtonSize
		placeWindow(s.captureWin, image.Rectangle{Min: overlay.CaptureButtonOrigin(screen), Max: overlay.CaptureButtonOrigin(screen).Add(size)}, buttonAlpha)
		placeWindow(s.toggleWin, image.Rectangle{Min: overlay.ToggleButtonOrigin(screen), Max: overlay.ToggleButtonOrigin(screen).Add(size)}, buttonAlpha)
	})
}

// Render implements overlay.Renderer. Called from the event loop goroutine.
func (s *Shell) Render(st overlay.State) {
	fyne.Do(func() { s.apply(st) })
}

// apply must run on the fyne main goroutine.
func (s *Shell) apply(st overlay.State) {
	s.label.SetText(st.Text)
	s.toggleBtn.SetText(st.ToggleLabel)

	if !st.Visible {
		s.answerWin.Hide()
		return
	}
	if st.Size != (image.Point{}) {
		scale := s.scale()
		s.answerWin.Resize(fyne.NewSize(float32(st.Size.X)/scale, float32(st.Size.Y)/scale))
	}
	s.answerWin.Show()
	// styling is reapplied on every show; a zero size keeps the current one
	placeWindow(s.answerWin, answerRect(st), overlayAlpha)
}

func answerRect(st overlay.State) image.Rectangle {
	return image.Rectangle{Min: st.Position, Max: st.Position.Add(st.Size)}
}

// SetBusy disables the capture button while a run is in flight.
func (s *Shell) SetBusy(busy bool) {
	fyne.Do(func() { s.applyBusy(busy) })
}

func (s *Shell) applyBusy(busy bool) {
	if busy {
		s.captureBtn.Disable()
		s.captureBtn.SetText("...")
		return
	}
	s.captureBtn.SetText(s.opts.ButtonLabel)
	s.captureBtn.Enable()
}

// Measure implements overlay.Measurer, returning the label size in pixels.
func (s *Shell) Measure(text string) image.Point {
	var p image.Point
	fyne.DoAndWait(func() { p = s.measure(text) })
	return p
}

// measure must run on the fyne main goroutine.
func (s *Shell) measure(text string) image.Point {
	textSize := s.app.Settings().Theme().Size(theme.SizeNameText)
	style := s.label.TextStyle

	var w, h float32
	for _, line := range strings.Split(text, "\n") {
		sz := fyne.MeasureText(line, textSize, style)
		if sz.Width > w {
			w = sz.Width
		}
		h += sz.Height
	}
	pad := 2 * theme.InnerPadding()
	scale := s.scale()
	return image.Pt(int(math.Ceil(float64((w+pad)*scale))), int(math.Ceil(float64((h+pad)*scale))))
}

func (s *Shell) scale() float32 {
	if c := s.answerWin.Canvas(); c != nil && c.Scale() > 0 {
		return c.Scale()
	}
	return 1
}
