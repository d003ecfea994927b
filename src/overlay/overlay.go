package overlay

import (
	"image"
	"log"
)

const (
	// Margin keeps the answer overlay off the screen edge.
	Margin = 10

	ToggleLabelHidden = "Light"
	ToggleLabelShown  = "Dark"
)

// Measurer reports the pixel size of text as the overlay would render it.
type Measurer interface {
	Measure(text string) image.Point
}

// State is a snapshot of everything a Renderer needs to draw the overlay.
type State struct {
	Text        string
	Visible     bool
	Size        image.Point
	Position    image.Point
	ToggleLabel string
}

// Renderer draws a State. Implementations must not call back into Overlay.
type Renderer interface {
	Render(State)
}

// Overlay owns the answer label and its toggle button label. It is not safe
// for concurrent use; the event loop is its only writer.
type Overlay struct {
	state    State
	screen   func() image.Rectangle
	measurer Measurer
}

// New returns a hidden overlay. screen yields the primary display bounds at
// the time an answer is placed.
func New(screen func() image.Rectangle, m Measurer) *Overlay {
	return &Overlay{
		state:    State{ToggleLabel: ToggleLabelHidden},
		screen:   screen,
		measurer: m,
	}
}

func (o *Overlay) State() State { return o.state }

// DisplayAnswer shows nothing new for an empty answer. Otherwise it replaces
// the text, resizes to fit and moves to the bottom-right corner. Visibility is
// left to Toggle.
func (o *Overlay) DisplayAnswer(answer string) bool {
	if answer == "" {
		log.Printf("No answer to display")
		return false
	}
	o.place(answer)
	return true
}

// ShowMessage places text like an answer and makes the overlay visible.
func (o *Overlay) ShowMessage(text string) {
	o.place(text)
	o.state.Visible = true
}

func (o *Overlay) place(text string) {
	o.state.Text = text
	o.state.Size = o.measurer.Measure(text)
	o.state.Position = BottomRight(o.screen(), o.state.Size, Margin)
	log.Printf("Overlay text placed at %v size %v", o.state.Position, o.state.Size)
}

// Toggle flips visibility and relabels the toggle control.
func (o *Overlay) Toggle() {
	if o.state.Visible {
		o.state.Visible = false
		o.state.ToggleLabel = ToggleLabelHidden
		return
	}
	o.state.Visible = true
	o.state.ToggleLabel = ToggleLabelShown
}
