package ui

import (
	"image"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-overlay/src/messages"
	"answer-overlay/src/overlay"
)

func newTestShell(t *testing.T) (*Shell, *[]messages.Message) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	var posted []messages.Message
	s := New(a, Options{
		ButtonLabel: "Capture",
		Screen:      func() image.Rectangle { return image.Rect(0, 0, 1920, 1080) },
		Post: func(m messages.Message) bool {
			posted = append(posted, m)
			return true
		},
	})
	return s, &posted
}

func TestButtonsPostMessages(t *testing.T) {
	s, posted := newTestShell(t)

	test.Tap(s.captureBtn)
	test.Tap(s.toggleBtn)

	require.Len(t, *posted, 2)
	assert.Equal(t, messages.Capture{Source: messages.SourceButton}, (*posted)[0])
	assert.Equal(t, messages.Toggle{Source: messages.SourceButton}, (*posted)[1])
}

func TestButtonLabels(t *testing.T) {
	s, _ := newTestShell(t)
	assert.Equal(t, "Capture", s.captureBtn.Text)
	assert.Equal(t, overlay.ToggleLabelHidden, s.toggleBtn.Text)
}

func TestApplyUpdatesWidgets(t *testing.T) {
	s, _ := newTestShell(t)

	s.apply(overlay.State{Text: "42", Visible: true, Size: image.Pt(60, 30), Position: image.Pt(1850, 1040), ToggleLabel: overlay.ToggleLabelShown})
	assert.Equal(t, "42", s.label.Text)
	assert.Equal(t, overlay.ToggleLabelShown, s.toggleBtn.Text)

	s.apply(overlay.State{Text: "42", ToggleLabel: overlay.ToggleLabelHidden})
	assert.Equal(t, overlay.ToggleLabelHidden, s.toggleBtn.Text)
}

func TestMeasureGrowsWithText(t *testing.T) {
	s, _ := newTestShell(t)

	short := s.measure("4")
	long := s.measure("a considerably longer answer")
	twoLines := s.measure("4\n4")

	assert.Positive(t, short.X)
	assert.Positive(t, short.Y)
	assert.Greater(t, long.X, short.X)
	assert.Greater(t, twoLines.Y, short.Y)
}

func TestUndeliveredPostIsTolerated(t *testing.T) {
	a := test.NewApp()
	t.Cleanup(a.Quit)
	s := New(a, Options{Screen: func() image.Rectangle { return image.Rect(0, 0, 800, 600) }})
	assert.NotPanics(t, func() { test.Tap(s.captureBtn) })
}

func TestBusyDisablesCapture(t *testing.T) {
	s, _ := newTestShell(t)

	s.applyBusy(true)
	assert.True(t, s.captureBtn.Disabled())
	assert.Equal(t, "...", s.captureBtn.Text)

	s.applyBusy(false)
	assert.False(t, s.captureBtn.Disabled())
	assert.Equal(t, "Capture", s.captureBtn.Text)
}

func TestAnswerRect(t *testing.T) {
	st := overlay.State{Position: image.Pt(1790, 1056), Size: image.Pt(120, 14)}
	assert.Equal(t, image.Rect(1790, 1056, 1910, 1070), answerRect(st))
	assert.True(t, answerRect(overlay.State{}).Empty())
}
