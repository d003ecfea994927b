package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-overlay/src/overlay"
)

type fakeCapturer struct {
	path  string
	err   error
	calls int
}

func (f *fakeCapturer) Capture(ctx context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeRecognizer struct {
	text  string
	err   error
	calls int
	got   string
}

func (f *fakeRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	f.calls++
	f.got = path
	return f.text, f.err
}

type fakeAnswerer struct {
	answer string
	err    error
	calls  int
	got    string
}

func (f *fakeAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.got = prompt
	return f.answer, f.err
}

type measurer struct{}

func (measurer) Measure(string) image.Point { return image.Pt(120, 30) }

var screen = image.Rect(0, 0, 1440, 900)

func newOverlay() *overlay.Overlay {
	return overlay.New(func() image.Rectangle { return screen }, measurer{})
}

func TestCaptureFailureStopsEverything(t *testing.T) {
	c := &fakeCapturer{err: errors.New("no display surface")}
	r := &fakeRecognizer{text: "unused"}
	a := &fakeAnswerer{answer: "unused"}

	out := (&Workflow{Capturer: c, Recognizer: r, Answerer: a}).Run(context.Background())

	assert.Equal(t, CaptureFailed, KindOf(out.Err))
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, 0, a.calls)
	assert.NotEmpty(t, out.RunID)

	o := newOverlay()
	assert.False(t, out.Apply(o))
	assert.False(t, o.State().Visible)
	assert.Empty(t, o.State().Text)
}

func TestRecognizeFailureShowsNoText(t *testing.T) {
	for name, r := range map[string]*fakeRecognizer{
		"error": {err: errors.New("tesseract exploded")},
		"empty": {text: ""},
	} {
		t.Run(name, func(t *testing.T) {
			a := &fakeAnswerer{answer: "unused"}
			out := (&Workflow{Capturer: &fakeCapturer{path: "screenshot.png"}, Recognizer: r, Answerer: a}).Run(context.Background())

			assert.Equal(t, RecognizeFailed, KindOf(out.Err))
			assert.Equal(t, 0, a.calls)
			assert.Equal(t, "screenshot.png", r.got)

			o := newOverlay()
			require.True(t, out.Apply(o))
			assert.Equal(t, "No text found.", o.State().Text)
			assert.True(t, o.State().Visible)
			assert.Equal(t, NoTextMessage, out.Message())
		})
	}
}

func TestEmptyTextIsErrNoText(t *testing.T) {
	out := (&Workflow{
		Capturer:   &fakeCapturer{path: "s.png"},
		Recognizer: &fakeRecognizer{},
		Answerer:   &fakeAnswerer{},
	}).Run(context.Background())
	assert.ErrorIs(t, out.Err, ErrNoText)
}

func TestInferFailureShowsNoAnswer(t *testing.T) {
	for name, a := range map[string]*fakeAnswerer{
		"error": {err: errors.New("401 unauthorized")},
		"empty": {answer: ""},
	} {
		t.Run(name, func(t *testing.T) {
			out := (&Workflow{
				Capturer:   &fakeCapturer{path: "s.png"},
				Recognizer: &fakeRecognizer{text: "What is 6x7?"},
				Answerer:   a,
			}).Run(context.Background())

			assert.Equal(t, InferFailed, KindOf(out.Err))
			assert.Equal(t, "What is 6x7?", a.got)

			o := newOverlay()
			require.True(t, out.Apply(o))
			assert.Equal(t, "No answer found.", o.State().Text)
			assert.True(t, o.State().Visible)
		})
	}
}

func TestSuccessPlacesAnswer(t *testing.T) {
	out := (&Workflow{
		Capturer:   &fakeCapturer{path: "s.png"},
		Recognizer: &fakeRecognizer{text: "What is 6x7?"},
		Answerer:   &fakeAnswerer{answer: "42"},
	}).Run(context.Background())
	require.NoError(t, out.Err)
	assert.Equal(t, "42", out.Message())

	o := newOverlay()
	require.True(t, out.Apply(o))
	s := o.State()
	assert.Equal(t, "42", s.Text)
	assert.Equal(t, image.Pt(1440-120-10, 900-30-10), s.Position)
	assert.Equal(t, screen.Max.Sub(image.Pt(10, 10)), s.Position.Add(s.Size))
}

func TestStepErrorUnwraps(t *testing.T) {
	cause := errors.New("cause")
	err := error(&StepError{Kind: InferFailed, Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "infer-failed: cause", err.Error())
	assert.Equal(t, Kind(0), KindOf(cause))
}

func TestIsFallback(t *testing.T) {
	assert.True(t, IsFallback(&StepError{Kind: RecognizeFailed, Err: ErrNoText}))
	assert.True(t, IsFallback(fmt.Errorf("resident: %w", &StepError{Kind: InferFailed, Err: ErrNoAnswer})))
	assert.False(t, IsFallback(&StepError{Kind: CaptureFailed, Err: errors.New("no display")}))
	assert.False(t, IsFallback(errors.New("busy, please retry")))
	assert.False(t, IsFallback(nil))
}

func TestFallbackKind(t *testing.T) {
	k, ok := FallbackKind(NoTextMessage)
	assert.True(t, ok)
	assert.Equal(t, RecognizeFailed, k)

	k, ok = FallbackKind(NoAnswerMessage)
	assert.True(t, ok)
	assert.Equal(t, InferFailed, k)

	_, ok = FallbackKind("busy, please retry")
	assert.False(t, ok)
}
