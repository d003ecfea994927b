// Package workflow runs the capture, recognize and infer steps in order and
// reports which step, if any, stopped the run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"answer-overlay/src/logutil"
	"answer-overlay/src/overlay"
)

const (
	NoTextMessage   = "No text found."
	NoAnswerMessage = "No answer found."
)

var (
	ErrNoText   = errors.New("no text recognized")
	ErrNoAnswer = errors.New("no answer returned")
)

type Kind int

const (
	CaptureFailed Kind = iota + 1
	RecognizeFailed
	InferFailed
)

func (k Kind) String() string {
	switch k {
	case CaptureFailed:
		return "capture-failed"
	case RecognizeFailed:
		return "recognize-failed"
	case InferFailed:
		return "infer-failed"
	default:
		return "unknown"
	}
}

// StepError names the step that stopped a run.
type StepError struct {
	Kind Kind
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// KindOf returns the failing step of err, or 0 when err is not a StepError.
func KindOf(err error) Kind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsFallback reports whether err ends a run with one of the fallback
// messages rather than a hard failure.
func IsFallback(err error) bool {
	k := KindOf(err)
	return k == RecognizeFailed || k == InferFailed
}

// FallbackKind maps a fallback message back to the step that produced it.
func FallbackKind(msg string) (Kind, bool) {
	switch msg {
	case NoTextMessage:
		return RecognizeFailed, true
	case NoAnswerMessage:
		return InferFailed, true
	}
	return 0, false
}

type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

type Workflow struct {
	Capturer   Capturer
	Recognizer Recognizer
	Answerer   Answerer
}

// Outcome is the result of one run. Err is nil or a *StepError.
type Outcome struct {
	RunID     string
	ImagePath string
	Text      string
	Answer    string
	Err       error
	Elapsed   time.Duration
}

// Run executes capture → recognize → infer, stopping at the first step that
// fails or comes back empty.
func (w *Workflow) Run(ctx context.Context) Outcome {
	out := Outcome{RunID: uuid.NewString()}
	start := time.Now()

	log.Printf("[%s] Workflow triggered", out.RunID)

	path, err := w.Capturer.Capture(ctx)
	if err != nil {
		out.Err = &StepError{Kind: CaptureFailed, Err: err}
		log.Printf("[%s] Screenshot capture failed: %v", out.RunID, err)
		return finished(out, start)
	}
	out.ImagePath = path

	text, err := w.Recognizer.Recognize(ctx, path)
	if err == nil && text == "" {
		err = ErrNoText
	}
	if err != nil {
		out.Err = &StepError{Kind: RecognizeFailed, Err: err}
		log.Printf("[%s] No text extracted from the screenshot: %v", out.RunID, err)
		return finished(out, start)
	}
	out.Text = text

	answer, err := w.Answerer.Answer(ctx, text)
	if err == nil && answer == "" {
		err = ErrNoAnswer
	}
	if err != nil {
		out.Err = &StepError{Kind: InferFailed, Err: err}
		log.Printf("[%s] No answer returned: %v", out.RunID, err)
		return finished(out, start)
	}
	out.Answer = answer
	log.Printf("[%s] Answer: %q", out.RunID, logutil.Sanitize(answer, 100))
	return finished(out, start)
}

func finished(out Outcome, start time.Time) Outcome {
	out.Elapsed = time.Since(start)
	return out
}

// Apply presents the outcome on o and reports whether o changed.
// A failed capture leaves the overlay untouched.
func (out Outcome) Apply(o *overlay.Overlay) bool {
	switch KindOf(out.Err) {
	case CaptureFailed:
		return false
	case RecognizeFailed:
		o.ShowMessage(NoTextMessage)
		return true
	case InferFailed:
		o.ShowMessage(NoAnswerMessage)
		return true
	}
	if out.Err != nil {
		return false
	}
	return o.DisplayAnswer(out.Answer)
}

// Message is the human-readable result: the answer or a fallback string.
func (out Outcome) Message() string {
	switch KindOf(out.Err) {
	case RecognizeFailed:
		return NoTextMessage
	case InferFailed:
		return NoAnswerMessage
	}
	return out.Answer
}
