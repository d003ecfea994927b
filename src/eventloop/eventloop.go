package eventloop

import (
	"context"
	"errors"
	"log"
	"time"

	"answer-overlay/src/messages"
	"answer-overlay/src/overlay"
	"answer-overlay/src/worker"
	"answer-overlay/src/workflow"
)

// ErrBusy is reported to delegated callers when a run is already in flight.
var ErrBusy = errors.New("busy, please retry")

const defaultDeadline = 60 * time.Second

// Runner is satisfied by *workflow.Workflow.
type Runner interface {
	Run(ctx context.Context) workflow.Outcome
}

type Options struct {
	Overlay  *overlay.Overlay
	Renderer overlay.Renderer
	Workflow Runner
	// Deadline bounds one workflow run; <=0 uses 60s.
	Deadline time.Duration
	// OnAnswer is called on the loop goroutine after a successful run.
	OnAnswer func(answer string) error
	// OnBusy is called whenever the busy state flips.
	OnBusy func(busy bool)
}

// Loop is the single goroutine that owns the overlay. Input handlers talk to
// it only through Post.
type Loop struct {
	overlay  *overlay.Overlay
	renderer overlay.Renderer
	workflow Runner
	pool     *worker.Pool
	inbox    chan messages.Message
	results  chan result
	busy     bool
	deadline time.Duration
	onAnswer func(string) error
	onBusy   func(bool)
}

type result struct {
	done   messages.WorkflowDone
	cancel context.CancelFunc
}

func New(opts Options) *Loop {
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Loop{
		overlay:  opts.Overlay,
		renderer: opts.Renderer,
		workflow: opts.Workflow,
		pool:     worker.New(1),
		inbox:    make(chan messages.Message, 8),
		results:  make(chan result, 1),
		deadline: deadline,
		onAnswer: opts.OnAnswer,
		onBusy:   opts.OnBusy,
	}
}

// Post queues msg for the loop. It never blocks; a full inbox drops msg.
func (l *Loop) Post(msg messages.Message) bool {
	select {
	case l.inbox <- msg:
		return true
	default:
		log.Printf("eventloop: inbox full, dropping %s", msg.Type())
		return false
	}
}

// Run processes messages until ctx is cancelled or a Quit arrives.
func (l *Loop) Run(ctx context.Context) error {
	// cancel runs first so in-flight jobs stop waiting on results
	ctx, cancel := context.WithCancel(ctx)
	defer l.pool.Close()
	defer cancel()
	l.render()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-l.inbox:
			if _, quit := msg.(messages.Quit); quit {
				log.Printf("eventloop: quit requested")
				return nil
			}
			l.handle(ctx, msg)
		case res := <-l.results:
			l.handleDone(res)
		}
	}
}

func (l *Loop) handle(ctx context.Context, msg messages.Message) {
	switch m := msg.(type) {
	case messages.Capture:
		l.handleCapture(ctx, m)
	case messages.Toggle:
		l.overlay.Toggle()
		l.render()
		if m.Reply != nil {
			m.Reply.Success(l.overlay.State().ToggleLabel)
		}
	default:
		log.Printf("eventloop: ignoring %s", msg.Type())
	}
}

func (l *Loop) handleCapture(ctx context.Context, m messages.Capture) {
	log.Printf("eventloop: capture requested by %s", m.Source)
	if l.busy {
		log.Printf("eventloop: busy, skipping")
		if m.Reply != nil {
			m.Reply.Failure(ErrBusy)
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, func(jobCtx context.Context) {
		out := l.workflow.Run(jobCtx)
		select {
		case l.results <- result{done: messages.WorkflowDone{Outcome: out, Reply: m.Reply}, cancel: cancel}:
		case <-ctx.Done():
			cancel()
		}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		if m.Reply != nil {
			m.Reply.Failure(ErrBusy)
		}
	}
}

func (l *Loop) handleDone(res result) {
	defer res.cancel()
	l.setBusy(false)

	out := res.done.Outcome
	log.Printf("eventloop: run %s finished in %s, err=%v", out.RunID, out.Elapsed, out.Err)
	if out.Apply(l.overlay) {
		l.render()
	}

	if out.Err == nil && l.onAnswer != nil {
		if err := l.onAnswer(out.Answer); err != nil {
			log.Printf("eventloop: answer hook failed: %v", err)
		}
	}

	if reply := res.done.Reply; reply != nil {
		if out.Err != nil {
			reply.Failure(out.Err)
		} else {
			reply.Success(out.Answer)
		}
	}
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.onBusy != nil {
		l.onBusy(b)
	}
}

func (l *Loop) render() {
	if l.renderer != nil {
		l.renderer.Render(l.overlay.State())
	}
}

// Deadline returns the per-run deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }
