package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"answer-overlay/src/clipboard"
	"answer-overlay/src/config"
	"answer-overlay/src/eventloop"
	"answer-overlay/src/hotkey"
	"answer-overlay/src/logutil"
	"answer-overlay/src/messages"
	"answer-overlay/src/notification"
	"answer-overlay/src/overlay"
	"answer-overlay/src/runtimeinit"
	"answer-overlay/src/screenshot"
	"answer-overlay/src/session"
	"answer-overlay/src/singleinstance"
	"answer-overlay/src/ui"
	"answer-overlay/src/workflow"
)

const (
	appID = "com.answeroverlay.app"
	// extra time a delegating client waits beyond the resident's own deadline
	delegationSlack = 5 * time.Second
	pingTimeout     = 15 * time.Second
)

var errNoResident = errors.New("no running overlay found")

type mainOptions struct {
	runOnce    bool
	apiKeyPath string
	envFile    string
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{APIKeyPathOverride: o.apiKeyPath, EnvFileOverride: o.envFile}
}

// delegator is satisfied by singleinstance.Client.
type delegator interface {
	Send(ctx context.Context, action singleinstance.Action) (bool, string, error)
}

func main() {
	if err := run(os.Args); err != nil {
		// fallback text is already on stdout
		if !workflow.IsFallback(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	args = normalizeLegacyArgs(args)
	if len(args) == 0 {
		args = []string{"answer-overlay"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(&mainOptions{})
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "answer-overlay",
		Short:         "Answer the question on screen in a translucent overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.runOnce {
				return runOnce(cmd.Context(), *opts)
			}
			return runResident(cmd.Context(), *opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	pf.StringVar(&opts.envFile, "env-file", "", "Path to .env file")
	cmd.Flags().BoolVar(&opts.runOnce, "run-once", false, "Answer once and print to stdout (delegates to a running overlay)")

	cmd.AddCommand(
		newDelegateCmd(opts, "trigger", "Ask the running overlay to capture and answer", singleinstance.ActionCapture),
		newDelegateCmd(opts, "toggle", "Show or hide the running overlay's answer", singleinstance.ActionToggle),
		newCheckCmd(opts),
	)
	return cmd
}

func newDelegateCmd(opts *mainOptions, use, short string, action singleinstance.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env may move the port range
			cfg, _ := config.LoadWithOptions(opts.loadOptions())
			ctx, cancel := context.WithTimeout(cmd.Context(), delegationTimeout(cfg))
			defer cancel()
			return delegate(ctx, singleinstance.NewClient(singleinstance.PortsFrom(cfg)), action, cmd.OutOrStdout())
		},
	}
}

func newCheckCmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and ping the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: opts.loadOptions(), SetupLogging: logutil.Setup})
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
			defer cancel()
			if err := rt.LLM.Ping(ctx); err != nil {
				return fmt.Errorf("API check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s reachable at %s (OCR: %s)\n", rt.Config.Model, rt.Config.APIURL, rt.Config.OCREngine)
			return nil
		},
	}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"run-once", "api-key-path", "env-file"} {
			single := "-" + name
			if arg == single || strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func delegationTimeout(cfg *config.Config) time.Duration {
	sec := config.DefaultDeadlineSec
	if cfg != nil && cfg.DeadlineSec > 0 {
		sec = cfg.DeadlineSec
	}
	return time.Duration(sec)*time.Second + delegationSlack
}

func delegate(ctx context.Context, client delegator, action singleinstance.Action, out io.Writer) error {
	delegated, text, err := client.Send(ctx, action)
	if !delegated {
		return errNoResident
	}
	if err != nil {
		// the resident reports fallbacks as errors; print them like a local run
		if kind, ok := workflow.FallbackKind(err.Error()); ok {
			fmt.Fprintln(out, err.Error())
			return &workflow.StepError{Kind: kind, Err: err}
		}
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}

func runOnce(ctx context.Context, opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* apply to the scan
	cfg, _ := config.LoadWithOptions(opts.loadOptions())
	dctx, cancel := context.WithTimeout(ctx, delegationTimeout(cfg))
	defer cancel()

	return handleRunOnceWithDelegation(dctx, singleinstance.NewClient(singleinstance.PortsFrom(cfg)), os.Stdout, func() error {
		return runStandalone(ctx, opts)
	})
}

func handleRunOnceWithDelegation(ctx context.Context, client delegator, out io.Writer, fallback func() error) error {
	err := delegate(ctx, client, singleinstance.ActionCapture, out)
	if errors.Is(err, errNoResident) {
		log.Printf("No resident detected, running standalone")
		return fallback()
	}
	if err != nil {
		return fmt.Errorf("resident: %w", err)
	}
	log.Printf("Delegated to resident")
	return nil
}

func runStandalone(ctx context.Context, opts mainOptions) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: opts.loadOptions(), SetupLogging: logutil.Setup})
	if err != nil {
		return err
	}

	out, err := session.Execute(ctx, session.Options{
		Deadline: time.Duration(rt.Config.DeadlineSec) * time.Second,
		Workflow: rt.Workflow,
		Target:   session.StdoutTarget{},
	})
	if err != nil {
		return err
	}
	if rt.Clipboard {
		if err := (session.ClipboardTarget{}).OnSuccess(out.Answer); err != nil {
			log.Printf("Failed to copy answer to clipboard: %v", err)
		}
	}
	return nil
}

func runResident(ctx context.Context, opts mainOptions) error {
	enableDPIAwareness()

	// Missing credential fails here, before any window exists.
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: opts.loadOptions(), SetupLogging: logutil.Setup})
	if err != nil {
		return err
	}
	cfg := rt.Config

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ports := singleinstance.PortsFrom(cfg)
	server := singleinstance.NewServer(ports)
	if err := server.Start(ctx); err != nil {
		notification.ShowBlockingError("Answer Overlay", fmt.Sprintf("Another overlay is already running (port %d busy).", ports.Start))
		return err
	}
	defer server.Close()

	var loop *eventloop.Loop
	post := func(m messages.Message) bool { return loop.Post(m) }

	screen := newScreenBounds()
	shell := ui.New(app.NewWithID(appID), ui.Options{ButtonLabel: cfg.ButtonLabel, Screen: screen, Post: post})
	loop = eventloop.New(eventloop.Options{
		Overlay:  overlay.New(screen, shell),
		Renderer: shell,
		Workflow: rt.Workflow,
		Deadline: time.Duration(cfg.DeadlineSec) * time.Second,
		OnAnswer: answerHook(rt),
		OnBusy:   shell.SetBusy,
	})

	go func() {
		if err := loop.Run(ctx); err != nil {
			log.Printf("event loop stopped: %v", err)
		}
		shell.Quit()
	}()
	go serveDelegated(ctx, server, post)

	if cfg.Hotkey != "" {
		stopHotkey, err := hotkey.Listen(cfg.Hotkey, func() {
			post(messages.Capture{Source: messages.SourceHotkey})
		})
		if err != nil {
			log.Printf("Hotkey disabled: %v", err)
		} else {
			defer stopHotkey()
		}
	}

	log.Printf("Answer Overlay initialized (model %s, deadline %s, hotkey %q)", cfg.Model, loop.Deadline(), cfg.Hotkey)
	shell.Run()
	post(messages.Quit{})
	return nil
}

func answerHook(rt *runtimeinit.Runtime) func(string) error {
	if !rt.Clipboard {
		return nil
	}
	return clipboard.Write
}

// serveDelegated turns each client connection into a loop message whose
// reply answers and closes that connection.
func serveDelegated(ctx context.Context, server singleinstance.Server, post func(messages.Message) bool) {
	for {
		conn, err := server.Next(ctx)
		if err != nil {
			return
		}
		reply := session.Reply{Target: session.DelegatedTarget{Conn: conn}, Closer: conn}

		var msg messages.Message
		switch action := conn.Request().Action; action {
		case singleinstance.ActionCapture:
			msg = messages.Capture{Source: messages.SourceResident, Reply: reply}
		case singleinstance.ActionToggle:
			msg = messages.Toggle{Source: messages.SourceResident, Reply: reply}
		default:
			reply.Failure(fmt.Errorf("unsupported action %s", action))
			continue
		}
		if !post(msg) {
			reply.Failure(eventloop.ErrBusy)
		}
	}
}

// newScreenBounds returns a provider of the primary display bounds that
// falls back to the last good value when the display can't be queried.
func newScreenBounds() func() image.Rectangle {
	var mu sync.Mutex
	last := image.Rect(0, 0, 1920, 1080)
	return func() image.Rectangle {
		b, err := screenshot.PrimaryBounds()
		mu.Lock()
		defer mu.Unlock()
		if err != nil || b.Empty() {
			log.Printf("Screen bounds unavailable (%v), using %v", err, last)
			return last
		}
		last = b
		return b
	}
}
