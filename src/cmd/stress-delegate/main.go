package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"answer-overlay/src/config"
	"answer-overlay/src/singleinstance"
)

type stressOptions struct {
	n        int
	action   string
	deadline time.Duration
}

type tally struct {
	ok, busy, missed, failed int32
}

func (t *tally) String() string {
	return fmt.Sprintf("ok=%d busy=%d no-resident=%d err=%d", t.ok, t.busy, t.missed, t.failed)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	return newRootCmd(opts).Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-delegate",
		Short:         "Fire concurrent requests at a running overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := parseAction(opts.action)
			if err != nil {
				return err
			}
			start := time.Now()
			// .env may move the port range
			cfg, _ := config.Load()
			t := stress(cmd.Context(), singleinstance.NewClient(singleinstance.PortsFrom(cfg)), action, *opts)
			report(cmd.OutOrStdout(), opts.n, t, time.Since(start))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent clients")
	cmd.Flags().StringVar(&opts.action, "action", "capture", "capture|toggle")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func parseAction(s string) (singleinstance.Action, error) {
	switch strings.ToLower(s) {
	case "capture":
		return singleinstance.ActionCapture, nil
	case "toggle":
		return singleinstance.ActionToggle, nil
	}
	return 0, fmt.Errorf("unknown action %q (want capture or toggle)", s)
}

type sender interface {
	Send(ctx context.Context, action singleinstance.Action) (bool, string, error)
}

// stress sends opts.n requests at once. With a single-run resident all but
// one capture should come back busy.
func stress(ctx context.Context, client sender, action singleinstance.Action, opts stressOptions) *tally {
	var wg sync.WaitGroup
	t := &tally{}

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()

			delegated, _, err := client.Send(cctx, action)
			switch {
			case !delegated:
				atomic.AddInt32(&t.missed, 1)
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&t.busy, 1)
			case err != nil:
				atomic.AddInt32(&t.failed, 1)
			default:
				atomic.AddInt32(&t.ok, 1)
			}
		}()
	}
	wg.Wait()
	return t
}

func report(w io.Writer, n int, t *tally, elapsed time.Duration) {
	fmt.Fprintf(w, "launched=%d %s elapsed=%s\n", n, t, elapsed)
}
