package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"answer-overlay/src/config"
	"answer-overlay/src/logutil"
	"answer-overlay/src/runtimeinit"
	"answer-overlay/src/workflow"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	apiKeyPath string
}

func main() {
	if err := run(); err != nil {
		// fallback text is already on stdout
		if !workflow.IsFallback(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-answer"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-answer",
		Short:         "Recognize the question in a PNG and print the answer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	// Logging goes to stderr only in verbose mode so stdout stays clean.
	setupLogging := func(bool) { log.SetOutput(io.Discard) }
	if opts.verbose {
		setupLogging = func(bool) { log.SetOutput(stderr) }
		fmt.Fprintf(stderr, "[verbose] Starting ocr-answer\n")
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  configOptions(opts),
		SetupLogging: setupLogging,
	})
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] Model=%s OCR=%s key=%s\n", rt.Config.Model, rt.Config.OCREngine, logutil.RedactKey(rt.Config.APIKey))
	}

	imagePath, cleanup, err := prepareInput(opts.filePath, stdin)
	if err != nil {
		return err
	}
	defer cleanup()

	wf := &workflow.Workflow{
		Capturer:   fileCapturer{path: imagePath},
		Recognizer: rt.Workflow.Recognizer,
		Answerer:   rt.Workflow.Answerer,
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(rt.Config.DeadlineSec)*time.Second)
	defer cancel()

	out := wf.Run(ctx)
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] Run %s finished in %v\n", out.RunID, out.Elapsed)
	}
	if out.Err != nil && !workflow.IsFallback(out.Err) {
		return out.Err
	}
	if err := outputResult(stdout, out, opts.filePath, opts.jsonOutput); err != nil {
		return err
	}
	return out.Err
}

func configOptions(opts cliOptions) config.LoadOptions {
	return config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "api-key-path"} {
			single := "-" + name
			if arg == single || strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

// fileCapturer stands in for the screen: the "capture" is an existing file.
type fileCapturer struct {
	path string
}

func (f fileCapturer) Capture(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.path, nil
}

// prepareInput validates the image and returns a path the recognizer can
// read. Stdin input is spooled to a temp file removed by cleanup.
func prepareInput(filePath string, stdin io.Reader) (string, func(), error) {
	noop := func() {}
	data, err := readInput(filePath, stdin)
	if err != nil {
		return "", noop, err
	}
	if err := validatePNG(data); err != nil {
		return "", noop, err
	}
	if filePath != "-" {
		return filePath, noop, nil
	}

	dir, err := os.MkdirTemp("", "ocr-answer")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	path := filepath.Join(dir, "stdin.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to spool stdin: %w", err)
	}
	return path, cleanup, nil
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return errors.New("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

type AnswerResult struct {
	Text      string  `json:"text"`
	Answer    string  `json:"answer"`
	Message   string  `json:"message"`
	RunID     string  `json:"run_id"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

// outputResult prints the answer, or the overlay's fallback text when a
// step came back empty.
func outputResult(w io.Writer, out workflow.Outcome, sourcePath string, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, out.Message())
		return err
	}

	result := AnswerResult{
		Text:      out.Text,
		Answer:    out.Answer,
		Message:   out.Message(),
		RunID:     out.RunID,
		Source:    sourcePath,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  out.Elapsed.Seconds(),
		CharCount: len(out.Text),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
