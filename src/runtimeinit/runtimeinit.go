package runtimeinit

import (
	"fmt"
	"log"

	"answer-overlay/src/clipboard"
	"answer-overlay/src/config"
	"answer-overlay/src/llm"
	"answer-overlay/src/logutil"
	"answer-overlay/src/ocr"
	"answer-overlay/src/screenshot"
	"answer-overlay/src/workflow"
)

const (
	appReferer = "https://github.com/answer-overlay/answer-overlay"
	appTitle   = "Answer Overlay"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// WantClipboard initializes the clipboard even when COPY_TO_CLIPBOARD is off.
	WantClipboard bool
}

// Runtime is everything a command needs after a successful bootstrap.
type Runtime struct {
	Config    *config.Config
	LLM       *llm.Client
	Workflow  *workflow.Workflow
	Clipboard bool
}

// Bootstrap loads and validates configuration and builds the workflow. It
// fails before anything is shown on screen when the credential is missing.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := llm.New(llm.Config{
		APIKey:      cfg.APIKey,
		URL:         cfg.APIURL,
		Model:       cfg.Model,
		VisionModel: cfg.VisionModel,
		Providers:   cfg.Providers,
		Referer:     appReferer,
		Title:       appTitle,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	rt := &Runtime{
		Config: cfg,
		LLM:    client,
		Workflow: &workflow.Workflow{
			Capturer:   screenshot.NewCapturer(cfg.ScreenshotPath),
			Recognizer: NewRecognizer(cfg, client),
			Answerer:   client,
		},
	}

	if cfg.CopyToClipboard || opts.WantClipboard {
		if err := clipboard.Init(); err != nil {
			log.Printf("Clipboard unavailable, answers will not be copied: %v", err)
		} else {
			rt.Clipboard = true
		}
	}

	log.Printf("Using model %s at %s (key %s)", cfg.Model, cfg.APIURL, logutil.RedactKey(cfg.APIKey))
	log.Printf("OCR engine: %s, screenshot path: %s", cfg.OCREngine, cfg.ScreenshotPath)
	return rt, nil
}

// NewRecognizer picks the OCR engine named by the configuration.
func NewRecognizer(cfg *config.Config, client *llm.Client) ocr.Recognizer {
	if cfg.OCREngine == config.OCREngineVision {
		return ocr.Vision{Client: client}
	}
	return ocr.Tesseract{Language: cfg.OCRLanguage}
}
