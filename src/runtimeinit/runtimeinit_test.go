package runtimeinit

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-overlay/src/config"
	"answer-overlay/src/ocr"
)

func TestBootstrapMissingKey(t *testing.T) {
	t.Setenv(config.APIKeyEnvVar, "")
	t.Setenv(config.APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))

	loggingConfigured := false
	rt, err := Bootstrap(Options{SetupLogging: func(bool) { loggingConfigured = true }})
	require.Error(t, err)
	assert.Nil(t, rt)
	assert.True(t, errors.Is(err, config.ErrMissingAPIKey))
	assert.True(t, loggingConfigured, "logging is set up before validation so the failure is recorded")
}

func TestBootstrapBuildsWorkflow(t *testing.T) {
	t.Setenv(config.APIKeyEnvVar, "sk-test-key-123456")
	t.Setenv(config.APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv("OCR_ENGINE", "vision")
	t.Setenv("COPY_TO_CLIPBOARD", "false")

	rt, err := Bootstrap(Options{})
	require.NoError(t, err)
	require.NotNil(t, rt.Workflow)
	assert.Equal(t, config.DefaultModel, rt.LLM.Model())
	assert.IsType(t, ocr.Vision{}, rt.Workflow.Recognizer)
	assert.Same(t, rt.LLM, rt.Workflow.Answerer)
}

func TestNewRecognizerDefaultsToTesseract(t *testing.T) {
	r := NewRecognizer(&config.Config{OCREngine: config.OCREngineTesseract, OCRLanguage: "deu"}, nil)
	assert.Equal(t, ocr.Tesseract{Language: "deu"}, r)
}
