package ocr

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"answer-overlay/src/logutil"
)

// Recognizer extracts plain text from an image file.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// VisionQuerier is the subset of llm.Client used by Vision.
type VisionQuerier interface {
	QueryVision(ctx context.Context, imageData []byte) (string, error)
}

// Vision sends the whole image to a vision-capable chat model.
type Vision struct {
	Client VisionQuerier
}

func (v Vision) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", imagePath, err)
	}
	text, err := v.Client.QueryVision(ctx, data)
	if err != nil {
		return "", err
	}
	return finish(text), nil
}

// finish trims the recognized text and logs a sanitized preview.
func finish(text string) string {
	text = strings.TrimSpace(text)
	log.Printf("Extracted text (%d chars): %q", len(text), logutil.Sanitize(text, 100))
	return text
}
