package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/kbinani/screenshot"
)

// ErrNoDisplay is returned when no active display surface exists.
var ErrNoDisplay = errors.New("no active displays found")

// Capturer snapshots the primary display into a fixed file path, replacing
// the previous capture.
type Capturer struct {
	Path string

	// grab is replaceable in tests; defaults to the primary display.
	grab func() (*image.RGBA, error)
}

func NewCapturer(path string) *Capturer {
	return &Capturer{Path: path, grab: capturePrimary}
}

// Capture writes a PNG of the primary display and returns its path.
func (c *Capturer) Capture(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	grab := c.grab
	if grab == nil {
		grab = capturePrimary
	}

	img, err := grab()
	if err != nil {
		return "", err
	}
	if err := writePNG(c.Path, img); err != nil {
		return "", err
	}
	log.Printf("Screenshot saved to %s (%dx%d)", c.Path, img.Bounds().Dx(), img.Bounds().Dy())
	return c.Path, nil
}

// PrimaryBounds returns the bounds of the primary display (display 0).
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	return screenshot.GetDisplayBounds(0), nil
}

func capturePrimary() (*image.RGBA, error) {
	bounds, err := PrimaryBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture primary display: %w", err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return f.Close()
}
