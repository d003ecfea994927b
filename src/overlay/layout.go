package overlay

import "image"

// ButtonSize is the fixed size of the capture and toggle buttons.
var ButtonSize = image.Pt(100, 50)

// BottomRight places a box of the given size so that its bottom-right corner
// sits margin pixels inside the screen's bottom-right corner.
func BottomRight(screen image.Rectangle, size image.Point, margin int) image.Point {
	return image.Pt(screen.Max.X-size.X-margin, screen.Max.Y-size.Y-margin)
}

// CaptureButtonOrigin anchors the capture button to the bottom-left corner.
func CaptureButtonOrigin(screen image.Rectangle) image.Point {
	return image.Pt(screen.Min.X+10, screen.Max.Y-100)
}

// ToggleButtonOrigin anchors the toggle button to the top-right corner,
// partly above the screen so only the label shows.
func ToggleButtonOrigin(screen image.Rectangle) image.Point {
	return image.Pt(screen.Max.X-150, screen.Min.Y-30)
}
