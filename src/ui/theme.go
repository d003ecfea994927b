package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	lightGrey = color.NRGBA{R: 0xd3, G: 0xd3, B: 0xd3, A: 0xff}
	dimmed    = color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0x40}
)

// overlayTheme keeps text light grey on a near-invisible background.
type overlayTheme struct {
	base fyne.Theme
}

func (t overlayTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameForeground:
		return lightGrey
	case theme.ColorNameBackground, theme.ColorNameButton, theme.ColorNameOverlayBackground:
		return dimmed
	case theme.ColorNameShadow:
		return color.Transparent
	}
	return t.base.Color(name, variant)
}

func (t overlayTheme) Font(style fyne.TextStyle) fyne.Resource { return t.base.Font(style) }

func (t overlayTheme) Icon(name fyne.ThemeIconName) fyne.Resource { return t.base.Icon(name) }

func (t overlayTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return textSizeLabel
	}
	return t.base.Size(name)
}

var trayIcon = fyne.NewStaticResource("tray.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="2" y="2" width="12" height="9" fill="none" stroke="#0078d4" stroke-width="1.5" stroke-dasharray="2,1"/>
  <rect x="8" y="9" width="6" height="5" rx="1" fill="#333333" opacity="0.8"/>
  <line x1="9" y1="11.5" x2="13" y2="11.5" stroke="#d3d3d3" stroke-width="1"/>
</svg>`))
