package hotkey

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// ErrNoKeys is returned when a combination maps to no known keys.
var ErrNoKeys = errors.New("hotkey has no valid keys")

// Rawcodes are Windows virtual-key codes as reported by gohook.
var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"esc":       {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"insert":    {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pagedown":  {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

var aliases = map[string]string{
	"control": "ctrl",
	"option":  "alt",
	"win":     "cmd",
	"super":   "cmd",
	"meta":    "cmd",
	"command": "cmd",
	"return":  "enter",
	"escape":  "esc",
	"del":     "delete",
	"ins":     "insert",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
}

// rawcodesSupported reports whether gohook reports Windows virtual-key codes
// on goos, which is what the key table holds.
func rawcodesSupported(goos string) bool {
	return goos == "windows"
}

// Combo is a parsed key combination, e.g. "Ctrl+Shift+C".
type Combo struct {
	Text string
	keys []comboKey
}

type comboKey struct {
	name     string
	rawcodes []uint16
}

// Parse resolves every part of the combination to rawcodes.
func Parse(text string) (Combo, error) {
	c := Combo{Text: text}
	for _, name := range parseHotkey(text) {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return Combo{}, fmt.Errorf("hotkey %q: unknown key %q", text, name)
		}
		c.keys = append(c.keys, comboKey{name: name, rawcodes: codes})
	}
	if len(c.keys) == 0 {
		return Combo{}, fmt.Errorf("%w: %q", ErrNoKeys, text)
	}
	return c, nil
}

// Listen starts a global keyboard hook and calls callback whenever every key
// of the combination is held at once. The returned stop func ends the hook.
func Listen(text string, callback func()) (stop func(), err error) {
	combo, err := Parse(text)
	if err != nil {
		return nil, err
	}
	log.Printf("Hotkey listener configured for: %s", combo.Text)
	if !rawcodesSupported(runtime.GOOS) {
		log.Printf("WARNING: hotkey %s uses Windows key codes and will not fire on %s", combo.Text, runtime.GOOS)
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, errors.New("gohook.Start returned nil channel")
	}

	d := newDetector(combo)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			if d.feed(ev.Kind, ev.Rawcode) && callback != nil {
				log.Printf("Hotkey activated: %s", combo.Text)
				callback()
			}
		}
		log.Printf("Hotkey event channel closed")
	}()

	return gohook.End, nil
}

// detector tracks which keys of a combo are down.
type detector struct {
	mu      sync.Mutex
	combo   Combo
	pressed []bool
}

func newDetector(c Combo) *detector {
	return &detector{combo: c, pressed: make([]bool, len(c.keys))}
}

// feed records one key event and reports whether the combination just fired.
func (d *detector) feed(kind uint8, rawcode uint16) bool {
	if kind != gohook.KeyDown && kind != gohook.KeyUp {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, k := range d.combo.keys {
		for _, rc := range k.rawcodes {
			if rc == rawcode {
				d.pressed[i] = kind == gohook.KeyDown
			}
		}
	}
	if kind != gohook.KeyDown {
		return false
	}
	for _, p := range d.pressed {
		if !p {
			return false
		}
	}
	for i := range d.pressed {
		d.pressed[i] = false
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if canonical, ok := aliases[part]; ok {
			part = canonical
		}
		keys = append(keys, part)
	}
	return keys
}

// keyNameToRawcodes maps a key name to its rawcodes; modifiers map to both
// left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if canonical, ok := aliases[keyName]; ok {
		keyName = canonical
	}
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}

	if len(keyName) == 1 {
		switch c := keyName[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(65 + c - 'a')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(48 + c - '0')}
		}
	}

	// F1..F24 are VK_F1 (112) onwards
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
