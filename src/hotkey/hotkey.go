// Package hotkey watches for a global key chord (Ctrl+Alt+S by default)
// that starts the selected batch without focusing the window.
package hotkey

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
)

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Combo tracks which keys of a chord are held.
type Combo struct {
	text string
	mu   sync.Mutex
	keys []keyState
}

// ParseCombo builds a Combo from text like "Ctrl+Alt+S".
func ParseCombo(text string) (*Combo, error) {
	names := parseHotkey(text)
	if len(names) == 0 {
		return nil, fmt.Errorf("atalho vazio")
	}
	c := &Combo{text: text}
	for _, n := range names {
		codes := keyNameToRawcodes(n)
		if len(codes) == 0 {
			return nil, fmt.Errorf("tecla desconhecida no atalho %q: %s", text, n)
		}
		c.keys = append(c.keys, keyState{name: n, rawcodes: codes})
	}
	return c, nil
}

func (c *Combo) String() string { return c.text }

// KeyDown records a press and reports whether the whole chord is now held.
// A completed chord resets so holding it fires once.
func (c *Combo) KeyDown(rawcode uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(rawcode, true)
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

// KeyUp records a release.
func (c *Combo) KeyUp(rawcode uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(rawcode, false)
}

func (c *Combo) set(rawcode uint16, pressed bool) {
	for i := range c.keys {
		for _, rc := range c.keys[i].rawcodes {
			if rc == rawcode {
				c.keys[i].pressed = pressed
				break
			}
		}
	}
}

// Listen calls callback each time the chord is pressed, until ctx is done.
// It returns an error only when the combo cannot be parsed.
func Listen(ctx context.Context, text string, log zerolog.Logger, callback func()) error {
	combo, err := ParseCombo(text)
	if err != nil {
		return err
	}
	log.Info().Str("hotkey", text).Msg("Hotkey listener configured")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("PANIC in hotkey goroutine")
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Error().Msg("gohook.Start() returned nil channel")
			return
		}
		defer gohook.End()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-evChan:
				if !ok {
					log.Debug().Msg("Event channel closed")
					return
				}
				switch ev.Kind {
				case gohook.KeyDown:
					if combo.KeyDown(ev.Rawcode) && callback != nil {
						log.Debug().Str("hotkey", text).Msg("Hotkey activated")
						callback()
					}
				case gohook.KeyUp:
					combo.KeyUp(ev.Rawcode)
				}
			}
		}
	}()
	return nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+s" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":  {32},
	"enter":  {13},
	"return": {13},
	"esc":    {27},
	"escape": {27},
	"tab":    {9},
	"home":   {36},
	"end":    {35},
	"pause":  {19},
	"insert": {45},
	"delete": {46},
	"left":   {37},
	"up":     {38},
	"right":  {39},
	"down":   {40},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes
// (both left and right variants for modifiers).
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if keyName == "win" || keyName == "super" {
		keyName = "cmd"
	}
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		switch ch := keyName[0]; {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16('A' + ch - 'a')} // VK 0x41-0x5A
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch)} // VK 0x30-0x39
		}
	}
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}
	return nil
}
