// Package input synthesizes mouse and keyboard events with robotgo. Every
// action is followed by a fixed pause so the legacy UI can catch up.
package input

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"

	"sefip-robot/src/screenshot"
)

// DefaultPause is the wait after every synthesized action.
const DefaultPause = 1500 * time.Millisecond

// driver is the subset of robotgo the robot uses.
type driver interface {
	move(x, y int)
	click(double bool)
	typeStr(s string)
	keyTap(key string, modifiers ...string) error
}

type robotgoDriver struct{}

func (robotgoDriver) move(x, y int) { robotgo.Move(x, y) }

func (robotgoDriver) click(double bool) { robotgo.Click("left", double) }

func (robotgoDriver) typeStr(s string) { robotgo.TypeStr(s) }

func (robotgoDriver) keyTap(key string, modifiers ...string) error {
	if len(modifiers) == 0 {
		return robotgo.KeyTap(key)
	}
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

// Robot implements robot.Input.
type Robot struct {
	Pause time.Duration
	drv   driver
	sleep func(time.Duration)
}

// New returns a Robot that pauses for pause after each action; zero means
// DefaultPause.
func New(pause time.Duration) *Robot {
	if pause <= 0 {
		pause = DefaultPause
	}
	return &Robot{Pause: pause, drv: robotgoDriver{}, sleep: time.Sleep}
}

func (r *Robot) Click(p screenshot.Point) error {
	r.drv.move(p.X, p.Y)
	r.drv.click(false)
	r.pause()
	return nil
}

func (r *Robot) DoubleClick(p screenshot.Point) error {
	r.drv.move(p.X, p.Y)
	r.drv.click(true)
	r.pause()
	return nil
}

func (r *Robot) Type(text string) error {
	r.drv.typeStr(text)
	r.pause()
	return nil
}

// Press taps each key, pausing after every tap.
func (r *Robot) Press(keys ...string) error {
	for _, k := range keys {
		if err := r.drv.keyTap(normalizeKey(k)); err != nil {
			return fmt.Errorf("tecla %s: %w", k, err)
		}
		r.pause()
	}
	return nil
}

// Hotkey presses a chord such as ctrl+m.
func (r *Robot) Hotkey(keys ...string) error {
	key, mods, err := chord(keys)
	if err != nil {
		return err
	}
	if err := r.drv.keyTap(key, mods...); err != nil {
		return fmt.Errorf("atalho %s: %w", strings.Join(keys, "+"), err)
	}
	r.pause()
	return nil
}

func (r *Robot) pause() {
	if r.Pause > 0 && r.sleep != nil {
		r.sleep(r.Pause)
	}
}

// chord splits keys into the tapped key (last) and its held modifiers.
func chord(keys []string) (string, []string, error) {
	if len(keys) == 0 {
		return "", nil, fmt.Errorf("atalho vazio")
	}
	mods := make([]string, 0, len(keys)-1)
	for _, k := range keys[:len(keys)-1] {
		m := normalizeKey(k)
		switch m {
		case "ctrl", "alt", "shift", "cmd":
			mods = append(mods, m)
		default:
			return "", nil, fmt.Errorf("modificador inválido: %s", k)
		}
	}
	return normalizeKey(keys[len(keys)-1]), mods, nil
}

// normalizeKey maps common key spellings to robotgo names.
func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	switch k {
	case "control":
		return "ctrl"
	case "return":
		return "enter"
	case "win", "super", "command":
		return "cmd"
	case "esc":
		return "escape"
	}
	return k
}
