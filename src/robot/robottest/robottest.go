// Package robottest provides in-memory doubles for the screen, the input
// devices and the operator so executors can be driven without a display.
package robottest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sefip-robot/src/robot"
	"sefip-robot/src/screenshot"
)

// Clock is a manual clock; Sleep advances it instead of blocking.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 24, 9, 0, 0, 0, time.Local)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// Screen is a scripted Locator. Each anchor name maps to a rule deciding
// whether it is visible on a given call (1-based per anchor).
type Screen struct {
	mu    sync.Mutex
	rules map[string]func(call int) (screenshot.Point, bool, error)
	calls map[string]int
	order []string
}

func NewScreen() *Screen {
	return &Screen{
		rules: map[string]func(int) (screenshot.Point, bool, error){},
		calls: map[string]int{},
	}
}

// Show makes the anchor visible at p on every call.
func (s *Screen) Show(name string, p screenshot.Point) *Screen {
	return s.Rule(name, func(int) (screenshot.Point, bool, error) { return p, true, nil })
}

// Hide keeps the anchor off screen.
func (s *Screen) Hide(name string) *Screen {
	return s.Rule(name, func(int) (screenshot.Point, bool, error) { return screenshot.Point{}, false, nil })
}

func (s *Screen) Rule(name string, fn func(call int) (screenshot.Point, bool, error)) *Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[name] = fn
	return s
}

// Default point used for anchors without a rule.
var Default = screenshot.Point{X: 100, Y: 100}

func (s *Screen) Locate(ctx context.Context, path string, confidence float64) (screenshot.Point, bool, error) {
	name := filepath.Base(path)
	s.mu.Lock()
	s.calls[name]++
	call := s.calls[name]
	s.order = append(s.order, name)
	rule, ok := s.rules[name]
	s.mu.Unlock()
	if !ok {
		return Default, true, nil
	}
	return rule(call)
}

// Calls returns how many times the anchor was looked up.
func (s *Screen) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Input records every synthesized event as a readable string.
type Input struct {
	mu     sync.Mutex
	Events []string
}

func (in *Input) record(format string, args ...any) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.Events = append(in.Events, fmt.Sprintf(format, args...))
	return nil
}

func (in *Input) Click(p screenshot.Point) error       { return in.record("click %d,%d", p.X, p.Y) }
func (in *Input) DoubleClick(p screenshot.Point) error { return in.record("double %d,%d", p.X, p.Y) }
func (in *Input) Type(text string) error               { return in.record("type %s", text) }
func (in *Input) Press(keys ...string) error {
	return in.record("press %s", strings.Join(keys, " "))
}
func (in *Input) Hotkey(keys ...string) error {
	return in.record("hotkey %s", strings.Join(keys, "+"))
}

func (in *Input) Snapshot() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.Events...)
}

// Operator answers recovery prompts from a script and counts them.
type Operator struct {
	mu      sync.Mutex
	choices []robot.RecoveryChoice
	Asked   []string
}

func NewOperator(choices ...robot.RecoveryChoice) *Operator {
	return &Operator{choices: choices}
}

func (o *Operator) Decide(ctx context.Context, anchor string) (robot.RecoveryChoice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Asked = append(o.Asked, anchor)
	if len(o.choices) == 0 {
		return robot.Cancel, fmt.Errorf("no scripted answer for %s", anchor)
	}
	c := o.choices[0]
	o.choices = o.choices[1:]
	return c, nil
}

func (o *Operator) Prompts() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Asked)
}

// Log collects executor log lines.
type Log struct {
	mu    sync.Mutex
	Lines []string
}

func (l *Log) add(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *Log) Infof(format string, args ...any)  { l.add("INF", format, args...) }
func (l *Log) Warnf(format string, args ...any)  { l.add("WRN", format, args...) }
func (l *Log) Errorf(format string, args ...any) { l.add("ERR", format, args...) }
func (l *Log) Line(text string)                  { l.add("---", "%s", text) }

// Count returns how many lines contain substr.
func (l *Log) Count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.Lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// Images creates empty template files for the given anchor names and
// returns the directory.
func Images(t testing.TB, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("png"), 0o644); err != nil {
			t.Fatalf("write template %s: %v", n, err)
		}
	}
	return dir
}

// Executor wires the doubles into an executor using a manual clock.
func Executor(imagesDir string, screen *Screen, in *Input, op robot.Decider, log robot.Logger) *robot.Executor {
	clock := NewClock()
	return &robot.Executor{
		ImagesDir:    imagesDir,
		Locator:      screen,
		Input:        in,
		Decider:      op,
		Log:          log,
		PollInterval: robot.DefaultPollInterval,
		Now:          clock.Now,
		Sleep:        clock.Sleep,
	}
}
