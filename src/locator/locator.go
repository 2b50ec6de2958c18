// Package locator finds template images on the screen by normalized
// correlation on grayscale pixels. Templates are decoded once and cached
// until their file changes.
package locator

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"

	"sefip-robot/src/screenshot"
)

// Logger receives locator diagnostics.
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// Matcher implements robot.Locator over live screen captures.
type Matcher struct {
	// Capture grabs the screen; nil uses screenshot.Capture.
	Capture func() (screenshot.Frame, error)
	// DebugDir, when set, receives the capture of the first miss of each
	// template.
	DebugDir string
	Log      Logger

	mu     sync.Mutex
	cache  map[string]*entry
	missed map[string]bool
}

type entry struct {
	t      *tmpl
	coarse map[int][]phase
}

func New(log Logger) *Matcher {
	if log == nil {
		log = nopLogger{}
	}
	return &Matcher{Log: log}
}

// Locate captures the screen and returns the screen coordinate of the
// template's center when it matches with at least confidence.
func (m *Matcher) Locate(ctx context.Context, templatePath string, confidence float64) (screenshot.Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return screenshot.Point{}, false, err
	}
	e, err := m.template(templatePath)
	if err != nil {
		return screenshot.Point{}, false, err
	}

	capture := m.Capture
	if capture == nil {
		capture = screenshot.Capture
	}
	frame, err := capture()
	if err != nil {
		return screenshot.Point{}, false, fmt.Errorf("captura de tela: %w", err)
	}

	p, ok := m.find(frame.Image, e, confidence)
	if !ok {
		m.saveMiss(templatePath, frame)
		return screenshot.Point{}, false, nil
	}
	return frame.ToScreen(p), true, nil
}

// find returns the center of the best match of e in img.
func (m *Matcher) find(img image.Image, e *entry, confidence float64) (image.Point, bool) {
	full := newPlane(img)
	coarse := func(f int) (*plane, []phase) {
		return full.shrink(f, 0, 0), m.coarseTemplates(e, f)
	}
	at, _, ok := match(full, e.t, coarse, confidence)
	if !ok {
		return image.Point{}, false
	}
	return image.Pt(at.X+e.t.w/2, at.Y+e.t.h/2), true
}

func (m *Matcher) coarseTemplates(e *entry, f int) []phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts, ok := e.coarse[f]; ok {
		return ts
	}
	ts := phases(e.t, f)
	e.coarse[f] = ts
	return ts
}

func (m *Matcher) template(path string) (*entry, error) {
	key := filepath.Clean(path)
	m.mu.Lock()
	if e, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	img, err := imaging.Open(key)
	if err != nil {
		return nil, fmt.Errorf("abrir imagem %s: %w", filepath.Base(key), err)
	}
	e := &entry{t: newTemplate(newPlane(img)), coarse: map[int][]phase{}}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		m.cache = map[string]*entry{}
	}
	m.cache[key] = e
	return e, nil
}

// Invalidate drops the cached copy of a template so the next lookup decodes
// the file again.
func (m *Matcher) Invalidate(path string) {
	key := filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	delete(m.missed, key)
}

func (m *Matcher) saveMiss(path string, frame screenshot.Frame) {
	if m.DebugDir == "" || frame.Image == nil {
		return
	}
	key := filepath.Clean(path)
	m.mu.Lock()
	if m.missed == nil {
		m.missed = map[string]bool{}
	}
	seen := m.missed[key]
	m.missed[key] = true
	m.mu.Unlock()
	if seen {
		return
	}

	name := strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
	file := fmt.Sprintf("miss_%s_%s.png", name, time.Now().Format("20060102_150405"))
	if _, err := screenshot.SaveDebug(m.DebugDir, file, frame.Image); err != nil {
		m.Log.Warnf("Falha ao salvar captura de depuração: %v", err)
	}
}

// Watch invalidates cached templates when files in dir are written, created,
// renamed or removed. It blocks until ctx is done.
func (m *Matcher) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			m.Invalidate(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.Log.Warnf("Monitor de imagens: %v", err)
		}
	}
}
