package locator

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sefip-robot/src/screenshot"
)

// blocks draws a w x h image of size x size squares with random gray levels.
func blocks(seed int64, w, h, size int) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := imaging.New(w, h, color.White)
	for y := 0; y < h; y += size {
		for x := 0; x < w; x += size {
			v := uint8(r.Intn(256))
			sq := imaging.New(size, size, color.NRGBA{v, v, v, 255})
			img = imaging.Paste(img, sq, image.Pt(x, y))
		}
	}
	return img
}

func toRGBA(img image.Image) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

func screenWith(tpl image.Image, at image.Point) *image.RGBA {
	bg := imaging.New(400, 300, color.NRGBA{200, 200, 200, 255})
	if tpl != nil {
		bg = imaging.Paste(bg, tpl, at)
	}
	return toRGBA(bg)
}

func saveTemplate(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func fixed(img *image.RGBA, origin screenshot.Point) func() (screenshot.Frame, error) {
	return func() (screenshot.Frame, error) {
		return screenshot.Frame{Image: img, Origin: origin}, nil
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name   string
		tpl    *image.NRGBA
		at     image.Point
		origin screenshot.Point
	}{
		{"coarse to fine", blocks(1, 48, 32, 8), image.Pt(123, 77), screenshot.Point{}},
		{"small template full scan", blocks(2, 12, 10, 3), image.Pt(301, 211), screenshot.Point{}},
		{"monitor left of primary", blocks(3, 40, 40, 8), image.Pt(10, 250), screenshot.Point{X: -1920, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := saveTemplate(t, t.TempDir(), "anchor.png", tt.tpl)
			m := New(nil)
			m.Capture = fixed(screenWith(tt.tpl, tt.at), tt.origin)

			p, ok, err := m.Locate(context.Background(), path, 0.9)
			require.NoError(t, err)
			require.True(t, ok)
			b := tt.tpl.Bounds()
			assert.Equal(t, screenshot.Point{
				X: tt.origin.X + tt.at.X + b.Dx()/2,
				Y: tt.origin.Y + tt.at.Y + b.Dy()/2,
			}, p)
		})
	}
}

func TestLocateMissSavesOneDebugCapture(t *testing.T) {
	dir := t.TempDir()
	path := saveTemplate(t, dir, "ok.png", blocks(4, 32, 24, 8))
	debug := filepath.Join(dir, "debug")

	m := New(nil)
	m.DebugDir = debug
	m.Capture = fixed(screenWith(nil, image.Point{}), screenshot.Point{})

	for i := 0; i < 2; i++ {
		_, ok, err := m.Locate(context.Background(), path, 0.9)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	files, err := os.ReadDir(debug)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestLocateMissingTemplate(t *testing.T) {
	m := New(nil)
	m.Capture = fixed(screenWith(nil, image.Point{}), screenshot.Point{})
	_, _, err := m.Locate(context.Background(), filepath.Join(t.TempDir(), "nada.png"), 0.9)
	assert.Error(t, err)
}

func TestLocateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New(nil).Locate(ctx, "x.png", 0.9)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidateReloadsTemplate(t *testing.T) {
	dir := t.TempDir()
	first := blocks(5, 40, 32, 8)
	path := saveTemplate(t, dir, "sim.png", first)

	m := New(nil)
	m.Capture = fixed(screenWith(first, image.Pt(50, 60)), screenshot.Point{})

	_, ok, err := m.Locate(context.Background(), path, 0.9)
	require.NoError(t, err)
	require.True(t, ok)

	saveTemplate(t, dir, "sim.png", blocks(6, 40, 32, 8))
	_, ok, _ = m.Locate(context.Background(), path, 0.9)
	assert.True(t, ok, "cached copy still in use")

	m.Invalidate(path)
	_, ok, err = m.Locate(context.Background(), path, 0.9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatchInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	img := blocks(7, 16, 16, 4)
	path := saveTemplate(t, dir, "menu.png", img)

	m := New(nil)
	_, err := m.template(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx, dir) }()

	cached := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, ok := m.cache[filepath.Clean(path)]
		return ok
	}
	require.Eventually(t, func() bool {
		saveTemplate(t, dir, "menu.png", img)
		return !cached()
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestScoreFlatTemplate(t *testing.T) {
	white := newTemplate(newPlane(imaging.New(8, 8, color.White)))
	scr := newPlane(imaging.New(16, 16, color.White))
	assert.InDelta(t, 1.0, score(scr, white, 4, 4), 1e-9)

	black := newPlane(imaging.New(16, 16, color.Black))
	assert.InDelta(t, 0.0, score(black, white, 0, 0), 1e-9)
}

func TestFactor(t *testing.T) {
	assert.Equal(t, 1, factor(12, 40))
	assert.Equal(t, 2, factor(16, 40))
	assert.Equal(t, 4, factor(200, 64))
}

// strokes draws w x h of 1px black or white pixels, like rendered text.
func strokes(seed int64, w, h int) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			if r.Intn(2) == 0 {
				v = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func TestFindFineDetailAtAnyOffset(t *testing.T) {
	tests := []struct {
		w, h int
		at   image.Point
	}{
		{64, 20, image.Pt(0, 0)},
		{64, 20, image.Pt(1, 0)},
		{64, 20, image.Pt(0, 1)},
		{64, 20, image.Pt(1, 1)},
		{64, 20, image.Pt(123, 77)},
		{64, 40, image.Pt(5, 7)},
		{64, 40, image.Pt(202, 131)},
	}
	m := New(nil)
	for i, tt := range tests {
		tpl := strokes(int64(i+1), tt.w, tt.h)
		scr := imaging.Paste(strokes(int64(100+i), 400, 300), tpl, tt.at)
		e := &entry{t: newTemplate(newPlane(tpl)), coarse: map[int][]phase{}}

		p, ok := m.find(toRGBA(scr), e, 0.9)
		require.True(t, ok, "template %dx%d at %v", tt.w, tt.h, tt.at)
		assert.Equal(t, tt.at.Add(image.Pt(tt.w/2, tt.h/2)), p, "template %dx%d at %v", tt.w, tt.h, tt.at)
	}
}

func TestShrinkAveragesFromOrigin(t *testing.T) {
	p := &plane{w: 3, h: 3, px: []float64{
		0, 0, 0,
		0, 10, 20,
		0, 30, 40,
	}}
	p.integrate()

	q := p.shrink(2, 1, 1)
	require.Equal(t, 1, q.w)
	require.Equal(t, 1, q.h)
	assert.InDelta(t, 25.0, q.px[0], 1e-9)
	assert.Len(t, phases(newTemplate(p), 2), 4)
}
