package locator

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// plane is a grayscale image as float intensities with integral tables for
// O(1) window sums.
type plane struct {
	w, h int
	px   []float64
	sum  []float64 // (w+1)*(h+1)
	sq   []float64
}

func newPlane(img image.Image) *plane {
	g := imaging.Grayscale(img)
	b := g.Bounds()
	p := &plane{w: b.Dx(), h: b.Dy()}
	p.px = make([]float64, p.w*p.h)
	for y := 0; y < p.h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < p.w; x++ {
			p.px[y*p.w+x] = float64(row[x*4])
		}
	}
	p.integrate()
	return p
}

func (p *plane) integrate() {
	stride := p.w + 1
	p.sum = make([]float64, stride*(p.h+1))
	p.sq = make([]float64, stride*(p.h+1))
	for y := 0; y < p.h; y++ {
		var rs, rq float64
		for x := 0; x < p.w; x++ {
			v := p.px[y*p.w+x]
			rs += v
			rq += v * v
			p.sum[(y+1)*stride+x+1] = p.sum[y*stride+x+1] + rs
			p.sq[(y+1)*stride+x+1] = p.sq[y*stride+x+1] + rq
		}
	}
}

func (p *plane) window(tab []float64, x, y, w, h int) float64 {
	stride := p.w + 1
	return tab[(y+h)*stride+x+w] - tab[y*stride+x+w] - tab[(y+h)*stride+x] + tab[y*stride+x]
}

// tmpl is a template with its mean removed, ready for correlation.
type tmpl struct {
	*plane
	zero   []float64 // px - mean
	energy float64   // sum(zero^2)
}

func newTemplate(p *plane) *tmpl {
	n := float64(p.w * p.h)
	mean := p.window(p.sum, 0, 0, p.w, p.h) / n
	t := &tmpl{plane: p, zero: make([]float64, len(p.px))}
	for i, v := range p.px {
		d := v - mean
		t.zero[i] = d
		t.energy += d * d
	}
	return t
}

// score is the normalized correlation coefficient of t placed at (x, y),
// in [-1, 1]. A flat template is compared by mean absolute difference.
func score(img *plane, t *tmpl, x, y int) float64 {
	n := float64(t.w * t.h)
	s := img.window(img.sum, x, y, t.w, t.h)
	energy := img.window(img.sq, x, y, t.w, t.h) - s*s/n

	if t.energy < 1e-9 {
		var diff float64
		for ty := 0; ty < t.h; ty++ {
			for tx := 0; tx < t.w; tx++ {
				diff += math.Abs(img.px[(y+ty)*img.w+x+tx] - t.px[ty*t.w+tx])
			}
		}
		return 1 - diff/(n*255)
	}
	if energy < 1e-9 {
		return 0
	}

	var cross float64
	for ty := 0; ty < t.h; ty++ {
		row := img.px[(y+ty)*img.w+x:]
		trow := t.zero[ty*t.w:]
		for tx := 0; tx < t.w; tx++ {
			cross += row[tx] * trow[tx]
		}
	}
	return cross / math.Sqrt(energy*t.energy)
}

type hit struct {
	x, y  int
	score float64
}

// scan scores every placement inside [x0,x1]x[y0,y1] (clamped) and returns
// up to limit hits scoring at least floor, best first. Hits closer than
// spread pixels to a better one are dropped.
func scan(img *plane, t *tmpl, x0, y0, x1, y1 int, floor float64, limit, spread int) []hit {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, img.w-t.w), min(y1, img.h-t.h)
	var all []hit
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if s := score(img, t, x, y); s >= floor {
				all = append(all, hit{x, y, s})
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })

	var out []hit
	for _, h := range all {
		if len(out) == limit {
			break
		}
		near := false
		for _, o := range out {
			if abs(o.x-h.x) <= spread && abs(o.y-h.y) <= spread {
				near = true
				break
			}
		}
		if !near {
			out = append(out, h)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

const (
	minCoarseSide   = 8
	maxCoarseFactor = 4
	coarseCandidate = 16
)

// factor picks the pyramid step so the downscaled template keeps at least
// minCoarseSide pixels per side.
func factor(tw, th int) int {
	f := min(tw, th) / minCoarseSide
	return max(1, min(f, maxCoarseFactor))
}

// shrink averages the f×f blocks of p whose grid starts at (ox, oy).
func (p *plane) shrink(f, ox, oy int) *plane {
	w, h := (p.w-ox)/f, (p.h-oy)/f
	q := &plane{w: w, h: h, px: make([]float64, w*h)}
	n := float64(f * f)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			q.px[y*w+x] = p.window(p.sum, ox+x*f, oy+y*f, f, f) / n
		}
	}
	q.integrate()
	return q
}

// phase is a downscaled template whose block grid starts at (dx, dy) of the
// full template. A template placed at screen (X, Y) lines up with the
// screen's block grid in exactly one phase: dx = -X mod f, dy = -Y mod f.
type phase struct {
	t      *tmpl
	dx, dy int
}

// phases returns the f*f downscaled variants of t.
func phases(t *tmpl, f int) []phase {
	out := make([]phase, 0, f*f)
	for dy := 0; dy < f; dy++ {
		for dx := 0; dx < f; dx++ {
			out = append(out, phase{t: newTemplate(t.plane.shrink(f, dx, dy)), dx: dx, dy: dy})
		}
	}
	return out
}

// pyramid supplies the screen downscaled by f and the template phases.
type pyramid func(f int) (screen *plane, ts []phase)

// match finds the best placement of t in full scoring at least confidence.
// When the template is large enough it searches a downscaled copy first,
// once per phase, and refines the best coarse candidates at full resolution.
func match(full *plane, t *tmpl, coarse pyramid, confidence float64) (image.Point, float64, bool) {
	if t.w > full.w || t.h > full.h {
		return image.Point{}, 0, false
	}

	var cands []hit
	if f := factor(t.w, t.h); f == 1 {
		cands = scan(full, t, 0, 0, full.w, full.h, confidence, 1, 0)
	} else {
		cimg, ts := coarse(f)
		var seeds []hit
		for _, ph := range ts {
			for _, c := range scan(cimg, ph.t, 0, 0, cimg.w, cimg.h, confidence/2, coarseCandidate, 1) {
				seeds = append(seeds, hit{c.x*f - ph.dx, c.y*f - ph.dy, c.score})
			}
		}
		sort.Slice(seeds, func(i, j int) bool { return seeds[i].score > seeds[j].score })
		for _, c := range seeds[:min(len(seeds), coarseCandidate)] {
			cands = append(cands, scan(full, t, c.x-f, c.y-f, c.x+f, c.y+f, confidence, 1, 0)...)
		}
	}
	if len(cands) == 0 {
		return image.Point{}, 0, false
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	best := cands[0]
	return image.Pt(best.x, best.y), best.score, true
}
