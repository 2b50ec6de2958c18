package screenshot

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/kbinani/screenshot"
	"github.com/vcaesar/imgo"
)

// Point is an absolute virtual-screen coordinate.
type Point struct {
	X int
	Y int
}

// Frame is a capture of the virtual screen. Image pixels start at (0,0);
// Origin is the virtual-screen coordinate of that pixel, which is negative
// when a secondary monitor sits left of or above the primary one.
type Frame struct {
	Image  *image.RGBA
	Origin Point
}

// ToScreen converts a pixel position inside the frame to a screen coordinate.
func (f Frame) ToScreen(p image.Point) Point {
	return Point{X: f.Origin.X + p.X, Y: f.Origin.Y + p.Y}
}

// Capture captures the entire virtual screen across all active displays
func Capture() (Frame, error) {
	bounds, err := GetDisplayBounds()
	if err != nil {
		return Frame{}, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to capture screen: %w", err)
	}
	return Frame{Image: img, Origin: Point{X: bounds.Min.X, Y: bounds.Min.Y}}, nil
}

// GetDisplayBounds returns the union of all active display bounds.
func GetDisplayBounds() (image.Rectangle, error) {
	return union(screenshot.NumActiveDisplays(), screenshot.GetDisplayBounds)
}

func union(n int, bounds func(int) image.Rectangle) (image.Rectangle, error) {
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	u := bounds(0)
	for i := 1; i < n; i++ {
		u = u.Union(bounds(i))
	}
	return u, nil
}

// SaveDebug writes img as PNG under dir and returns the file path.
func SaveDebug(dir, name string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := imgo.Save(path, img); err != nil {
		return "", fmt.Errorf("save debug capture: %w", err)
	}
	return path, nil
}
