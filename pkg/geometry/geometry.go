// Package geometry computes the guide rectangle shown over a camera preview
// and maps it from overlay coordinates into photo pixel coordinates.
//
// All functions are pure. The only state lives in Tracker, which remembers the
// last guide rectangle so layout passes that produce the same values do not
// trigger an update.
package geometry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ISORatio is height/width of ISO 216 paper sizes (A4, A5, ...)
const ISORatio = 1.4142

// WidthFraction is the share of the overlay width covered by the guide rectangle
const WidthFraction = 0.8

// ErrDegenerateLayout is returned when the overlay extent is not positive
var ErrDegenerateLayout = errors.New("degenerate overlay layout")

// GuideRectType selects the shape of the guide rectangle
type GuideRectType string

const (
	RectNone   GuideRectType = "none"
	RectA4     GuideRectType = "A4"
	RectA5     GuideRectType = "A5"
	RectCustom GuideRectType = "custom"
)

// ParseGuideRectType converts a config value into a GuideRectType. Matching is case-insensitive.
func ParseGuideRectType(s string) (GuideRectType, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return RectNone, nil
	case "a4":
		return RectA4, nil
	case "a5":
		return RectA5, nil
	case "custom":
		return RectCustom, nil
	}
	return "", fmt.Errorf("unknown guide rect type %q", s)
}

// Size is a width/height pair, used for custom rectangles
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OverlayLayout is the measured size of the view hosting the preview
type OverlayLayout struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GuideRect is the guide rectangle in overlay-local coordinates
type GuideRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewSize reconstructs the overlay extent from the centered rect and its margins
func (g GuideRect) ViewSize() (float64, float64) {
	return g.Width + 2*g.X, g.Height + 2*g.Y
}

// CropRegion is the guide rectangle in photo pixel coordinates
type CropRegion struct {
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Photo is anything with a pixel size
type Photo interface {
	Size() (width, height int)
}

// PixelSize is a plain Photo implementation
type PixelSize struct {
	Width  int
	Height int
}

// Size implements Photo
func (p PixelSize) Size() (int, int) { return p.Width, p.Height }

// Enabled reports whether the rect type or the custom rect asks for a guide
func Enabled(rectType GuideRectType, custom *Size) bool {
	return custom != nil || (rectType != "" && rectType != RectNone)
}

// ComputeGuideRect returns the centered guide rectangle for the overlay, or
// false when no guide was requested. The aspect ratio is ISORatio for every
// type, custom rects included.
func ComputeGuideRect(overlay OverlayLayout, rectType GuideRectType, custom *Size) (GuideRect, bool) {
	if !Enabled(rectType, custom) {
		return GuideRect{}, false
	}

	width := WidthFraction * overlay.Width
	height := ISORatio * width
	return GuideRect{
		X:      (overlay.Width - width) / 2,
		Y:      (overlay.Height - height) / 2,
		Width:  width,
		Height: height,
	}, true
}

// ComputeCropRegion rescales the guide rectangle to the photo's pixel grid
// using independent horizontal and vertical factors.
func ComputeCropRegion(guide GuideRect, photo Photo) (CropRegion, error) {
	viewW, viewH := guide.ViewSize()
	if viewW <= 0 || viewH <= 0 {
		return CropRegion{}, fmt.Errorf("%w: view %gx%g", ErrDegenerateLayout, viewW, viewH)
	}

	pw, ph := photo.Size()
	fx := float64(pw) / viewW
	fy := float64(ph) / viewH
	if fx <= 0 || fy <= 0 {
		return CropRegion{}, fmt.Errorf("%w: photo %dx%d", ErrDegenerateLayout, pw, ph)
	}

	return CropRegion{
		OriginX: fx * guide.X,
		OriginY: fy * guide.Y,
		Width:   fx * guide.Width,
		Height:  fy * guide.Height,
	}, nil
}

// Tracker owns the current guide rectangle and recomputes it on layout events
type Tracker struct {
	mu       sync.RWMutex
	rectType GuideRectType
	custom   *Size
	current  GuideRect
	valid    bool
}

// NewTracker creates a tracker for the given guide configuration
func NewTracker(rectType GuideRectType, custom *Size) *Tracker {
	return &Tracker{rectType: rectType, custom: custom}
}

// Update recomputes the guide rectangle for a new layout. It returns true
// only when one of x, y, width or height differs from the stored value.
// Comparison is exact.
func (t *Tracker) Update(overlay OverlayLayout) (GuideRect, bool) {
	next, ok := ComputeGuideRect(overlay, t.rectType, t.custom)
	if !ok {
		return GuideRect{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.valid && t.current == next {
		return t.current, false
	}
	t.current = next
	t.valid = true
	return next, true
}

// Current returns the latest guide rectangle, if any
func (t *Tracker) Current() (GuideRect, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.valid
}
