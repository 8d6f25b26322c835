// Package zone maps detected colour regions onto the fixed storage slots.
package zone

import (
	"sync"

	"keywatch/internal/model"
)

// Classify reports, per zone, whether the centroid of any region falls inside
// it. The result has len(zones) entries in zone order; no regions means all
// false. Zones never overlap, so a region marks at most one zone.
func Classify(regions []model.Region, zones []model.Zone) []bool {
	occupied := make([]bool, len(zones))

	for _, region := range regions {
		center := region.Center()
		for i, z := range zones {
			if z.Contains(center) {
				occupied[i] = true
				break
			}
		}
	}

	return occupied
}

// Layout splits a frame into n square zones laid side by side from the left
// edge, spacing pixels apart and centred vertically. A frame too narrow for n
// zones yields empty rectangles that contain nothing.
func Layout(width, height, n, spacing int) []model.Zone {
	if n <= 0 {
		return []model.Zone{}
	}

	boxWidth := width/n - spacing
	if boxWidth < 0 {
		boxWidth = 0
	}
	boxHeight := boxWidth
	y := (height - boxHeight) / 2

	zones := make([]model.Zone, 0, n)
	for i := 0; i < n; i++ {
		x := i * (boxWidth + spacing)
		z := model.NewZone(i, x, y, boxWidth, boxHeight)
		if boxWidth == 0 {
			// Contains is inclusive, a zero-size rectangle would still match its corner.
			z.Rect.Max.X = z.Rect.Min.X - 1
		}
		zones = append(zones, z)
	}
	return zones
}

// Geometry caches the zone layout for the current frame size.
type Geometry struct {
	count   int
	spacing int

	mu     sync.RWMutex
	width  int
	height int
	zones  []model.Zone
}

// NewGeometry creates a Geometry for count zones separated by spacing pixels.
func NewGeometry(count, spacing int) *Geometry {
	return &Geometry{count: count, spacing: spacing}
}

// For returns the layout for a frame of the given size, recomputing it only
// when the size differs from the previous call. The returned slice is shared
// and must not be modified.
func (g *Geometry) For(width, height int) []model.Zone {
	g.mu.RLock()
	if g.zones != nil && g.width == width && g.height == height {
		zones := g.zones
		g.mu.RUnlock()
		return zones
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.zones == nil || g.width != width || g.height != height {
		g.zones = Layout(width, height, g.count, g.spacing)
		g.width, g.height = width, height
	}
	return g.zones
}

// Current returns the last computed layout, or nil before the first frame.
func (g *Geometry) Current() []model.Zone {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.zones
}

// Count returns the fixed number of zones.
func (g *Geometry) Count() int {
	return g.count
}
