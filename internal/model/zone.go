package model

import (
	"fmt"
	"image"
)

// Zone is one fixed storage slot in the camera frame.
type Zone struct {
	Index int             `json:"index"`
	Label string          `json:"label"`
	Rect  image.Rectangle `json:"-"`
}

// NewZone builds a zone from its top-left corner and size.
func NewZone(index, x, y, width, height int) Zone {
	return Zone{
		Index: index,
		Label: fmt.Sprintf("Box %d", index+1),
		Rect:  image.Rect(x, y, x+width, y+height),
	}
}

// Contains reports whether p lies inside the zone, borders included.
func (z Zone) Contains(p image.Point) bool {
	return p.X >= z.Rect.Min.X && p.X <= z.Rect.Max.X &&
		p.Y >= z.Rect.Min.Y && p.Y <= z.Rect.Max.Y
}

// Region is the bounding box of one detected colour blob.
type Region struct {
	Rect image.Rectangle
}

// NewRegion builds a region from x, y, width and height.
func NewRegion(x, y, width, height int) Region {
	return Region{Rect: image.Rect(x, y, x+width, y+height)}
}

// Center returns the centroid of the bounding box using integer division.
func (r Region) Center() image.Point {
	return image.Pt(r.Rect.Min.X+r.Rect.Dx()/2, r.Rect.Min.Y+r.Rect.Dy()/2)
}
