package simlabel

import (
	"math"

	"github.com/golang/geo/r3"
)

// BoundingVolume is an oriented box in an actor's local frame.
type BoundingVolume struct {
	Extent   r3.Vector `json:"extent"`   // Half length, half width and half height.
	Location r3.Vector `json:"location"` // Centre offset from the actor origin.
	Rotation Rotation  `json:"rotation"` // Orientation relative to the actor.
}

// cornerSigns lists the box corners in the simulator's vertex order. Edges depends on this order.
var cornerSigns = [8]r3.Vector{
	{X: -1, Y: -1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: 1, Z: 1},
}

// LocalVertices returns the eight corners of the volume in the actor's local frame.
func (b BoundingVolume) LocalVertices() [8]r3.Vector {
	var verts [8]r3.Vector
	for i, s := range cornerSigns {
		corner := r3.Vector{X: s.X * b.Extent.X, Y: s.Y * b.Extent.Y, Z: s.Z * b.Extent.Z}
		verts[i] = b.Location.Add(b.Rotation.RotateVector(corner))
	}
	return verts
}

// WorldVertices returns the eight corners of the volume in world coordinates for an actor at the
// given pose.
func (b BoundingVolume) WorldVertices(actor Transform) [8]r3.Vector {
	verts := b.LocalVertices()
	for i := range verts {
		verts[i] = actor.TransformPoint(verts[i])
	}
	return verts
}

// Anchor is the world position of the volume centre for an actor at the given pose. The offset is
// added without rotating it, the same way the simulator reports a bounding box location.
func (b BoundingVolume) Anchor(actor Transform) r3.Vector {
	return actor.Location.Add(b.Location)
}

// Dimensions returns the full length, width and height, i.e. the extents doubled.
func (b BoundingVolume) Dimensions() Dimensions {
	return Dimensions{
		Length: 2 * math.Abs(b.Extent.X),
		Width:  2 * math.Abs(b.Extent.Y),
		Height: 2 * math.Abs(b.Extent.Z),
	}
}

// Dimensions is the full size of a 3D box in metres.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
