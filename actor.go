package simlabel

import (
	"github.com/golang/geo/r3"
)

// Actor is the per-frame state of a simulated vehicle or pedestrian.
type Actor struct {
	ID           uint32         `json:"id"`
	TypeID       string         `json:"type_id"` // Blueprint id, e.g. "vehicle.lincoln.mkz_2020".
	SemanticTags []SemanticTag  `json:"semantic_tags"`
	Transform    Transform      `json:"transform"`
	Volume       BoundingVolume `json:"bounding_box"`
	Velocity     r3.Vector      `json:"velocity"` // World frame, m/s.
	Lights       LightState     `json:"light_state"`
}

// Class is the primary semantic class of the actor.
func (a Actor) Class() SemanticTag {
	if len(a.SemanticTags) == 0 {
		return 0
	}
	return a.SemanticTags[0]
}

// Camera is a camera sensor's world pose and intrinsics for one frame.
type Camera struct {
	Transform  Transform  `json:"transform"`
	Intrinsics Intrinsics `json:"intrinsics"`
}

// InFront reports whether p lies strictly in front of the camera plane.
func (c Camera) InFront(p r3.Vector) bool {
	return c.Transform.ForwardVector().Dot(p.Sub(c.Transform.Location)) > 0
}
