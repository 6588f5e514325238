package simlabel

import (
	"github.com/golang/geo/r3"
)

// RelativeVelocity is the velocity of the target as seen from the ego vehicle, expressed in the
// ego's local frame. Both velocities are in the world frame.
func RelativeVelocity(target, ego r3.Vector, egoTransform Transform) r3.Vector {
	return egoTransform.InverseRotateVector(target.Sub(ego))
}

// RelativeSpeed is the magnitude of RelativeVelocity.
func RelativeSpeed(target, ego r3.Vector) float64 {
	return target.Sub(ego).Norm()
}
