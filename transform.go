package simlabel

// Rigid transforms in the simulator's left-handed, Z-up frame.

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Rotation is an orientation in degrees, using the simulator's conventions: yaw about Z, pitch
// about Y, roll about X.
type Rotation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Transform is a world pose: a location plus a rotation.
type Transform struct {
	Location r3.Vector `json:"location"`
	Rotation Rotation  `json:"rotation"`
}

// basis returns the rows of the rotation matrix for r.
func (r Rotation) basis() (row0, row1, row2 r3.Vector) {
	cy, sy := math.Cos(degToRad(r.Yaw)), math.Sin(degToRad(r.Yaw))
	cr, sr := math.Cos(degToRad(r.Roll)), math.Sin(degToRad(r.Roll))
	cp, sp := math.Cos(degToRad(r.Pitch)), math.Sin(degToRad(r.Pitch))

	row0 = r3.Vector{X: cp * cy, Y: cy*sp*sr - sy*cr, Z: -cy*sp*cr - sy*sr}
	row1 = r3.Vector{X: cp * sy, Y: sy*sp*sr + cy*cr, Z: -sy*sp*cr + cy*sr}
	row2 = r3.Vector{X: sp, Y: -cp * sr, Z: cp * cr}
	return row0, row1, row2
}

// RotateVector rotates v from the local frame into the parent frame.
func (r Rotation) RotateVector(v r3.Vector) r3.Vector {
	row0, row1, row2 := r.basis()
	return r3.Vector{X: row0.Dot(v), Y: row1.Dot(v), Z: row2.Dot(v)}
}

// InverseRotateVector rotates v from the parent frame into the local frame.
func (r Rotation) InverseRotateVector(v r3.Vector) r3.Vector {
	row0, row1, row2 := r.basis()
	return row0.Mul(v.X).Add(row1.Mul(v.Y)).Add(row2.Mul(v.Z))
}

// ForwardVector is the unit X axis of the rotated frame.
func (r Rotation) ForwardVector() r3.Vector {
	cy, sy := math.Cos(degToRad(r.Yaw)), math.Sin(degToRad(r.Yaw))
	cp, sp := math.Cos(degToRad(r.Pitch)), math.Sin(degToRad(r.Pitch))
	return r3.Vector{X: cp * cy, Y: cp * sy, Z: sp}
}

// ForwardVector is the direction the transform is facing, in world coordinates.
func (t Transform) ForwardVector() r3.Vector {
	return t.Rotation.ForwardVector()
}

// TransformPoint maps p from the local frame of t to the world frame.
func (t Transform) TransformPoint(p r3.Vector) r3.Vector {
	return t.Rotation.RotateVector(p).Add(t.Location)
}

// InverseTransformPoint maps the world point p into the local frame of t.
func (t Transform) InverseTransformPoint(p r3.Vector) r3.Vector {
	return t.Rotation.InverseRotateVector(p.Sub(t.Location))
}

// InverseRotateVector expresses the world direction v in the local frame of t. Unlike
// InverseTransformPoint the location is ignored, which is what free vectors such as velocities
// need.
func (t Transform) InverseRotateVector(v r3.Vector) r3.Vector {
	return t.Rotation.InverseRotateVector(v)
}

// Matrix returns the 4x4 homogeneous local-to-world matrix.
func (t Transform) Matrix() *mat.Dense {
	row0, row1, row2 := t.Rotation.basis()
	return mat.NewDense(4, 4, []float64{
		row0.X, row0.Y, row0.Z, t.Location.X,
		row1.X, row1.Y, row1.Z, t.Location.Y,
		row2.X, row2.Y, row2.Z, t.Location.Z,
		0, 0, 0, 1,
	})
}

// InverseMatrix returns the 4x4 homogeneous world-to-local matrix. For a camera transform this is
// the world-to-camera matrix used by the projector.
func (t Transform) InverseMatrix() *mat.Dense {
	row0, row1, row2 := t.Rotation.basis()
	// The rotation is orthonormal, so its inverse is the transpose.
	tx := -(row0.X*t.Location.X + row1.X*t.Location.Y + row2.X*t.Location.Z)
	ty := -(row0.Y*t.Location.X + row1.Y*t.Location.Y + row2.Y*t.Location.Z)
	tz := -(row0.Z*t.Location.X + row1.Z*t.Location.Y + row2.Z*t.Location.Z)
	return mat.NewDense(4, 4, []float64{
		row0.X, row1.X, row2.X, tx,
		row0.Y, row1.Y, row2.Y, ty,
		row0.Z, row1.Z, row2.Z, tz,
		0, 0, 0, 1,
	})
}

// Distance is the Euclidean distance between the locations of t and o.
func (t Transform) Distance(o Transform) float64 {
	return t.Location.Sub(o.Location).Norm()
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
