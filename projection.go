package simlabel

// Projection of world points onto the image plane.

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// DepthEpsilon is the smallest absolute homogeneous depth that is still divided by. Points closer
// to the camera plane than this cannot be projected.
const DepthEpsilon = 1e-9

// WorldToCamera maps a world point into the standard camera frame (X right, Y down, Z forward)
// using the 4x4 world-to-camera matrix w2c, which is expressed in the simulator's frame (X forward,
// Y right, Z up).
func WorldToCamera(p r3.Vector, w2c mat.Matrix) r3.Vector {
	var c mat.VecDense
	c.MulVec(w2c, mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))
	return remapAxes(r3.Vector{X: c.AtVec(0), Y: c.AtVec(1), Z: c.AtVec(2)})
}

// remapAxes converts (x, y, z) in the simulator's camera frame to (y, -z, x).
func remapAxes(v r3.Vector) r3.Vector {
	return r3.Vector{X: v.Y, Y: -v.Z, Z: v.X}
}

// ProjectCameraPoint applies the projection matrix K to a point in the standard camera frame and
// performs the perspective divide. It returns false if the homogeneous depth is within
// DepthEpsilon of zero; such points are treated as off-canvas by all callers.
func ProjectCameraPoint(p r3.Vector, k mat.Matrix) (r2.Point, bool) {
	var img mat.VecDense
	img.MulVec(k, mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))

	s := img.AtVec(2)
	if math.Abs(s) < DepthEpsilon {
		return r2.Point{}, false
	}
	return r2.Point{X: img.AtVec(0) / s, Y: img.AtVec(1) / s}, true
}

// ProjectPoint maps a world point to pixel coordinates.
func ProjectPoint(p r3.Vector, k, w2c mat.Matrix) (r2.Point, bool) {
	return ProjectCameraPoint(WorldToCamera(p, w2c), k)
}

// PointInCanvas reports whether p lies in [0, width) x [0, height).
func PointInCanvas(p r2.Point, width, height int) bool {
	return p.X >= 0 && p.X < float64(width) && p.Y >= 0 && p.Y < float64(height)
}
