package simlabel

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestProjectBox3DInFront(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	target := testActor(2, r3.Vector{X: 10}, 14)

	box, err := ProjectBox3D(target, ego, testCamera())
	require.NoError(t, err)

	assert.InDelta(t, 10, box.Center.X, 1e-9)
	assert.InDelta(t, 0, box.Center.Y, 1e-9)
	assert.InDelta(t, 0, box.Center.Z, 1e-9)
	assert.Equal(t, Dimensions{Length: 2, Width: 2, Height: 2}, box.Dimensions)
	assert.InDelta(t, 0, box.Yaw, 1e-12)
	require.Len(t, box.Projection, len(Edges))

	// The near face spans 400 +/- 400/9 pixels horizontally and 300 +/- 400/9 vertically.
	near := 400.0 / 9
	for _, s := range box.Projection {
		for _, x := range []int{s[0], s[2]} {
			assert.InDelta(t, 400, float64(x), near+1, "segment %v", s)
		}
		for _, y := range []int{s[1], s[3]} {
			assert.InDelta(t, 300, float64(y), near+1, "segment %v", s)
		}
	}
}

func TestProjectBox3DEdgesFollowTopology(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	target := testActor(2, r3.Vector{X: 10}, 14)
	cam := testCamera()

	box, err := ProjectBox3D(target, ego, cam)
	require.NoError(t, err)
	require.Len(t, box.Projection, len(Edges))

	k := cam.Intrinsics.Matrix(false)
	w2c := cam.Transform.InverseMatrix()
	verts := target.Volume.WorldVertices(target.Transform)
	for i, e := range Edges {
		a, ok := ProjectPoint(verts[e[0]], k, w2c)
		require.True(t, ok)
		b, ok := ProjectPoint(verts[e[1]], k, w2c)
		require.True(t, ok)
		assert.Equal(t, Segment{int(a.X), int(a.Y), int(b.X), int(b.Y)}, box.Projection[i])
	}
}

func TestProjectBox3DAllBehind(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	target := testActor(2, r3.Vector{X: -10}, 14)

	box, err := ProjectBox3D(target, ego, testCamera())
	require.NoError(t, err)
	assert.NotNil(t, box.Projection)
	assert.Empty(t, box.Projection)
	assert.InDelta(t, -10, box.Center.X, 1e-9)
}

func TestProjectBox3DIdenticalActors(t *testing.T) {
	a := testActor(1, r3.Vector{X: 12, Y: -4, Z: 0.5}, 14)
	a.Transform.Rotation = Rotation{Yaw: 37, Pitch: 3, Roll: -2}
	a.Volume.Location = r3.Vector{Z: 0.7}

	box, err := ProjectBox3D(a, a, testCamera())
	require.NoError(t, err)
	assert.InDelta(t, 0, box.Center.Norm(), 1e-9)
	assert.InDelta(t, 0, box.Yaw, 1e-12)
	assert.Equal(t, r3.Vector{}, RelativeVelocity(a.Velocity, a.Velocity, a.Transform))
}

func TestProjectBox3DStraddlingCamera(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	// A long box reaching from 3 m behind the camera to 13 m in front of it. Vertices 0-3 are
	// behind, 4-7 in front and on the canvas.
	target := testActor(2, r3.Vector{X: 5}, 15)
	target.Volume.Extent = r3.Vector{X: 8, Y: 1, Z: 1}
	cam := testCamera()

	box, err := ProjectBox3D(target, ego, cam)
	require.NoError(t, err)

	// Edge {0, 4}: (-3, -1, -1) through the mirrored K, (13, -1, -1) through the normal K.
	require.NotEmpty(t, box.Projection)
	assert.Equal(t, Segment{266, 433, 369, 330}, box.Projection[0])

	k := cam.Intrinsics.Matrix(false)
	kBehind := cam.Intrinsics.Matrix(true)
	w2c := cam.Transform.InverseMatrix()
	verts := target.Volume.WorldVertices(target.Transform)
	project := func(i int) r2.Point {
		m := k
		if verts[i].X < 0 {
			m = kBehind
		}
		p, ok := ProjectPoint(verts[i], m, w2c)
		require.True(t, ok)
		return p
	}

	var want []Segment
	for _, e := range Edges {
		if verts[e[0]].X < 0 && verts[e[1]].X < 0 {
			continue
		}
		a, b := project(e[0]), project(e[1])
		want = append(want, Segment{int(a.X), int(a.Y), int(b.X), int(b.Y)})
	}
	assert.Len(t, want, 8)
	assert.Equal(t, want, box.Projection)
}

func TestProjectBox3DVertexOnCameraPlane(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	// The back face lies exactly on the camera plane, so every edge touching it is dropped.
	target := testActor(2, r3.Vector{X: 4}, 14)
	target.Volume.Extent = r3.Vector{X: 4, Y: 1, Z: 1}
	cam := testCamera()

	box, err := ProjectBox3D(target, ego, cam)
	require.NoError(t, err)

	k := cam.Intrinsics.Matrix(false)
	w2c := cam.Transform.InverseMatrix()
	verts := target.Volume.WorldVertices(target.Transform)
	var want []Segment
	for _, e := range [][2]int{{4, 5}, {5, 7}, {7, 6}, {6, 4}} {
		a, ok := ProjectPoint(verts[e[0]], k, w2c)
		require.True(t, ok)
		b, ok := ProjectPoint(verts[e[1]], k, w2c)
		require.True(t, ok)
		want = append(want, Segment{int(a.X), int(a.Y), int(b.X), int(b.Y)})
	}
	assert.Equal(t, want, box.Projection)
}

func TestIntrinsicsFor(t *testing.T) {
	in := testCamera().Intrinsics
	k, kBehind := in.Matrix(false), in.Matrix(true)
	forward := r3.Vector{X: 1}
	camLoc := r3.Vector{X: 2}

	tests := []struct {
		name   string
		vertex r3.Vector
		want   *mat.Dense
	}{
		{"in front", r3.Vector{X: 3, Y: 5}, k},
		{"on the camera plane", r3.Vector{X: 2, Y: 7, Z: -1}, kBehind},
		{"behind", r3.Vector{}, kBehind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, intrinsicsFor(tt.vertex, forward, camLoc, k, kBehind))
		})
	}
}

func TestProjectBox3DEdgeCountBound(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	cam := testCamera()
	for yaw := 0.0; yaw < 360; yaw += 30 {
		for _, loc := range []r3.Vector{{X: 3}, {X: 10, Y: 8}, {X: 1, Y: -1}, {X: -2}, {Y: 5}} {
			target := testActor(2, loc, 14)
			target.Transform.Rotation.Yaw = yaw
			box, err := ProjectBox3D(target, ego, cam)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(box.Projection), len(Edges))
		}
	}
}

func TestProjectBox3DRelativeYawAndDimensions(t *testing.T) {
	ego := testActor(1, r3.Vector{}, 14)
	ego.Transform.Rotation.Yaw = 10
	target := testActor(2, r3.Vector{X: 10}, 14)
	target.Transform.Rotation.Yaw = 100
	target.Volume.Extent = r3.Vector{X: -2.5, Y: 1, Z: -0.75}

	box, err := ProjectBox3D(target, ego, testCamera())
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, box.Yaw, 1e-12)
	assert.Equal(t, Dimensions{Length: 5, Width: 2, Height: 1.5}, box.Dimensions)
}

func TestProjectBox3DInvalidIntrinsics(t *testing.T) {
	cam := testCamera()
	cam.Intrinsics.FOV = 0
	_, err := ProjectBox3D(testActor(2, r3.Vector{X: 10}, 14), testActor(1, r3.Vector{}, 14), cam)
	assert.True(t, errors.Is(err, ErrInvalidIntrinsics))
}

func TestPixelSaturates(t *testing.T) {
	assert.Equal(t, 12, pixel(12.9))
	assert.Equal(t, -12, pixel(-12.9))
	assert.Equal(t, math.MaxInt32, pixel(1e20))
	assert.Equal(t, math.MinInt32, pixel(-1e20))
}
