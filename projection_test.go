package simlabel

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectPoint(t *testing.T) {
	cam := testCamera()
	k := cam.Intrinsics.Matrix(false)
	w2c := cam.Transform.InverseMatrix()

	tests := []struct {
		name  string
		world r3.Vector
		want  r2.Point
	}{
		{"centre", r3.Vector{X: 10}, r2.Point{X: 400, Y: 300}},
		{"right", r3.Vector{X: 10, Y: 5}, r2.Point{X: 600, Y: 300}},
		{"up", r3.Vector{X: 10, Z: 5}, r2.Point{X: 400, Y: 100}},
		{"far left down", r3.Vector{X: 20, Y: -10, Z: -5}, r2.Point{X: 200, Y: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ProjectPoint(tt.world, k, w2c)
			require.True(t, ok)
			assert.InDelta(t, tt.want.X, p.X, 1e-9)
			assert.InDelta(t, tt.want.Y, p.Y, 1e-9)
		})
	}
}

func TestProjectPointMovedCamera(t *testing.T) {
	cam := Camera{
		Transform:  Transform{Location: r3.Vector{X: 5, Y: 5, Z: 2}, Rotation: Rotation{Yaw: 90}},
		Intrinsics: Intrinsics{Width: 800, Height: 600, FOV: 90},
	}
	// Ten metres straight ahead of a camera facing +Y.
	p, ok := ProjectPoint(r3.Vector{X: 5, Y: 15, Z: 2}, cam.Intrinsics.Matrix(false),
		cam.Transform.InverseMatrix())
	require.True(t, ok)
	assert.InDelta(t, 400, p.X, 1e-9)
	assert.InDelta(t, 300, p.Y, 1e-9)
}

func TestProjectPointOnCameraPlane(t *testing.T) {
	cam := testCamera()
	_, ok := ProjectPoint(r3.Vector{Y: 5, Z: 1}, cam.Intrinsics.Matrix(false),
		cam.Transform.InverseMatrix())
	assert.False(t, ok)
}

func TestWorldToCameraAxes(t *testing.T) {
	c := WorldToCamera(r3.Vector{X: 3, Y: 2, Z: 1}, Transform{}.InverseMatrix())
	assert.Equal(t, r3.Vector{X: 2, Y: -1, Z: 3}, c)
}

func TestPointInCanvas(t *testing.T) {
	tests := []struct {
		p    r2.Point
		want bool
	}{
		{r2.Point{X: 0, Y: 0}, true},
		{r2.Point{X: 799.999, Y: 599.999}, true},
		{r2.Point{X: 800, Y: 300}, false},
		{r2.Point{X: 400, Y: 600}, false},
		{r2.Point{X: -0.001, Y: 300}, false},
		{r2.Point{X: 400, Y: -0.001}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PointInCanvas(tt.p, 800, 600), "%v", tt.p)
	}
}
