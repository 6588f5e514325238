package simlabel

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func TestRelativeVelocityZeroWhenMovingTogether(t *testing.T) {
	v := r3.Vector{X: 12.5, Y: -3, Z: 0.2}
	for _, rot := range []Rotation{{}, {Yaw: 90}, {Yaw: -135, Pitch: 10}, {Pitch: -20, Roll: 45, Yaw: 270}} {
		ego := Transform{Location: r3.Vector{X: 100, Y: -50, Z: 3}, Rotation: rot}
		got := RelativeVelocity(v, v, ego)
		assert.Equal(t, r3.Vector{}, got, "rotation %+v", rot)
	}
}

func TestRelativeVelocityEgoFrame(t *testing.T) {
	// An ego facing +Y sees a target moving along world +X as moving to its left.
	ego := Transform{Location: r3.Vector{X: 7, Y: 7}, Rotation: Rotation{Yaw: 90}}
	got := RelativeVelocity(r3.Vector{X: 1}, r3.Vector{}, ego)
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, -1, got.Y, 1e-12)
	assert.InDelta(t, 0, got.Z, 1e-12)

	// Closing in from ahead.
	got = RelativeVelocity(r3.Vector{Y: -5}, r3.Vector{Y: 5}, ego)
	assert.InDelta(t, -10, got.X, 1e-12)
	assert.InDelta(t, 0, got.Y, 1e-12)
}

func TestRelativeSpeed(t *testing.T) {
	assert.InDelta(t, 5, RelativeSpeed(r3.Vector{X: 3}, r3.Vector{Y: -4}), 1e-12)
}
