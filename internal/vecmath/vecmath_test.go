package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("unit length for nonzero vectors", func(t *testing.T) {
		t.Parallel()
		u := Normalize(Vector3{X: 3, Y: 4, Z: 0})
		assert.InDelta(t, 1.0, Magnitude(u), 1e-12)
		assert.InDelta(t, 0.6, u.X, 1e-12)
		assert.InDelta(t, 0.8, u.Y, 1e-12)
	})

	t.Run("zero vector normalizes to zero vector", func(t *testing.T) {
		t.Parallel()
		u := Normalize(Vector3{})
		assert.Equal(t, Vector3{}, u)
		assert.False(t, math.IsNaN(u.X))
	})
}

func TestDot(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Dot(Vector3{X: 1}, Vector3{Y: 1}))
	assert.Equal(t, 32.0, Dot(Vector3{X: 1, Y: 2, Z: 3}, Vector3{X: 4, Y: 5, Z: 6}))
}

func TestSub(t *testing.T) {
	t.Parallel()

	d := Sub(Vector3{X: 5, Y: 3, Z: 1}, Vector3{X: 1, Y: 1, Z: 1})
	assert.Equal(t, Vector3{X: 4, Y: 2, Z: 0}, d)
}

func TestAngleConversion(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 180.0, Degrees(math.Pi), 1e-12)
	assert.InDelta(t, math.Pi/2, Radians(90), 1e-12)
	assert.InDelta(t, 45.0, Degrees(Radians(45)), 1e-12)
}
