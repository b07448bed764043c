// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vecmath

import "math"

// Vector3 is a 3-component vector used for accelerations and gravity
// estimates. Units are m/s² unless stated otherwise.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dot returns the dot product of a and b.
func Dot(a, b Vector3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Magnitude returns the Euclidean length of v.
func Magnitude(v Vector3) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns the unit vector in the direction of v. The zero
// vector normalizes to the zero vector; callers never see a division
// by zero.
func Normalize(v Vector3) Vector3 {
	m := Magnitude(v)
	if m == 0 {
		return Vector3{}
	}
	return Vector3{X: v.X / m, Y: v.Y / m, Z: v.Z / m}
}

// Sub returns a − b.
func Sub(a, b Vector3) Vector3 {
	return Vector3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
