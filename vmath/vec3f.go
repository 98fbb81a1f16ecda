package vmath

import (
	"fmt"
	"math"
)

// Vec3F is a float64 3D vector, Y is up
type Vec3F struct {
	X, Y, Z float64
}

// Up is the unit vertical vector
var Up = Vec3F{Y: 1}

func V3FAdd(a, b Vec3F) Vec3F {
	return Vec3F{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func V3FSub(a, b Vec3F) Vec3F {
	return Vec3F{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func V3FScale(v Vec3F, s float64) Vec3F {
	return Vec3F{v.X * s, v.Y * s, v.Z * s}
}

func V3FMagSq(v Vec3F) float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func V3FMag(v Vec3F) float64 {
	return math.Sqrt(V3FMagSq(v))
}

// V3FNormalize returns the unit vector of v, zero-safe
func V3FNormalize(v Vec3F) Vec3F {
	mag := V3FMag(v)
	if mag == 0 {
		return Vec3F{}
	}
	inv := 1.0 / mag
	return Vec3F{v.X * inv, v.Y * inv, v.Z * inv}
}

// V3FFromYawPitch converts a look angle in degrees to a unit facing vector
// Yaw 0 faces +Z and grows clockwise towards -X; positive pitch looks down
func V3FFromYawPitch(yaw, pitch float64) Vec3F {
	ry := yaw * math.Pi / 180
	rp := pitch * math.Pi / 180
	xz := math.Cos(rp)
	return Vec3F{
		X: -xz * math.Sin(ry),
		Y: -math.Sin(rp),
		Z: xz * math.Cos(ry),
	}
}

// V3FApproxEqual compares component-wise within eps
func V3FApproxEqual(a, b Vec3F, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}

func (v Vec3F) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
