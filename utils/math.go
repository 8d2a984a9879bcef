package utils

import (
	"math"
)

// TwoPi is a full revolution in radians.
const TwoPi = 2 * math.Pi

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ModAngRad normalizes an angle in radians into [0, 2π).
func ModAngRad(ang float64) float64 {
	ang = math.Mod(ang, TwoPi)
	if ang < 0 {
		ang += TwoPi
	}
	// math.Mod of a tiny negative number can round up to exactly 2π.
	if ang >= TwoPi {
		ang = 0
	}
	return ang
}

// TurnDegrees returns the absolute turn between two integer headings in degrees,
// taking the short way around the circle. The result is in [0, 180] for inputs in [0, 360).
func TurnDegrees(prev, cur int) int {
	d := AbsInt(prev - cur)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// AbsInt returns the absolute value of n.
func AbsInt(n int) int {
	if n < 0 {
		return -1 * n
	}
	return n
}

// ClampInt clamps n into [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
