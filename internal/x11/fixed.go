package x11

import "math"

// fixedMultiplier is 2^16, the scale factor of the RENDER extension's
// 16.16 fixed-point format.
const fixedMultiplier = 65536.0

// Fixed is the RENDER extension's 16.16 fixed-point representation, as used
// by render.Transform and render.Trapezoid.
type Fixed int32

// ToFixed converts a float coordinate or scale factor to 16.16 fixed-point,
// rounding to the nearest representable value (not truncating).
func ToFixed(v float64) Fixed {
	return Fixed(math.Round(v * fixedMultiplier))
}
