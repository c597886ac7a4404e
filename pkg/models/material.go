package models

import "image/color"

// Material holds the three colors written to the export file. Each color is
// 24-bit RGB plus an 8-bit alpha.
type Material struct {
	Name     string
	Ambient  color.RGBA
	Diffuse  color.RGBA
	Emission color.RGBA
}

// DefaultMaterial is used for objects without a material assignment.
var DefaultMaterial = Material{
	Name:     "Default",
	Ambient:  color.RGBA{0, 0, 0, 255},
	Diffuse:  color.RGBA{255, 255, 255, 255},
	Emission: color.RGBA{0, 0, 0, 255},
}

// ARGB packs c the way host APIs expose colors: a signed 32-bit integer with
// alpha in the top byte. Opaque colors come out negative.
func ARGB(c color.RGBA) int32 {
	return int32(uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
}

// FromARGB unpacks an ARGB value into a color.
func FromARGB(argb uint32) color.RGBA {
	return color.RGBA{
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
		A: uint8(argb >> 24),
	}
}

// RGBAFromFloats converts 0-1 channel values (as stored in glTF) to a color.
func RGBAFromFloats(r, g, b, a float64) color.RGBA {
	return color.RGBA{unitToByte(r), unitToByte(g), unitToByte(b), unitToByte(a)}
}

func unitToByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
