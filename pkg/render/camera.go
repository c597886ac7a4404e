package render

import (
	"math"

	"github.com/taigrr/sceneflat/pkg/math3d"
)

// Camera orbits a target point at a fixed distance.
type Camera struct {
	Target   math3d.Vec3
	Distance float64

	// Orbit angles in radians
	Yaw   float64 // Around the world Y axis
	Pitch float64 // Elevation above the XZ plane

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane
}

// NewCamera creates a camera looking at the origin from 10 units away.
func NewCamera() *Camera {
	return &Camera{
		Distance:    10,
		Pitch:       math.Pi / 6,
		FOV:         math.Pi / 3, // 60 degrees
		AspectRatio: 16.0 / 9.0,
		Near:        0.1,
		Far:         1000,
	}
}

// Position returns the camera position in world space.
func (c *Camera) Position() math3d.Vec3 {
	cp := math.Cos(c.Pitch)
	offset := math3d.V3(
		math.Sin(c.Yaw)*cp,
		math.Sin(c.Pitch),
		math.Cos(c.Yaw)*cp,
	)
	return c.Target.Add(offset.Scale(c.Distance))
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	eye := c.Position()
	forward := c.Target.Sub(eye).Normalize()
	right := forward.Cross(math3d.V3(0, 1, 0)).Normalize()
	up := right.Cross(forward)

	return math3d.FromRows([3][4]float64{
		{right.X, right.Y, right.Z, -right.Dot(eye)},
		{up.X, up.Y, up.Z, -up.Dot(eye)},
		{-forward.X, -forward.Y, -forward.Z, forward.Dot(eye)},
	})
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	return math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// Orbit rotates the camera around its target.
func (c *Camera) Orbit(deltaYaw, deltaPitch float64) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch

	// Clamp pitch so the up vector stays defined
	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))
}

// Zoom scales the orbit distance. Factors below 1 move closer.
func (c *Camera) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.Distance = math.Max(c.Near*2, c.Distance*factor)
}

// Frame points the camera at the center of a bounding box and backs off
// until the whole box fits in view.
func (c *Camera) Frame(lo, hi math3d.Vec3) {
	c.Target = lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Len() / 2
	if radius == 0 {
		radius = 1
	}
	fov := c.FOV
	if c.AspectRatio < 1 {
		fov = 2 * math.Atan(math.Tan(c.FOV/2)*c.AspectRatio)
	}
	c.Distance = radius / math.Sin(fov/2)
	c.Far = math.Max(c.Far, c.Distance+radius*2)
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	// Transform to clip space
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))

	// Check if behind camera
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	// Perspective divide to NDC (-1 to 1)
	ndc := clipPos.PerspectiveDivide()

	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x = (ndc.X + 1) * 0.5 * float64(screenWidth)
	y = (1 - ndc.Y) * 0.5 * float64(screenHeight) // Y is flipped
	depth = ndc.Z

	return x, y, depth, true
}
