package render

import (
	"github.com/taigrr/sceneflat/pkg/math3d"
)

// Wireframe renders 3D wireframe objects.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera: camera,
		fb:     fb,
	}
}

// DrawLine3D draws a line in 3D space.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	x1, y1, _, vis1 := w.camera.WorldToScreen(p1, w.fb.Width, w.fb.Height)
	x2, y2, _, vis2 := w.camera.WorldToScreen(p2, w.fb.Width, w.fb.Height)

	// Lines with a clipped endpoint are dropped rather than clipped
	if !vis1 || !vis2 {
		return
	}

	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// Mesh is the triangle mesh view the wireframe draws.
type Mesh interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3)
	GetFace(i int) [3]int
	GetBounds() (min, max math3d.Vec3)
}

type edge struct{ a, b int }

// DrawMesh draws every triangle edge of mesh once, transformed by xform.
func (w *Wireframe) DrawMesh(mesh Mesh, xform math3d.Mat4, color Color) {
	world := make([]math3d.Vec3, mesh.VertexCount())
	for i := range world {
		pos, _ := mesh.GetVertex(i)
		world[i] = xform.MulVec3(pos)
	}

	seen := make(map[edge]struct{}, mesh.TriangleCount()*3)
	for fi := range mesh.TriangleCount() {
		tri := mesh.GetFace(fi)
		for i := range tri {
			a, b := tri[i], tri[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			if a == b || a < 0 || b >= len(world) {
				continue
			}
			if _, ok := seen[edge{a, b}]; ok {
				continue
			}
			seen[edge{a, b}] = struct{}{}
			w.DrawLine3D(world[a], world[b], color)
		}
	}
}

// DrawAxes draws the X, Y and Z axes from origin in red, green and blue.
func (w *Wireframe) DrawAxes(origin math3d.Vec3, length float64) {
	w.DrawLine3D(origin, origin.Add(math3d.V3(length, 0, 0)), ColorRed)
	w.DrawLine3D(origin, origin.Add(math3d.V3(0, length, 0)), ColorGreen)
	w.DrawLine3D(origin, origin.Add(math3d.V3(0, 0, length)), ColorBlue)
}

// corners returns the eight corners of an axis-aligned box. Corner i takes
// hi on the axes whose bit is set.
func corners(lo, hi math3d.Vec3) [8]math3d.Vec3 {
	var out [8]math3d.Vec3
	for i := range out {
		c := lo
		if i&1 != 0 {
			c.X = hi.X
		}
		if i&2 != 0 {
			c.Y = hi.Y
		}
		if i&4 != 0 {
			c.Z = hi.Z
		}
		out[i] = c
	}
	return out
}

// DrawBounds draws an axis-aligned box.
func (w *Wireframe) DrawBounds(lo, hi math3d.Vec3, color Color) {
	box := corners(lo, hi)

	// Corners differing in exactly one bit share an edge
	for i := range box {
		for _, bit := range []int{1, 2, 4} {
			if j := i | bit; j != i {
				w.DrawLine3D(box[i], box[j], color)
			}
		}
	}
}
