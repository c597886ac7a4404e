package render

import (
	"github.com/taigrr/sceneflat/pkg/export"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

// Preview draws the parts of a decoded export file.
type Preview struct {
	File       *export.File
	Background Color
	ShowAxes   bool
	ShowBounds bool

	world  []math3d.Mat4
	colors []Color
}

// NewPreview prepares a preview of f. World transforms and part colors are
// resolved once.
func NewPreview(f *export.File) *Preview {
	p := &Preview{
		File:       f,
		Background: RGB(16, 16, 24),
		ShowAxes:   true,
		world:      make([]math3d.Mat4, len(f.Instances)),
		colors:     make([]Color, len(f.Parts)),
	}
	for i := range f.Instances {
		p.world[i] = f.WorldTransform(i)
	}
	for i, part := range f.Parts {
		p.colors[i] = ColorWhite
		if m, ok := f.Material(part.Material); ok {
			p.colors[i] = partColor(m)
		}
	}
	return p
}

// partColor picks the diffuse color, keeping it visible on a dark background.
func partColor(m models.Material) Color {
	c := m.Diffuse
	c.A = 255
	if int(c.R)+int(c.G)+int(c.B) < 96 {
		return ColorGray
	}
	return c
}

// Bounds returns the world-space bounding box of all parts, built from each
// part's mesh bounds. ok is false when the file has no vertices.
func (p *Preview) Bounds() (lo, hi math3d.Vec3, ok bool) {
	for _, part := range p.File.Parts {
		if part.Mesh.VertexCount() == 0 {
			continue
		}
		xform := p.world[part.Instance]
		for _, c := range corners(part.Mesh.GetBounds()) {
			w := xform.MulVec3(c)
			if !ok {
				lo, hi, ok = w, w, true
				continue
			}
			lo, hi = lo.Min(w), hi.Max(w)
		}
	}
	return lo, hi, ok
}

// Render clears fb and draws every part through camera.
func (p *Preview) Render(camera *Camera, fb *Framebuffer) {
	fb.Clear(p.Background)
	if fb.Height > 0 {
		camera.AspectRatio = float64(fb.Width) / float64(fb.Height)
	}
	wf := NewWireframe(camera, fb)

	lo, hi, ok := p.Bounds()
	if p.ShowAxes {
		length := 1.0
		if ok {
			length = hi.Sub(lo).Len() / 4
		}
		wf.DrawAxes(math3d.Zero3(), length)
	}
	if p.ShowBounds && ok {
		wf.DrawBounds(lo, hi, ColorGray)
	}

	for i, part := range p.File.Parts {
		wf.DrawMesh(part.Mesh, p.world[part.Instance], p.colors[i])
	}
}
