package render

import (
	"math"
	"testing"

	"github.com/taigrr/sceneflat/pkg/export"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

func lit(fb *Framebuffer, c Color) int {
	n := 0
	for _, p := range fb.Pixels {
		if p == c {
			n++
		}
	}
	return n
}

func square() *models.Mesh {
	m := models.NewMesh("square")
	n := math3d.V3(0, 0, 1)
	m.AddVertex(math3d.V3(-1, -1, 0), n)
	m.AddVertex(math3d.V3(1, -1, 0), n)
	m.AddVertex(math3d.V3(1, 1, 0), n)
	m.AddVertex(math3d.V3(-1, 1, 0), n)
	m.Faces = append(m.Faces, models.Tri(0, 1, 2), models.Tri(0, 2, 3))
	m.CalculateBounds()
	return m
}

var _ Mesh = (*models.Mesh)(nil)

func frontCamera() *Camera {
	c := NewCamera()
	c.Pitch = 0
	c.Distance = 5
	c.AspectRatio = 1
	return c
}

func TestDrawMeshDrawsSharedEdgeOnce(t *testing.T) {
	fb := NewFramebuffer(64, 64)
	wf := NewWireframe(frontCamera(), fb)
	wf.DrawMesh(square(), math3d.Identity(), ColorWhite)

	if lit(fb, ColorWhite) == 0 {
		t.Fatal("DrawMesh drew nothing")
	}

	// the diagonal runs corner to corner through the center
	if fb.GetPixel(32, 32) != ColorWhite && fb.GetPixel(31, 31) != ColorWhite && fb.GetPixel(31, 32) != ColorWhite {
		t.Error("shared diagonal not drawn through center")
	}
}

func TestDrawMeshAppliesTransform(t *testing.T) {
	fb := NewFramebuffer(64, 64)
	wf := NewWireframe(frontCamera(), fb)

	// moved behind the camera, nothing is visible
	wf.DrawMesh(square(), math3d.Translate(math3d.V3(0, 0, 10)), ColorWhite)
	if n := lit(fb, ColorWhite); n != 0 {
		t.Errorf("lit %d pixels for a mesh behind the camera", n)
	}
}

func TestDrawMeshIgnoresBadIndices(t *testing.T) {
	m := square()
	m.Faces = append(m.Faces, models.Tri(0, 7, 1), models.Tri(2, 2, 2))

	fb := NewFramebuffer(32, 32)
	NewWireframe(frontCamera(), fb).DrawMesh(m, math3d.Identity(), ColorWhite)
}

func TestDrawBounds(t *testing.T) {
	fb := NewFramebuffer(64, 64)
	wf := NewWireframe(frontCamera(), fb)
	wf.DrawBounds(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1), ColorRed)
	if lit(fb, ColorRed) == 0 {
		t.Error("DrawBounds drew nothing")
	}
}

func TestPreview(t *testing.T) {
	f := &export.File{
		Instances: []export.Instance{
			{Parent: -1, Transform: math3d.Identity()},
			{Name: "A", FullName: "A", Parent: 0, Ancestors: []int{0}, Transform: math3d.Translate(math3d.V3(2, 0, 0)), Parts: []int{0}},
		},
		Materials: []models.Material{
			{Name: "Red", Diffuse: ColorRed},
			{Name: "Dark", Diffuse: RGB(1, 1, 1)},
		},
		Parts: []export.Part{
			{Name: "Panel", Mesh: square(), Material: "Red", Instance: 1},
			{Name: "Other", Mesh: square(), Material: "Dark", Instance: 0},
			{Name: "Loose", Mesh: square(), Material: "Missing", Instance: 0},
		},
	}

	p := NewPreview(f)
	lo, hi, ok := p.Bounds()
	if !ok {
		t.Fatal("Bounds reported no vertices")
	}
	if lo != math3d.V3(-1, -1, 0) || hi != math3d.V3(3, 1, 0) {
		t.Errorf("Bounds = %v %v", lo, hi)
	}

	wantColors := []Color{ColorRed, ColorGray, ColorWhite}
	for i, want := range wantColors {
		if p.colors[i] != want {
			t.Errorf("part %d color = %v, want %v", i, p.colors[i], want)
		}
	}

	cam := NewCamera()
	cam.Frame(lo, hi)
	fb := NewFramebuffer(80, 48)
	p.ShowBounds = true
	p.Render(cam, fb)

	if lit(fb, ColorRed) == 0 {
		t.Error("red part not drawn")
	}
	if cam.AspectRatio != 80.0/48.0 {
		t.Errorf("AspectRatio = %f", cam.AspectRatio)
	}
}

func TestPreviewBoundsFollowRotation(t *testing.T) {
	f := &export.File{
		Instances: []export.Instance{
			{Parent: -1, Transform: math3d.Identity()},
			{Name: "A", FullName: "A", Parent: 0, Ancestors: []int{0}, Transform: math3d.RotateZ(math.Pi / 2), Parts: []int{0}},
		},
		Parts: []export.Part{{Name: "Wide", Mesh: wide(), Instance: 1}},
	}

	lo, hi, ok := NewPreview(f).Bounds()
	if !ok {
		t.Fatal("Bounds reported no vertices")
	}
	// x extent 4 rotates onto y
	if math.Abs(hi.Y-lo.Y-4) > 1e-9 || math.Abs(hi.X-lo.X-2) > 1e-9 {
		t.Errorf("Bounds = %v %v, want 2 wide and 4 tall", lo, hi)
	}
}

func wide() *models.Mesh {
	m := square()
	m.Transform(math3d.Scale(math3d.V3(2, 1, 1)))
	m.CalculateBounds()
	return m
}

func TestPreviewEmptyFile(t *testing.T) {
	f := &export.File{Instances: []export.Instance{{Parent: -1, Transform: math3d.Identity()}}}
	p := NewPreview(f)
	if _, _, ok := p.Bounds(); ok {
		t.Error("Bounds ok for a file without parts")
	}

	fb := NewFramebuffer(10, 10)
	p.Render(NewCamera(), fb)
	if fb.GetPixel(0, 0) == (Color{}) {
		t.Error("background not cleared")
	}
}
