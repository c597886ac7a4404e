package models

import (
	"errors"
	"fmt"
)

// Brep is a boundary representation as the host hands it to the kernel: one
// meshed patch per face of the solid. Patches may contain quads and larger
// polygons.
type Brep struct {
	Name    string
	Patches []*Mesh
}

// ErrEmptyBrep is returned when a boundary representation has no geometry.
var ErrEmptyBrep = errors.New("boundary representation has no faces")

// Kernel is the geometry kernel the exporter delegates meshing to. It never
// simplifies geometry; ReduceMesh only welds vertices that are exact
// duplicates.
type Kernel struct{}

// NewKernel creates a geometry kernel.
func NewKernel() *Kernel {
	return &Kernel{}
}

// Triangulate joins the patches of b into one mesh. Polygons with more than
// four corners are fanned into triangles; quads are kept for
// ConvertQuadsToTriangles.
func (k *Kernel) Triangulate(b *Brep) (*Mesh, error) {
	if b == nil || len(b.Patches) == 0 {
		return nil, ErrEmptyBrep
	}

	joined := NewMesh(b.Name)
	for _, patch := range b.Patches {
		joined.Append(patch)
	}
	if len(joined.Faces) == 0 {
		return nil, fmt.Errorf("%q: %w", b.Name, ErrEmptyBrep)
	}

	faces := make([]Face, 0, len(joined.Faces))
	for _, f := range joined.Faces {
		if len(f.V) <= 4 {
			faces = append(faces, f)
			continue
		}
		for i := 1; i+1 < len(f.V); i++ {
			faces = append(faces, Tri(f.V[0], f.V[i], f.V[i+1]))
		}
	}
	joined.Faces = faces
	joined.CalculateBounds()

	return joined, nil
}

// ReduceMesh welds vertices with identical position and normal. It reports
// whether the result fits in budget triangles; a budget of zero or less
// means unlimited.
func (k *Kernel) ReduceMesh(m *Mesh, budget int) (*Mesh, bool) {
	type key [6]float64

	index := make(map[key]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	vertices := make([]MeshVertex, 0, len(m.Vertices))

	for i, v := range m.Vertices {
		kv := key{v.Position.X, v.Position.Y, v.Position.Z, v.Normal.X, v.Normal.Y, v.Normal.Z}
		if j, ok := index[kv]; ok {
			remap[i] = j
			continue
		}
		index[kv] = len(vertices)
		remap[i] = len(vertices)
		vertices = append(vertices, v)
	}

	out := &Mesh{
		Name:      m.Name,
		Vertices:  vertices,
		Faces:     make([]Face, len(m.Faces)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	for i, f := range m.Faces {
		v := make([]int, len(f.V))
		for j, idx := range f.V {
			if idx >= 0 && idx < len(remap) {
				v[j] = remap[idx]
			} else {
				v[j] = idx // left for Compact to reject
			}
		}
		out.Faces[i] = Face{V: v}
	}

	return out, budget <= 0 || out.TriangleCount() <= budget
}

// ConvertQuadsToTriangles splits every quad along its 0-2 diagonal. It
// reports whether all faces are triangles afterwards.
func (k *Kernel) ConvertQuadsToTriangles(m *Mesh) bool {
	faces := make([]Face, 0, len(m.Faces))
	ok := true
	for _, f := range m.Faces {
		switch len(f.V) {
		case 3:
			faces = append(faces, f)
		case 4:
			faces = append(faces, Tri(f.V[0], f.V[1], f.V[2]), Tri(f.V[0], f.V[2], f.V[3]))
		default:
			faces = append(faces, f)
			ok = false
		}
	}
	m.Faces = faces
	return ok
}

// Compact drops collapsed faces and vertices no face references, then
// renumbers. Faces with out-of-range indices are dropped too and make
// Compact report failure.
func (k *Kernel) Compact(m *Mesh) bool {
	ok := true
	used := make([]bool, len(m.Vertices))
	faces := make([]Face, 0, len(m.Faces))

	for _, f := range m.Faces {
		if !inRange(f, len(m.Vertices)) {
			ok = false
			continue
		}
		if collapsed(f) {
			continue
		}
		for _, idx := range f.V {
			used[idx] = true
		}
		faces = append(faces, f)
	}

	remap := make([]int, len(m.Vertices))
	vertices := make([]MeshVertex, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		if !used[i] {
			continue
		}
		remap[i] = len(vertices)
		vertices = append(vertices, v)
	}
	for _, f := range faces {
		for j, idx := range f.V {
			f.V[j] = remap[idx]
		}
	}

	m.Vertices = vertices
	m.Faces = faces
	m.CalculateBounds()
	return ok
}

func inRange(f Face, n int) bool {
	for _, idx := range f.V {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return true
}

// collapsed reports faces with fewer than three distinct corners.
func collapsed(f Face) bool {
	seen := make(map[int]struct{}, len(f.V))
	for _, idx := range f.V {
		seen[idx] = struct{}{}
	}
	return len(seen) < 3
}
