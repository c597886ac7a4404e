// Package models provides the mesh and material types exchanged between the
// host document, the geometry kernel and the exporter.
package models

import (
	"github.com/taigrr/sceneflat/pkg/math3d"
)

// Mesh represents a polygon mesh with per-vertex normals. After the kernel
// has run every face is a triangle; before that quads and larger polygons
// are allowed.
type Mesh struct {
	Name     string
	Vertices []MeshVertex
	Faces    []Face

	// Bounding box (calculated on demand)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Face is a polygon given as indices into Mesh.Vertices.
type Face struct {
	V []int
}

// Tri creates a triangle face.
func Tri(a, b, c int) Face {
	return Face{V: []int{a, b, c}}
}

// Quad creates a quad face.
func Quad(a, b, c, d int) Face {
	return Face{V: []int{a, b, c, d}}
}

// IsTriangle reports whether the face has exactly three indices.
func (f Face) IsTriangle() bool {
	return len(f.V) == 3
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: make([]MeshVertex, 0),
		Faces:    make([]Face, 0),
	}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(pos, normal math3d.Vec3) int {
	m.Vertices = append(m.Vertices, MeshVertex{Position: pos, Normal: normal})
	return len(m.Vertices) - 1
}

// Append joins other into m, offsetting its face indices.
func (m *Mesh) Append(other *Mesh) {
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, f := range other.Faces {
		v := make([]int, len(f.V))
		for i, idx := range f.V {
			v[i] = base + idx
		}
		m.Faces = append(m.Faces, Face{V: v})
	}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of faces. Once the kernel has
// triangulated the mesh every face is a triangle.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// IsTriangulated reports whether every face is a triangle.
func (m *Mesh) IsTriangulated() bool {
	for _, f := range m.Faces {
		if !f.IsTriangle() {
			return false
		}
	}
	return true
}

// CalculateSmoothNormals computes averaged normals for smooth shading.
// Polygons contribute the normal of their first three corners.
func (m *Mesh) CalculateSmoothNormals() {
	// Reset all normals
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	// Accumulate face normals per vertex
	for _, f := range m.Faces {
		if len(f.V) < 3 {
			continue
		}
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet

		for _, idx := range f.V {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(normal)
		}
	}

	// Normalize all accumulated normals
	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Vertices {
		m.Vertices[i].Position = mat.MulVec3(m.Vertices[i].Position)
		// Rotation part only; non-uniform scale would need the inverse transpose
		m.Vertices[i].Normal = mat.MulVec3Dir(m.Vertices[i].Normal).Normalize()
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	for i, f := range m.Faces {
		clone.Faces[i] = Face{V: append([]int(nil), f.V...)}
	}
	return clone
}

// GetVertex returns the position and normal for vertex i.
func (m *Mesh) GetVertex(i int) (pos, normal math3d.Vec3) {
	v := m.Vertices[i]
	return v.Position, v.Normal
}

// GetFace returns the first three vertex indices of face i.
func (m *Mesh) GetFace(i int) [3]int {
	var tri [3]int
	copy(tri[:], m.Faces[i].V)
	return tri
}

// GetBounds returns the axis-aligned bounding box from the last
// CalculateBounds.
func (m *Mesh) GetBounds() (min, max math3d.Vec3) {
	return m.BoundsMin, m.BoundsMax
}
