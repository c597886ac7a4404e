// Package export flattens a host document's instance hierarchy into an
// ordered list of instances and mesh parts and writes it as a line-oriented
// text file in which every float is stored as its exact hex bit pattern.
//
// A run is: Ingest (recenter the selection on the origin marker), Flatten
// (walk instances depth-first, collecting parts and materials) and Serialize.
// Exporter wires the three together; Decode reads a file back.
package export

import (
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
	"github.com/taigrr/sceneflat/pkg/scene"
)

// MaterialSource looks up material colors by table index. Index -1 is the
// host's default material.
type MaterialSource interface {
	Material(index int) (models.Material, error)
}

// Host is the document an export reads from. Explode and Copy create
// temporary objects that the exporter deletes once processed.
type Host interface {
	MaterialSource

	Selection() []scene.ObjectID
	Name(id scene.ObjectID) string
	Kind(id scene.ObjectID) scene.Kind
	Layer(id scene.ObjectID) string
	LayerState(layer string) scene.Layer

	Point(id scene.ObjectID) (math3d.Vec3, error)
	Block(id scene.ObjectID) (string, math3d.Mat4, error)
	Explode(id scene.ObjectID) ([]scene.ObjectID, error)
	Copy(ids []scene.ObjectID, offset math3d.Vec3) ([]scene.ObjectID, error)
	Brep(id scene.ObjectID) (*models.Brep, error)
	MaterialIndex(id scene.ObjectID) int

	MoveToCurrentLayer(id scene.ObjectID) error
	Delete(id scene.ObjectID) error
}

// Kernel turns boundary representations into triangle meshes.
type Kernel interface {
	Triangulate(b *models.Brep) (*models.Mesh, error)
	ReduceMesh(m *models.Mesh, budget int) (*models.Mesh, bool)
	ConvertQuadsToTriangles(m *models.Mesh) bool
	Compact(m *models.Mesh) bool
}

var (
	_ Host   = (*scene.Document)(nil)
	_ Kernel = (*models.Kernel)(nil)
)
