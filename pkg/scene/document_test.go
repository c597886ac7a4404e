package scene

import (
	"errors"
	"testing"

	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

func triangle(name string) *models.Mesh {
	m := models.NewMesh(name)
	m.AddVertex(math3d.V3(0, 0, 0), math3d.V3(0, 0, 1))
	m.AddVertex(math3d.V3(1, 0, 0), math3d.V3(0, 0, 1))
	m.AddVertex(math3d.V3(0, 1, 0), math3d.V3(0, 0, 1))
	m.Faces = append(m.Faces, models.Tri(0, 1, 2))
	return m
}

func TestDocumentAddDefaultsLayer(t *testing.T) {
	d := NewDocument()
	ids := d.Add(NewPoint("Origin", "", math3d.V3(1, 2, 3)))

	if got := d.Layer(ids[0]); got != DefaultLayer {
		t.Errorf("Layer = %q, want %q", got, DefaultLayer)
	}
	p, err := d.Point(ids[0])
	if err != nil {
		t.Fatalf("Point failed: %v", err)
	}
	if p != math3d.V3(1, 2, 3) {
		t.Errorf("Point = %v", p)
	}
	if _, err := d.Brep(ids[0]); !errors.Is(err, ErrWrongKind) {
		t.Errorf("Brep on a point: got %v, want ErrWrongKind", err)
	}
}

func TestDocumentExplode(t *testing.T) {
	d := NewDocument()
	block := NewBlock("Wheel").Add(NewMeshObject("Rim", "Parts", triangle("rim")))
	xform := math3d.Translate(math3d.V3(0, 0, 5))
	ids := d.Add(NewInstance("FrontLeft", "", block, xform))

	name, got, err := d.Block(ids[0])
	if err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if name != "Wheel" || got != xform {
		t.Errorf("Block = %q %v", name, got)
	}

	children, err := d.Explode(ids[0])
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	if len(children) != 1 || d.Name(children[0]) != "Rim" {
		t.Fatalf("Explode = %v", children)
	}
	if d.Temporaries() != 1 {
		t.Errorf("Temporaries = %d, want 1", d.Temporaries())
	}
	if err := d.Delete(children[0]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if d.Temporaries() != 0 {
		t.Errorf("Temporaries after delete = %d", d.Temporaries())
	}

	if _, err := d.Explode(children[0]); !errors.Is(err, ErrDeleted) {
		t.Errorf("Explode deleted object: got %v, want ErrDeleted", err)
	}
}

func TestDocumentCopyTranslates(t *testing.T) {
	d := NewDocument()
	ids := d.Add(
		NewPoint("P", "", math3d.V3(1, 1, 1)),
		NewMeshObject("M", "", triangle("m")),
		NewInstance("I", "", NewBlock("B"), math3d.Identity()),
	)

	copies, err := d.Copy(ids, math3d.V3(-1, 0, 0))
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if len(copies) != 3 {
		t.Fatalf("Copy returned %d ids", len(copies))
	}

	if p, _ := d.Point(copies[0]); p != math3d.V3(0, 1, 1) {
		t.Errorf("copied point = %v", p)
	}

	brep, _ := d.Brep(copies[1])
	if pos, _ := brep.Patches[0].GetVertex(1); pos != math3d.V3(0, 0, 0) {
		t.Errorf("copied vertex = %v", pos)
	}
	orig, _ := d.Brep(ids[1])
	if pos, _ := orig.Patches[0].GetVertex(1); pos != math3d.V3(1, 0, 0) {
		t.Errorf("original vertex moved to %v", pos)
	}

	_, xform, _ := d.Block(copies[2])
	if xform.Translation() != math3d.V3(-1, 0, 0) {
		t.Errorf("copied instance translation = %v", xform.Translation())
	}
}

func TestDocumentMaterials(t *testing.T) {
	d := NewDocument()
	red := d.AddMaterial(models.Material{Name: "Red", Diffuse: models.FromARGB(0xffff0000)})
	d.AddLayer(Layer{Name: "Painted", MaterialIndex: red})

	onLayer := d.Add(NewMeshObject("A", "Painted", triangle("a")))[0]
	own := d.Add(NewMeshObject("B", "Painted", triangle("b")).WithMaterial(-1))[0]
	plain := d.Add(NewMeshObject("C", "", triangle("c")))[0]

	if got := d.MaterialIndex(onLayer); got != red {
		t.Errorf("layer material = %d, want %d", got, red)
	}
	if got := d.MaterialIndex(own); got != red {
		t.Errorf("unset object material should defer to layer, got %d", got)
	}
	if got := d.MaterialIndex(plain); got != -1 {
		t.Errorf("plain material = %d, want -1", got)
	}

	m, err := d.Material(-1)
	if err != nil || m.Name != models.DefaultMaterial.Name {
		t.Errorf("Material(-1) = %v, %v", m, err)
	}
	if _, err := d.Material(7); !errors.Is(err, ErrNotFound) {
		t.Errorf("Material(7): got %v, want ErrNotFound", err)
	}
}

func TestDocumentLockedLayer(t *testing.T) {
	d := NewDocument()
	d.AddLayer(Layer{Name: "Frozen", Locked: true, MaterialIndex: -1})
	id := d.Add(NewMeshObject("Ice", "Frozen", triangle("ice")))[0]

	if err := d.Delete(id); !errors.Is(err, ErrLocked) {
		t.Fatalf("Delete on locked layer: got %v, want ErrLocked", err)
	}
	if err := d.MoveToCurrentLayer(id); err != nil {
		t.Fatalf("MoveToCurrentLayer failed: %v", err)
	}
	if err := d.Delete(id); err != nil {
		t.Fatalf("Delete after move failed: %v", err)
	}
	if d.DeleteCount(id) != 2 {
		t.Errorf("DeleteCount = %d, want 2", d.DeleteCount(id))
	}
}

func TestDocumentSelection(t *testing.T) {
	d := NewDocument()
	ids := d.Add(NewPoint("a", "", math3d.Zero3()), NewPoint("b", "", math3d.Zero3()))
	d.Select(ids[1])

	sel := d.Selection()
	if len(sel) != 1 || sel[0] != ids[1] {
		t.Errorf("Selection = %v", sel)
	}

	d.SelectAll()
	if len(d.Selection()) != 2 {
		t.Errorf("SelectAll selected %d objects", len(d.Selection()))
	}

	_ = d.Delete(ids[0])
	if len(d.Selection()) != 1 {
		t.Error("deleted objects should drop out of the selection")
	}
}

func TestDocumentSelectNamed(t *testing.T) {
	d := NewDocument()
	d.Select(d.Add(
		NewPoint("a", "", math3d.Zero3()),
		NewPoint("b", "", math3d.Zero3()),
		NewPoint("c", "", math3d.Zero3()),
	)...)

	d.SelectNamed("c", "a", "missing")

	var names []string
	for _, id := range d.Selection() {
		names = append(names, d.Name(id))
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("SelectNamed kept %v, want [a c]", names)
	}
}
