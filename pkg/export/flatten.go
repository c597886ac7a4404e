package export

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/taigrr/sceneflat/pkg/config"
	"github.com/taigrr/sceneflat/pkg/log"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
	"github.com/taigrr/sceneflat/pkg/scene"
)

var (
	// ErrCyclicBlock is returned when an instance's block is already being
	// expanded further up the same chain.
	ErrCyclicBlock = errors.New("block contains an instance of itself")
	// ErrTooDeep is returned when nesting exceeds config.Export.MaxDepth.
	ErrTooDeep = errors.New("instance nesting too deep")
)

// Instance is a placed block in the flattened hierarchy. Instances live in
// Scene.Instances and refer to each other by index; index 0 is the root.
type Instance struct {
	Name     string
	FullName string
	Type     string
	// Transform maps the instance's block space into its parent's space.
	Transform math3d.Mat4
	Parent    int
	// Ancestors lists parent indices from the root down.
	Ancestors []int
	Parts     []int
	// Touched is set once a part is attached to the instance or any
	// descendant.
	Touched bool
}

// Depth returns the number of ancestors.
func (in *Instance) Depth() int {
	return len(in.Ancestors)
}

// Part is one triangulated leaf object.
type Part struct {
	Name          string
	Mesh          *models.Mesh
	Material      string
	MaterialIndex int
	Instance      int
}

// Scene is the result of flattening.
type Scene struct {
	Instances []Instance
	Parts     []Part
	Materials *MaterialTable
	Report    *Report
}

func newScene() *Scene {
	return &Scene{
		Instances: []Instance{{Parent: -1, Transform: math3d.Identity()}},
		Materials: NewMaterialTable(),
		Report:    &Report{},
	}
}

// Root returns the root sentinel.
func (s *Scene) Root() *Instance {
	return &s.Instances[0]
}

// ParentName returns the local name of instance i's parent, empty for the
// root and its direct children.
func (s *Scene) ParentName(i int) string {
	p := s.Instances[i].Parent
	if p < 0 {
		return ""
	}
	return s.Instances[p].Name
}

// Triangles returns the total triangle count over all parts.
func (s *Scene) Triangles() int {
	n := 0
	for _, p := range s.Parts {
		n += p.Mesh.TriangleCount()
	}
	return n
}

// touch marks instance i and its ancestors, stopping at the first one
// already marked.
func (s *Scene) touch(i int) {
	for i >= 0 && !s.Instances[i].Touched {
		s.Instances[i].Touched = true
		i = s.Instances[i].Parent
	}
}

// Flattener walks instance hierarchies depth-first. A Flattener holds the
// name table of one run; use a new one per export.
type Flattener struct {
	host   Host
	kernel Kernel
	cfg    config.Export
	logger *log.Logger

	kinds scene.Kind
	scene *Scene
	names map[string]struct{}
	chain []string
}

// NewFlattener creates a Flattener reading from host.
func NewFlattener(host Host, kernel Kernel, cfg config.Export, logger *log.Logger) *Flattener {
	return &Flattener{
		host:   host,
		kernel: kernel,
		cfg:    cfg,
		logger: logger,
	}
}

// Flatten processes objects in order. Every object, and every temporary
// created by exploding instances, is deleted from the host exactly once,
// including when the run fails.
func (f *Flattener) Flatten(objects []scene.ObjectID) (*Scene, error) {
	kinds, err := f.cfg.Kinds()
	if err != nil {
		return nil, err
	}
	f.kinds = kinds
	f.scene = newScene()
	f.names = make(map[string]struct{})
	f.chain = f.chain[:0]

	for i, id := range objects {
		if err := f.process(id, 0); err != nil {
			f.discard(objects[i+1:])
			return f.scene, err
		}
	}
	return f.scene, nil
}

func (f *Flattener) process(id scene.ObjectID, parent int) error {
	if f.host.Kind(id) == scene.KindInstance {
		return f.processInstance(id, parent)
	}
	f.processLeaf(id, parent)
	f.release(id)
	return nil
}

func (f *Flattener) processInstance(id scene.ObjectID, parent int) error {
	typ, xform, err := f.host.Block(id)
	if err != nil {
		f.release(id)
		return fmt.Errorf("resolve instance %s: %w", id, err)
	}
	name := sanitize(f.host.Name(id))
	if name == "" {
		name = sanitize(typ)
	}

	p := f.scene.Instances[parent]
	ancestors := append(slices.Clone(p.Ancestors), parent)
	if len(ancestors) > f.cfg.MaxDepth {
		f.release(id)
		return fmt.Errorf("instance %q: %w (limit %d)", name, ErrTooDeep, f.cfg.MaxDepth)
	}
	if slices.Contains(f.chain, typ) {
		f.release(id)
		return fmt.Errorf("instance %q of block %q: %w", name, typ, ErrCyclicBlock)
	}

	path := make([]string, 0, len(ancestors))
	for _, a := range ancestors[1:] {
		path = append(path, f.scene.Instances[a].Name)
	}
	fullName := f.unique(id, strings.Join(append(path, name), "."))

	idx := len(f.scene.Instances)
	f.scene.Instances = append(f.scene.Instances, Instance{
		Name:      name,
		FullName:  fullName,
		Type:      typ,
		Transform: xform,
		Parent:    parent,
		Ancestors: ancestors,
	})
	f.logger.Debugf("instance %s (%s) at depth %d", fullName, typ, len(ancestors))

	children, err := f.host.Explode(id)
	if err != nil {
		f.discard(children)
		f.release(id)
		return fmt.Errorf("explode %q: %w", fullName, err)
	}

	f.chain = append(f.chain, typ)
	defer func() { f.chain = f.chain[:len(f.chain)-1] }()

	for i, child := range children {
		if err := f.process(child, idx); err != nil {
			f.discard(children[i+1:])
			f.release(id)
			return err
		}
	}
	f.release(id)
	return nil
}

// unique returns name, or name with the smallest free +N suffix when name is
// already taken, and claims the result.
func (f *Flattener) unique(id scene.ObjectID, name string) string {
	result := name
	for n := 1; ; n++ {
		if _, taken := f.names[result]; !taken {
			break
		}
		result = fmt.Sprintf("%s+%d", name, n)
	}
	f.names[result] = struct{}{}
	if result != name {
		f.warn(Event{Kind: EventRename, Object: id, Name: name, Detail: "renamed to " + result})
	}
	return result
}

// skipReason returns why a leaf object is not exported, or "" to accept it.
func (f *Flattener) skipReason(id scene.ObjectID, name string) string {
	layer := f.host.LayerState(f.host.Layer(id))
	kind := f.host.Kind(id)
	switch {
	case layer.Locked:
		return "layer locked"
	case layer.Hidden:
		return "layer hidden"
	case !f.kinds.Has(kind):
		return "bad type - " + kind.String()
	case name == "":
		return "no name"
	}
	return ""
}

func (f *Flattener) processLeaf(id scene.ObjectID, parent int) {
	name := sanitize(f.host.Name(id))

	if reason := f.skipReason(id, name); reason != "" {
		// locked layers refuse deletion
		if err := f.host.MoveToCurrentLayer(id); err != nil {
			f.logger.Debugf("move %s to current layer: %v", id, err)
		}
		f.warn(Event{Kind: EventSkip, Object: id, Name: name, Detail: reason})
		return
	}

	mesh, err := f.mesh(id, name)
	if err != nil {
		f.warn(Event{Kind: EventSkip, Object: id, Name: name, Detail: err.Error()})
		return
	}

	matIndex, matName := f.material(id, name)

	pi := len(f.scene.Parts)
	f.scene.Parts = append(f.scene.Parts, Part{
		Name:          name,
		Mesh:          mesh,
		Material:      matName,
		MaterialIndex: matIndex,
		Instance:      parent,
	})
	f.scene.Instances[parent].Parts = append(f.scene.Instances[parent].Parts, pi)
	f.scene.touch(parent)
}

// mesh runs the kernel over the object's boundary representation.
func (f *Flattener) mesh(id scene.ObjectID, name string) (*models.Mesh, error) {
	brep, err := f.host.Brep(id)
	if err != nil {
		return nil, err
	}
	mesh, err := f.kernel.Triangulate(brep)
	if err != nil {
		return nil, err
	}

	mesh, ok := f.kernel.ReduceMesh(mesh, f.cfg.MeshBudget)
	if !ok {
		f.warn(Event{Kind: EventBudget, Object: id, Name: name,
			Detail: fmt.Sprintf("%d triangles exceed budget of %d", mesh.TriangleCount(), f.cfg.MeshBudget)})
	}
	if !f.kernel.ConvertQuadsToTriangles(mesh) {
		f.warn(Event{Kind: EventShape, Object: id, Name: name, Detail: "mesh still has non-triangle faces"})
	}
	if !f.kernel.Compact(mesh) {
		f.warn(Event{Kind: EventShape, Object: id, Name: name, Detail: "mesh had invalid faces"})
	}
	mesh.Name = name
	return mesh, nil
}

// material resolves the object's material name and registers it.
func (f *Flattener) material(id scene.ObjectID, name string) (int, string) {
	index := f.host.MaterialIndex(id)
	mat, err := f.host.Material(index)
	if err != nil {
		f.warn(Event{Kind: EventMaterial, Object: id, Name: name, Detail: err.Error() + ", using default"})
		index, mat = -1, models.DefaultMaterial
	}

	matName := sanitize(mat.Name)
	if matName == "" {
		matName = fmt.Sprintf("material%d", index)
	}
	if !f.scene.Materials.Register(matName, index) {
		first, _ := f.scene.Materials.Lookup(matName)
		f.warn(Event{Kind: EventMaterialConflict, Object: id, Name: name,
			Detail: fmt.Sprintf("%q is index %d, keeping index %d", matName, index, first.Index)})
	}
	return index, matName
}

// release deletes a processed object from the host.
func (f *Flattener) release(id scene.ObjectID) {
	if f.host.LayerState(f.host.Layer(id)).Locked {
		if err := f.host.MoveToCurrentLayer(id); err != nil {
			f.logger.Debugf("move %s to current layer: %v", id, err)
		}
	}
	if err := f.host.Delete(id); err != nil {
		f.warn(Event{Kind: EventCleanup, Object: id, Name: f.host.Name(id), Detail: err.Error()})
	}
}

// discard deletes objects a failed run did not get to. Unprocessed instances
// were never exploded, so this leaves no temporaries behind.
func (f *Flattener) discard(ids []scene.ObjectID) {
	for _, id := range ids {
		f.release(id)
	}
}

func (f *Flattener) warn(e Event) {
	f.scene.Report.add(f.logger, e)
}

// sanitize makes a name usable as a single whitespace-free record field.
func sanitize(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
