package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

// ObjectID identifies a live document object.
type ObjectID = uuid.UUID

// DefaultLayer is the layer every document starts with.
const DefaultLayer = "Default"

var (
	ErrNotFound  = errors.New("object not found")
	ErrDeleted   = errors.New("object already deleted")
	ErrLocked    = errors.New("object is on a locked layer")
	ErrWrongKind = errors.New("object has the wrong kind")
)

// Layer holds the per-layer state the exporter consults.
type Layer struct {
	Name   string
	Locked bool
	Hidden bool
	// MaterialIndex is the layer material, -1 for none.
	MaterialIndex int
}

// Object is a document object. Objects built with the New* constructors are
// templates until they are added to a Document or a Block.
type Object struct {
	ID    ObjectID
	Name  string
	Kind  Kind
	Layer string

	Point     math3d.Vec3  // KindPoint
	Brep      *models.Brep // leaf geometry
	Block     *Block       // KindInstance
	Transform math3d.Mat4  // KindInstance, block to parent space
	// Material is the object material index; -1 defers to the layer.
	Material int

	temporary bool
}

// NewPoint creates a point object.
func NewPoint(name, layer string, pos math3d.Vec3) *Object {
	return &Object{Name: name, Kind: KindPoint, Layer: layer, Point: pos, Material: -1}
}

// NewSurface creates a polysurface object from its boundary representation.
func NewSurface(name, layer string, brep *models.Brep) *Object {
	return &Object{Name: name, Kind: KindPolysurface, Layer: layer, Brep: brep, Material: -1}
}

// NewMeshObject creates a mesh object.
func NewMeshObject(name, layer string, mesh *models.Mesh) *Object {
	brep := &models.Brep{Name: name, Patches: []*models.Mesh{mesh}}
	return &Object{Name: name, Kind: KindMesh, Layer: layer, Brep: brep, Material: -1}
}

// NewInstance creates a block instance placing block with xform.
func NewInstance(name, layer string, block *Block, xform math3d.Mat4) *Object {
	return &Object{Name: name, Kind: KindInstance, Layer: layer, Block: block, Transform: xform, Material: -1}
}

// NewObject creates a geometry-less object of any kind, such as a curve or
// annotation.
func NewObject(name, layer string, kind Kind) *Object {
	return &Object{Name: name, Kind: kind, Layer: layer, Material: -1}
}

// WithMaterial sets the object material index.
func (o *Object) WithMaterial(index int) *Object {
	o.Material = index
	return o
}

func (o *Object) clone() *Object {
	c := *o
	c.ID = uuid.New()
	c.temporary = true
	return &c
}

// Block is an instance definition: objects expressed in block-local space.
type Block struct {
	Name    string
	Objects []*Object
}

// NewBlock creates an unregistered block definition.
func NewBlock(name string) *Block {
	return &Block{Name: name}
}

// Add appends template objects to the definition.
func (b *Block) Add(objs ...*Object) *Block {
	b.Objects = append(b.Objects, objs...)
	return b
}

// Document is an in-memory host document.
type Document struct {
	objects    map[ObjectID]*Object
	order      []ObjectID
	selected   []ObjectID
	layers     map[string]*Layer
	layerOrder []string
	current    string
	blocks     map[string]*Block
	materials  []models.Material
	deletes    map[ObjectID]int
}

// NewDocument creates an empty document with a default layer.
func NewDocument() *Document {
	d := &Document{
		objects: make(map[ObjectID]*Object),
		layers:  make(map[string]*Layer),
		blocks:  make(map[string]*Block),
		deletes: make(map[ObjectID]int),
	}
	d.AddLayer(Layer{Name: DefaultLayer, MaterialIndex: -1})
	d.current = DefaultLayer
	return d
}

// AddLayer adds or replaces a layer.
func (d *Document) AddLayer(l Layer) {
	if _, ok := d.layers[l.Name]; !ok {
		d.layerOrder = append(d.layerOrder, l.Name)
	}
	d.layers[l.Name] = &l
}

// SetCurrentLayer changes the layer MoveToCurrentLayer targets.
func (d *Document) SetCurrentLayer(name string) {
	if _, ok := d.layers[name]; !ok {
		d.AddLayer(Layer{Name: name, MaterialIndex: -1})
	}
	d.current = name
}

// CurrentLayer returns the current layer name.
func (d *Document) CurrentLayer() string {
	return d.current
}

// Layers returns layer names in creation order.
func (d *Document) Layers() []string {
	return append([]string(nil), d.layerOrder...)
}

// AddMaterial appends a material to the table and returns its index.
func (d *Document) AddMaterial(m models.Material) int {
	d.materials = append(d.materials, m)
	return len(d.materials) - 1
}

// DefineBlock returns the registered block with name, creating it if needed.
func (d *Document) DefineBlock(name string) *Block {
	if b, ok := d.blocks[name]; ok {
		return b
	}
	b := NewBlock(name)
	d.blocks[name] = b
	return b
}

// Add inserts template objects as live objects and returns their IDs.
func (d *Document) Add(objs ...*Object) []ObjectID {
	ids := make([]ObjectID, 0, len(objs))
	for _, o := range objs {
		live := *o
		live.ID = uuid.New()
		ids = append(ids, d.insert(&live))
	}
	return ids
}

func (d *Document) insert(o *Object) ObjectID {
	if o.Layer == "" {
		o.Layer = DefaultLayer
	}
	if _, ok := d.layers[o.Layer]; !ok {
		d.AddLayer(Layer{Name: o.Layer, MaterialIndex: -1})
	}
	d.objects[o.ID] = o
	d.order = append(d.order, o.ID)
	return o.ID
}

// Select adds ids to the selection.
func (d *Document) Select(ids ...ObjectID) {
	d.selected = append(d.selected, ids...)
}

// SelectAll selects every live object that is not temporary.
func (d *Document) SelectAll() {
	d.selected = d.selected[:0]
	for _, id := range d.order {
		if o, ok := d.objects[id]; ok && !o.temporary {
			d.selected = append(d.selected, id)
		}
	}
}

// Selection returns the selected live objects in selection order.
func (d *Document) Selection() []ObjectID {
	out := make([]ObjectID, 0, len(d.selected))
	for _, id := range d.selected {
		if _, ok := d.objects[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Objects returns all live objects in creation order.
func (d *Document) Objects() []ObjectID {
	out := make([]ObjectID, 0, len(d.objects))
	for _, id := range d.order {
		if _, ok := d.objects[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Object returns the live object with id.
func (d *Document) Object(id ObjectID) (*Object, error) {
	o, ok := d.objects[id]
	if !ok {
		if d.deletes[id] > 0 {
			return nil, fmt.Errorf("%s: %w", id, ErrDeleted)
		}
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return o, nil
}

// Name returns the object name, empty when unnamed or unknown.
func (d *Document) Name(id ObjectID) string {
	if o, ok := d.objects[id]; ok {
		return o.Name
	}
	return ""
}

// Kind returns the object kind.
func (d *Document) Kind(id ObjectID) Kind {
	if o, ok := d.objects[id]; ok {
		return o.Kind
	}
	return KindUnknown
}

// Layer returns the name of the object's layer.
func (d *Document) Layer(id ObjectID) string {
	if o, ok := d.objects[id]; ok {
		return o.Layer
	}
	return ""
}

// LayerState returns the state of the named layer. Unknown layers are
// visible, unlocked and have no material.
func (d *Document) LayerState(name string) Layer {
	if l, ok := d.layers[name]; ok {
		return *l
	}
	return Layer{Name: name, MaterialIndex: -1}
}

// Point returns the coordinates of a point object.
func (d *Document) Point(id ObjectID) (math3d.Vec3, error) {
	o, err := d.Object(id)
	if err != nil {
		return math3d.Vec3{}, err
	}
	if o.Kind != KindPoint {
		return math3d.Vec3{}, fmt.Errorf("%s is a %s: %w", id, o.Kind, ErrWrongKind)
	}
	return o.Point, nil
}

// Block returns the definition name and local transform of an instance.
func (d *Document) Block(id ObjectID) (string, math3d.Mat4, error) {
	o, err := d.instance(id)
	if err != nil {
		return "", math3d.Mat4{}, err
	}
	return o.Block.Name, o.Transform, nil
}

// Explode creates temporary copies of the instance's definition objects, in
// block-local space. The instance itself is left in place.
func (d *Document) Explode(id ObjectID) ([]ObjectID, error) {
	o, err := d.instance(id)
	if err != nil {
		return nil, err
	}
	ids := make([]ObjectID, 0, len(o.Block.Objects))
	for _, child := range o.Block.Objects {
		ids = append(ids, d.insert(child.clone()))
	}
	return ids, nil
}

func (d *Document) instance(id ObjectID) (*Object, error) {
	o, err := d.Object(id)
	if err != nil {
		return nil, err
	}
	if o.Kind != KindInstance || o.Block == nil {
		return nil, fmt.Errorf("%s is a %s: %w", id, o.Kind, ErrWrongKind)
	}
	return o, nil
}

// Copy creates temporary copies of ids translated by offset.
func (d *Document) Copy(ids []ObjectID, offset math3d.Vec3) ([]ObjectID, error) {
	move := math3d.Translate(offset)
	out := make([]ObjectID, 0, len(ids))
	for _, id := range ids {
		o, err := d.Object(id)
		if err != nil {
			return out, err
		}
		c := o.clone()
		switch {
		case c.Kind == KindInstance:
			c.Transform = move.Mul(c.Transform)
		case c.Kind == KindPoint:
			c.Point = c.Point.Add(offset)
		case c.Brep != nil:
			brep := &models.Brep{Name: c.Brep.Name, Patches: make([]*models.Mesh, len(c.Brep.Patches))}
			for i, p := range c.Brep.Patches {
				brep.Patches[i] = p.Clone()
				brep.Patches[i].Transform(move)
			}
			c.Brep = brep
		}
		out = append(out, d.insert(c))
	}
	return out, nil
}

// Brep returns the boundary representation of a leaf object.
func (d *Document) Brep(id ObjectID) (*models.Brep, error) {
	o, err := d.Object(id)
	if err != nil {
		return nil, err
	}
	if o.Brep == nil {
		return nil, fmt.Errorf("%s is a %s: %w", id, o.Kind, ErrWrongKind)
	}
	return o.Brep, nil
}

// MaterialIndex resolves the object's material: its own when set, otherwise
// its layer's. -1 means none.
func (d *Document) MaterialIndex(id ObjectID) int {
	o, ok := d.objects[id]
	if !ok {
		return -1
	}
	if o.Material >= 0 {
		return o.Material
	}
	return d.LayerState(o.Layer).MaterialIndex
}

// Material looks up the material table. Index -1 yields the default material.
func (d *Document) Material(index int) (models.Material, error) {
	if index == -1 {
		return models.DefaultMaterial, nil
	}
	if index < 0 || index >= len(d.materials) {
		return models.Material{}, fmt.Errorf("material %d: %w", index, ErrNotFound)
	}
	return d.materials[index], nil
}

// MoveToCurrentLayer moves an object onto the current layer.
func (d *Document) MoveToCurrentLayer(id ObjectID) error {
	o, err := d.Object(id)
	if err != nil {
		return err
	}
	o.Layer = d.current
	return nil
}

// Delete removes an object. Objects on locked layers cannot be deleted.
func (d *Document) Delete(id ObjectID) error {
	o, err := d.Object(id)
	d.deletes[id]++
	if err != nil {
		return err
	}
	if d.LayerState(o.Layer).Locked {
		return fmt.Errorf("%s: %w", id, ErrLocked)
	}
	delete(d.objects, id)
	return nil
}

// DeleteCount returns how many times deletion of id was requested.
func (d *Document) DeleteCount(id ObjectID) int {
	return d.deletes[id]
}

// Temporaries returns the number of live objects created by Copy or Explode.
func (d *Document) Temporaries() int {
	n := 0
	for _, o := range d.objects {
		if o.temporary {
			n++
		}
	}
	return n
}

// SelectNamed narrows the selection to objects whose name is in names.
func (d *Document) SelectNamed(names ...string) {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	sel := d.selected[:0]
	for _, id := range d.selected {
		if o, ok := d.objects[id]; ok && keep[o.Name] {
			sel = append(sel, id)
		}
	}
	d.selected = sel
}
