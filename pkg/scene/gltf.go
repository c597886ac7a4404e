package scene

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

// GLTFLoader builds a Document from a glTF scene.
//
// Nodes with children become block instances whose definition holds the
// children (and the node's own mesh, if any). Leaf nodes with a mesh become
// mesh objects with the node transform baked in. Leaf nodes without a mesh
// become points, which is how the origin marker is expressed.
//
// Node extras may carry "layer" (string), "block" (definition name), "kind"
// (an object kind name overriding the geometry) and "material" (index).
// Document extras may carry "layers": {name: {locked, hidden, material}}.
type GLTFLoader struct {
	// Options
	CalculateNormals bool
	MaxDepth         int
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		MaxDepth:         256,
	}
}

// LoadGLTF loads a .gltf or .glb file with default options. The root nodes
// of the default scene are selected.
func LoadGLTF(path string) (*Document, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a Document.
func (l *GLTFLoader) Load(path string) (*Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return l.Convert(doc)
}

// Convert builds a Document from an already decoded glTF document.
func (l *GLTFLoader) Convert(doc *gltf.Document) (*Document, error) {
	d := NewDocument()

	if err := l.loadLayers(d, doc); err != nil {
		return nil, err
	}

	for i, m := range doc.Materials {
		d.AddMaterial(convertMaterial(i, m))
	}

	for _, idx := range rootNodes(doc) {
		obj, err := l.nodeObject(doc, idx, nil)
		if err != nil {
			return nil, err
		}
		d.Select(d.Add(obj)...)
	}

	return d, nil
}

func (l *GLTFLoader) loadLayers(d *Document, doc *gltf.Document) error {
	layers, ok := extrasMap(doc.Extras)["layers"].(map[string]any)
	if !ok {
		return nil
	}
	for name, raw := range layers {
		props, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("layer %q: expected an object", name)
		}
		layer := Layer{Name: name, MaterialIndex: -1}
		layer.Locked, _ = props["locked"].(bool)
		layer.Hidden, _ = props["hidden"].(bool)
		if visible, ok := props["visible"].(bool); ok {
			layer.Hidden = !visible
		}
		if idx, ok := props["material"].(float64); ok {
			layer.MaterialIndex = int(idx)
		}
		d.AddLayer(layer)
	}
	return nil
}

// rootNodes returns the nodes of the default scene, or every parentless node
// when the file has no scenes.
func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeObject converts node idx. chain holds the block names of the enclosing
// group nodes.
func (l *GLTFLoader) nodeObject(doc *gltf.Document, idx int, chain []string) (*Object, error) {
	if len(chain) > l.MaxDepth {
		return nil, fmt.Errorf("node %d: hierarchy deeper than %d", idx, l.MaxDepth)
	}
	node := doc.Nodes[idx]
	extras := extrasMap(node.Extras)
	layer, _ := extras["layer"].(string)
	xform := nodeMatrix(node)

	if name, ok := extras["kind"].(string); ok {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}
		if kind != KindInstance && kind != KindMesh {
			obj := NewObject(node.Name, layer, kind)
			if kind == KindPoint {
				obj.Point = xform.Translation()
			}
			return obj, nil
		}
	}

	if len(node.Children) > 0 {
		blockName, _ := extras["block"].(string)
		if blockName == "" {
			blockName = node.Name
		}
		if blockName == "" {
			blockName = fmt.Sprintf("node%d", idx)
		}
		// Node names need not be unique. A nested node reusing an enclosing
		// block name gets its own definition.
		if slices.Contains(chain, blockName) {
			blockName = fmt.Sprintf("%s#%d", blockName, idx)
		}
		block := NewBlock(blockName)
		inner := append(slices.Clone(chain), blockName)

		if node.Mesh != nil {
			leaf, err := l.meshObject(doc, node, layer, math3d.Identity())
			if err != nil {
				return nil, err
			}
			block.Add(leaf)
		}
		for _, c := range node.Children {
			child, err := l.nodeObject(doc, c, inner)
			if err != nil {
				return nil, err
			}
			block.Add(child)
		}
		return NewInstance(node.Name, layer, block, xform), nil
	}

	if node.Mesh != nil {
		return l.meshObject(doc, node, layer, xform)
	}

	return NewPoint(node.Name, layer, xform.Translation()), nil
}

func (l *GLTFLoader) meshObject(doc *gltf.Document, node *gltf.Node, layer string, xform math3d.Mat4) (*Object, error) {
	m := doc.Meshes[*node.Mesh]
	brep := &models.Brep{Name: node.Name}
	material := -1

	for _, prim := range m.Primitives {
		patch, err := l.processPrimitive(doc, prim)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		if patch == nil {
			continue
		}
		patch.Name = m.Name
		patch.Transform(xform)
		brep.Patches = append(brep.Patches, patch)
		if material < 0 && prim.Material != nil {
			material = *prim.Material
		}
	}

	if idx, ok := extrasMap(node.Extras)["material"].(float64); ok {
		material = int(idx)
	}

	obj := &Object{Name: node.Name, Kind: KindMesh, Layer: layer, Brep: brep, Material: material}
	return obj, nil
}

// processPrimitive extracts one primitive as a mesh patch. Non-surface
// primitives (points, lines) yield nil.
func (l *GLTFLoader) processPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*models.Mesh, error) {
	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return nil, nil
	}

	// Get position accessor
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}

	positions, err := readVec3Accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	// Get normals if available
	var normals []math3d.Vec3
	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err = readVec3Accessor(doc, normIdx)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}

	mesh := models.NewMesh("")
	for i, p := range positions {
		var n math3d.Vec3
		if i < len(normals) {
			n = normals[i]
		}
		mesh.AddVertex(p, n)
	}

	var indices []int
	if prim.Indices != nil {
		indices, err = readIndices(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		// No indices, vertices are used in order
		indices = make([]int, len(positions))
		for i := range indices {
			indices[i] = i
		}
	}

	mesh.Faces = assembleTriangles(prim.Mode, indices)

	if l.CalculateNormals && len(normals) == 0 {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	return mesh, nil
}

// assembleTriangles expands list, strip and fan topologies into triangles,
// keeping glTF's counter-clockwise winding.
func assembleTriangles(mode gltf.PrimitiveMode, idx []int) []models.Face {
	var faces []models.Face
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				faces = append(faces, models.Tri(idx[i], idx[i+1], idx[i+2]))
			} else {
				faces = append(faces, models.Tri(idx[i+1], idx[i], idx[i+2]))
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			faces = append(faces, models.Tri(idx[0], idx[i], idx[i+1]))
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			faces = append(faces, models.Tri(idx[i], idx[i+1], idx[i+2]))
		}
	}
	return faces
}

func nodeMatrix(node *gltf.Node) math3d.Mat4 {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return math3d.Mat4(m)
	}
	return math3d.FromTRS(node.TranslationOrDefault(), node.RotationOrDefault(), node.ScaleOrDefault())
}

func convertMaterial(i int, m *gltf.Material) models.Material {
	mat := models.DefaultMaterial
	mat.Name = m.Name
	if mat.Name == "" {
		mat.Name = fmt.Sprintf("material%d", i)
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		c := *pbr.BaseColorFactor
		mat.Diffuse = models.RGBAFromFloats(c[0], c[1], c[2], c[3])
	}
	e := m.EmissiveFactor
	mat.Emission = models.RGBAFromFloats(e[0], e[1], e[2], 1)

	if amb, ok := extrasMap(m.Extras)["ambient"].([]any); ok && len(amb) >= 3 {
		ch := [4]float64{0, 0, 0, 1}
		for j := 0; j < len(amb) && j < 4; j++ {
			ch[j], _ = amb[j].(float64)
		}
		mat.Ambient = models.RGBAFromFloats(ch[0], ch[1], ch[2], ch[3])
	}
	return mat
}

// extrasMap returns glTF extras as a generic JSON object, nil otherwise.
func extrasMap(v any) map[string]any {
	switch e := v.(type) {
	case map[string]any:
		return e
	case json.RawMessage:
		var m map[string]any
		if json.Unmarshal(e, &m) == nil {
			return m
		}
	case []byte:
		var m map[string]any
		if json.Unmarshal(e, &m) == nil {
			return m
		}
	}
	return nil
}

// readVec3Accessor reads Vec3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float components, got %v", accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range accessor.Count {
		offset := start + i*stride
		if offset+12 > len(data) {
			return nil, fmt.Errorf("accessor %d overruns its buffer", accessorIdx)
		}
		var f [3]float32
		for j := range 3 {
			f[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset+j*4:]))
		}
		result[i] = math3d.Vec3From32(f)
	}

	return result, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range accessor.Count {
		offset := start + i*stride
		if offset+size > len(data) {
			return nil, fmt.Errorf("accessor %d overruns its buffer", accessorIdx)
		}
		switch size {
		case 1:
			result[i] = int(data[offset])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(data[offset:]))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(data[offset:]))
		}
	}
	return result, nil
}

// accessorBytes returns the buffer backing an accessor, the offset of its
// first element and the element stride.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	// gltf.Open resolves both embedded (GLB) and external buffers into Data
	if buffer.Data == nil {
		return nil, 0, 0, fmt.Errorf("buffer has no data")
	}

	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	return buffer.Data, bufferView.ByteOffset + accessor.ByteOffset, stride, nil
}
