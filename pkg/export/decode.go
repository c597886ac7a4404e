package export

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/taigrr/sceneflat/pkg/hexcodec"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

// ErrMalformed is returned for records that cannot be parsed.
var ErrMalformed = errors.New("malformed record")

// File is the content of an export file.
type File struct {
	Instances []Instance
	Materials []models.Material
	Parts     []Part
}

// Material returns the material with the given name.
func (f *File) Material(name string) (models.Material, bool) {
	for _, m := range f.Materials {
		if m.Name == name {
			return m, true
		}
	}
	return models.Material{}, false
}

// WorldTransform returns the transform from instance i's block space to
// world space.
func (f *File) WorldTransform(i int) math3d.Mat4 {
	world := math3d.Identity()
	in := &f.Instances[i]
	for _, a := range in.Ancestors {
		world = world.Mul(f.Instances[a].Transform)
	}
	return world.Mul(in.Transform)
}

type openInstance struct {
	index  int
	indent int
}

type decoder struct {
	file   *File
	byName map[string]int
	stack  []openInstance
	rows   int
	part   *Part
	verts  int
	tris   int
}

// Decode parses an export file.
func Decode(r io.Reader) (*File, error) {
	d := &decoder{file: &File{}, byName: make(map[string]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		if err := d.record(text); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if err := d.finishPart(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	if d.rows != 0 {
		return nil, fmt.Errorf("line %d: %w: missing transform rows", line, ErrMalformed)
	}
	return d.file, nil
}

func (d *decoder) record(text string) error {
	tag, rest, _ := strings.Cut(text, " ")
	if tag != TagTransform && d.rows != 0 {
		return fmt.Errorf("%w: expected transform row, got %q", ErrMalformed, tag)
	}

	switch tag {
	case TagInstance:
		return d.instance(rest)
	case TagTransform:
		return d.transform(rest)
	case TagMaterial:
		return d.material(rest)
	case TagPart:
		if err := d.finishPart(); err != nil {
			return err
		}
		return d.partHeader(rest)
	case TagVertex:
		return d.vertex(rest)
	case TagTriangles:
		return d.triangles(rest)
	}
	return fmt.Errorf("%w: unknown tag %q", ErrMalformed, tag)
}

func (d *decoder) instance(rest string) error {
	indent := len(rest) - len(strings.TrimLeft(rest, " "))
	fields := strings.Fields(rest)
	if len(fields) != 3 {
		return fmt.Errorf("%w: instance needs 3 fields, got %d", ErrMalformed, len(fields))
	}
	typ, fullName, parentName := unfield(fields[0]), unfield(fields[1]), unfield(fields[2])

	idx := len(d.file.Instances)
	in := Instance{Type: typ, FullName: fullName, Parent: -1, Transform: math3d.Identity()}

	if idx > 0 {
		parent, ok := d.parent(indent, parentName, fullName)
		if !ok {
			return fmt.Errorf("%w: no open instance named %q", ErrMalformed, parentName)
		}
		pi := d.stack[parent].index
		if (pi == 0) != (parentName == "") {
			return fmt.Errorf("%w: instance %q names parent %q", ErrMalformed, fullName, parentName)
		}
		p := &d.file.Instances[pi]
		// The record names its parent; that is authoritative over a local
		// name recovered from the parent's full name.
		if pi > 0 {
			p.Name = parentName
		}
		in.Parent = pi
		in.Ancestors = append(append([]int(nil), p.Ancestors...), pi)
		in.Name = d.localName(d.path(pi), fullName)
		d.stack = d.stack[:parent+1]
	}

	d.file.Instances = append(d.file.Instances, in)
	d.byName[fullName] = idx
	d.stack = append(d.stack, openInstance{index: idx, indent: indent})
	d.rows = 3
	return nil
}

// parent finds the stack entry a new instance hangs off: the innermost open
// instance indented less than it. Without indentation, the innermost open
// instance with a matching local name whose path prefixes fullName.
func (d *decoder) parent(indent int, name, fullName string) (int, bool) {
	for k := len(d.stack) - 1; k >= 0; k-- {
		if d.stack[k].indent < indent {
			return k, true
		}
	}
	for k := len(d.stack) - 1; k >= 0; k-- {
		i := d.stack[k].index
		if d.file.Instances[i].Name != name {
			continue
		}
		if prefix := d.path(i); prefix == "" || strings.HasPrefix(fullName, prefix+".") {
			return k, true
		}
	}
	return 0, false
}

// path returns the dot-joined local names from the top level down to
// instance i. The root has an empty path.
func (d *decoder) path(i int) string {
	if i <= 0 {
		return ""
	}
	in := &d.file.Instances[i]
	names := make([]string, 0, len(in.Ancestors))
	for _, a := range in.Ancestors[1:] {
		names = append(names, d.file.Instances[a].Name)
	}
	return strings.Join(append(names, in.Name), ".")
}

// localName strips the parent path from fullName. A trailing +N is a rename
// suffix only when the name without it was already written.
func (d *decoder) localName(prefix, fullName string) string {
	name := fullName
	if prefix != "" {
		name = strings.TrimPrefix(fullName, prefix+".")
	}
	plus := strings.LastIndexByte(name, '+')
	if plus <= 0 {
		return name
	}
	if _, err := strconv.Atoi(name[plus+1:]); err != nil {
		return name
	}
	base := name[:plus]
	key := base
	if prefix != "" {
		key = prefix + "." + base
	}
	if _, seen := d.byName[key]; seen {
		return base
	}
	return name
}

func (d *decoder) transform(rest string) error {
	if d.rows == 0 {
		return fmt.Errorf("%w: transform row without instance", ErrMalformed)
	}
	values, _, _ := strings.Cut(rest, "#")
	fields := strings.Fields(values)
	if len(fields) != 4 {
		return fmt.Errorf("%w: transform row needs 4 values, got %d", ErrMalformed, len(fields))
	}

	in := &d.file.Instances[len(d.file.Instances)-1]
	r := 3 - d.rows
	for c, h := range fields {
		v, err := hexcodec.DecodeFloat32(h)
		if err != nil {
			return err
		}
		in.Transform.Set(r, c, float64(v))
	}
	d.rows--
	return nil
}

func (d *decoder) material(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) != 4 {
		return fmt.Errorf("%w: material needs 4 fields, got %d", ErrMalformed, len(fields))
	}
	m := models.Material{Name: unfield(fields[0])}
	for i, dst := range []*color.RGBA{&m.Ambient, &m.Diffuse, &m.Emission} {
		argb, err := hexcodec.DecodeColor(fields[i+1])
		if err != nil {
			return err
		}
		*dst = models.FromARGB(argb)
	}
	d.file.Materials = append(d.file.Materials, m)
	return nil
}

func (d *decoder) partHeader(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) != 5 {
		return fmt.Errorf("%w: part needs 5 fields, got %d", ErrMalformed, len(fields))
	}
	inst, ok := d.byName[unfield(fields[1])]
	if !ok {
		return fmt.Errorf("%w: part %s refers to unknown instance %q", ErrMalformed, fields[0], fields[1])
	}
	vc, err := strconv.Atoi(fields[3])
	if err != nil {
		return fmt.Errorf("%w: vertex count: %v", ErrMalformed, err)
	}
	tc, err := strconv.Atoi(fields[4])
	if err != nil {
		return fmt.Errorf("%w: triangle count: %v", ErrMalformed, err)
	}

	name := unfield(fields[0])
	mesh := models.NewMesh(name)
	mesh.Vertices = make([]models.MeshVertex, 0, vc)
	mesh.Faces = make([]models.Face, 0, tc)

	d.file.Parts = append(d.file.Parts, Part{
		Name:          name,
		Mesh:          mesh,
		Material:      unfield(fields[2]),
		MaterialIndex: -1,
		Instance:      inst,
	})
	d.part = &d.file.Parts[len(d.file.Parts)-1]
	d.verts, d.tris = vc, tc
	d.file.Instances[inst].Parts = append(d.file.Instances[inst].Parts, len(d.file.Parts)-1)
	return nil
}

func (d *decoder) vertex(rest string) error {
	if d.part == nil {
		return fmt.Errorf("%w: vertex outside a part", ErrMalformed)
	}
	fields := strings.Fields(rest)
	if len(fields) != 6 {
		return fmt.Errorf("%w: vertex needs 6 values, got %d", ErrMalformed, len(fields))
	}
	var f [6]float32
	for i, h := range fields {
		v, err := hexcodec.DecodeFloat32(h)
		if err != nil {
			return err
		}
		f[i] = v
	}
	d.part.Mesh.AddVertex(
		math3d.Vec3From32([3]float32{f[0], f[1], f[2]}),
		math3d.Vec3From32([3]float32{f[3], f[4], f[5]}),
	)
	return nil
}

func (d *decoder) triangles(rest string) error {
	if d.part == nil {
		return fmt.Errorf("%w: triangles outside a part", ErrMalformed)
	}
	fields := strings.Fields(rest)
	if len(fields)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a whole number of triangles", ErrMalformed, len(fields))
	}
	for i := 0; i < len(fields); i += 3 {
		var tri [3]int
		for j := range tri {
			v, err := strconv.Atoi(fields[i+j])
			if err != nil {
				return fmt.Errorf("%w: index: %v", ErrMalformed, err)
			}
			tri[j] = v
		}
		d.part.Mesh.Faces = append(d.part.Mesh.Faces, models.Tri(tri[0], tri[1], tri[2]))
	}
	return nil
}

// finishPart checks the open part against its header counts.
func (d *decoder) finishPart() error {
	p := d.part
	if p == nil {
		return nil
	}
	d.part = nil
	if got := p.Mesh.VertexCount(); got != d.verts {
		return fmt.Errorf("%w: part %s has %d vertices, header says %d", ErrMalformed, p.Name, got, d.verts)
	}
	if got := p.Mesh.TriangleCount(); got != d.tris {
		return fmt.Errorf("%w: part %s has %d triangles, header says %d", ErrMalformed, p.Name, got, d.tris)
	}
	p.Mesh.CalculateBounds()
	return nil
}

func unfield(s string) string {
	if s == emptyField {
		return ""
	}
	return s
}
