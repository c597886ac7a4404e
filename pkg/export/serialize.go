package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/taigrr/sceneflat/pkg/config"
	"github.com/taigrr/sceneflat/pkg/hexcodec"
	"github.com/taigrr/sceneflat/pkg/log"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
)

// Record tags.
const (
	TagInstance  = "i"
	TagTransform = "x"
	TagMaterial  = "m"
	TagPart      = "p"
	TagVertex    = "v"
	TagTriangles = "t"
)

// emptyField stands in for empty names so every record keeps its field count.
const emptyField = "-"

// trianglePrefix starts every triangle record.
const trianglePrefix = TagTriangles + "  "

// Serializer writes a flattened scene in one forward pass.
type Serializer struct {
	w      *bufio.Writer
	cfg    config.Export
	logger *log.Logger
}

// NewSerializer creates a Serializer writing to w.
func NewSerializer(w io.Writer, cfg config.Export, logger *log.Logger) *Serializer {
	return &Serializer{
		w:      bufio.NewWriter(w),
		cfg:    cfg,
		logger: logger,
	}
}

// Serialize writes all instances with their transforms, then the materials,
// then each part with its vertices and triangles. Material colors are read
// from host. Malformed faces are reported to sc.Report and written as
// triangles.
func (s *Serializer) Serialize(host MaterialSource, sc *Scene) error {
	for i := range sc.Instances {
		s.writeInstance(sc, i)
	}

	for _, e := range sc.Materials.Entries() {
		m, err := sc.Materials.Resolve(host, e.Index)
		if err != nil {
			return err
		}
		s.writeMaterial(e.Name, m)
	}

	for _, p := range sc.Parts {
		s.writePart(sc, p)
	}

	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func (s *Serializer) indent(depth int) string {
	return strings.Repeat(" ", depth*s.cfg.IndentWidth)
}

func (s *Serializer) writeInstance(sc *Scene, i int) {
	in := &sc.Instances[i]
	indent := s.indent(in.Depth())
	fmt.Fprintf(s.w, "%s %s%s %s %s\n", TagInstance, indent, field(in.Type), field(in.FullName), field(sc.ParentName(i)))

	xform := in.Transform
	if i == 0 {
		xform = math3d.Identity()
	}
	for _, row := range xform.AffineRows() {
		var vals [4]float32
		hexes := make([]string, 4)
		for j, v := range row {
			vals[j] = float32(v)
			hexes[j] = hexcodec.EncodeFloat32(vals[j])
		}
		line := TagTransform + " " + indent + strings.Join(hexes, " ")
		if s.cfg.DecimalComments {
			line += " " + hexcodec.Comment(vals[:]...)
		}
		s.w.WriteString(line)
		s.w.WriteByte('\n')
	}
}

func (s *Serializer) writeMaterial(name string, m models.Material) {
	fmt.Fprintf(s.w, "%s %s %s %s %s\n", TagMaterial, field(name),
		hexcodec.EncodeColor(int64(models.ARGB(m.Ambient))),
		hexcodec.EncodeColor(int64(models.ARGB(m.Diffuse))),
		hexcodec.EncodeColor(int64(models.ARGB(m.Emission))))
}

func (s *Serializer) writePart(sc *Scene, p Part) {
	mesh := p.Mesh
	fmt.Fprintf(s.w, "%s %s %s %s %d %d\n", TagPart, field(p.Name), field(sc.Instances[p.Instance].FullName),
		field(p.Material), mesh.VertexCount(), mesh.TriangleCount())

	for _, v := range mesh.Vertices {
		pos, n := v.Position.Float32(), v.Normal.Float32()
		fmt.Fprintf(s.w, "%s %s %s %s %s %s %s\n", TagVertex,
			hexcodec.EncodeFloat32(pos[0]), hexcodec.EncodeFloat32(pos[1]), hexcodec.EncodeFloat32(pos[2]),
			hexcodec.EncodeFloat32(n[0]), hexcodec.EncodeFloat32(n[1]), hexcodec.EncodeFloat32(n[2]))
	}

	var line strings.Builder
	for fi, f := range mesh.Faces {
		if !f.IsTriangle() {
			sc.Report.add(s.logger, Event{Kind: EventShape, Name: p.Name,
				Detail: fmt.Sprintf("face %d has %d indices, writing a triangle", fi, len(f.V))})
		}
		tri := triangle(f)
		triple := strconv.Itoa(tri[0]) + " " + strconv.Itoa(tri[1]) + " " + strconv.Itoa(tri[2])

		switch {
		case line.Len() == 0:
			line.WriteString(trianglePrefix)
			line.WriteString(triple)
		case line.Len()+1+len(triple) <= s.cfg.MaxLineWidth:
			line.WriteByte(' ')
			line.WriteString(triple)
		default:
			s.w.WriteString(line.String())
			s.w.WriteByte('\n')
			line.Reset()
			line.WriteString(trianglePrefix)
			line.WriteString(triple)
		}
	}
	if line.Len() > 0 {
		s.w.WriteString(line.String())
		s.w.WriteByte('\n')
	}
}

// triangle returns the first three indices of f, repeating the last index
// of shorter faces.
func triangle(f models.Face) [3]int {
	var t [3]int
	for i := range t {
		switch {
		case i < len(f.V):
			t[i] = f.V[i]
		case len(f.V) > 0:
			t[i] = f.V[len(f.V)-1]
		}
	}
	return t
}

func field(s string) string {
	if s == "" {
		return emptyField
	}
	return s
}
