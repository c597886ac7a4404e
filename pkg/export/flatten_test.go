package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
	"github.com/taigrr/sceneflat/pkg/scene"
)

// nested builds A > B > C with a "Bolt" panel inside C.
func nested() *scene.Document {
	c := scene.NewBlock("CBlock").Add(panel("Bolt"))
	b := scene.NewBlock("BBlock").Add(scene.NewInstance("C", "", c, math3d.Translate(math3d.V3(0, 0, 3))))
	a := scene.NewBlock("ABlock").Add(scene.NewInstance("B", "", b, math3d.Translate(math3d.V3(0, 2, 0))))

	d := scene.NewDocument()
	d.Select(d.Add(scene.NewInstance("A", "", a, math3d.Translate(math3d.V3(1, 0, 0))))...)
	return d
}

func TestFlattenNestedNames(t *testing.T) {
	sc, err := flatten(t, nested(), testConfig())
	require.NoError(t, err)

	require.Len(t, sc.Instances, 4)
	names := make([]string, len(sc.Instances))
	for i, in := range sc.Instances {
		names[i] = in.FullName
	}
	assert.Equal(t, []string{"", "A", "A.B", "A.B.C"}, names)

	c := sc.Instances[3]
	assert.Equal(t, "C", c.Name)
	assert.Equal(t, "CBlock", c.Type)
	assert.Equal(t, []int{0, 1, 2}, c.Ancestors)
	assert.Equal(t, 2, c.Parent)
	assert.Equal(t, "B", sc.ParentName(3))
	assert.Equal(t, "", sc.ParentName(1))

	require.Len(t, sc.Parts, 1)
	assert.Equal(t, "Bolt", sc.Parts[0].Name)
	assert.Equal(t, 3, sc.Parts[0].Instance)
	assert.Equal(t, []int{0}, c.Parts)
	assert.Equal(t, 2, sc.Parts[0].Mesh.TriangleCount(), "quad should be split")

	for i, in := range sc.Instances {
		assert.True(t, in.Touched, "instance %d should be touched", i)
	}
	assert.Empty(t, sc.Report.Events)
}

func TestFlattenSiblingRename(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		want    []string
		renames int
	}{
		{"single", 1, []string{"X"}, 0},
		{"pair", 2, []string{"X", "X+1"}, 1},
		{"triple", 3, []string{"X", "X+1", "X+2"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := scene.NewBlock("Leaf").Add(panel("Skin"))
			d := scene.NewDocument()
			for range tt.count {
				d.Select(d.Add(scene.NewInstance("X", "", leaf, math3d.Identity()))...)
			}

			sc, err := flatten(t, d, testConfig())
			require.NoError(t, err)

			var got []string
			for _, in := range sc.Instances[1:] {
				got = append(got, in.FullName)
				assert.Equal(t, "X", in.Name, "local name is kept")
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.renames, sc.Report.Count(EventRename))
		})
	}
}

func TestFlattenRenameProbesPastTakenSuffix(t *testing.T) {
	leaf := scene.NewBlock("Leaf").Add(panel("Skin"))
	d := scene.NewDocument()
	d.Select(d.Add(
		scene.NewInstance("X+1", "", leaf, math3d.Identity()),
		scene.NewInstance("X", "", leaf, math3d.Identity()),
		scene.NewInstance("X", "", leaf, math3d.Identity()),
	)...)

	sc, err := flatten(t, d, testConfig())
	require.NoError(t, err)

	assert.Equal(t, "X+1", sc.Instances[1].FullName)
	assert.Equal(t, "X", sc.Instances[2].FullName)
	assert.Equal(t, "X+2", sc.Instances[3].FullName)
}

func TestFlattenSkipPolicy(t *testing.T) {
	tests := []struct {
		name   string
		layer  scene.Layer
		object func(layer string) *scene.Object
		reason string
	}{
		{
			name:   "locked layer",
			layer:  scene.Layer{Name: "L", Locked: true, MaterialIndex: -1},
			object: func(l string) *scene.Object { o := panel("Door"); o.Layer = l; return o },
			reason: "layer locked",
		},
		{
			name:   "hidden layer",
			layer:  scene.Layer{Name: "L", Hidden: true, MaterialIndex: -1},
			object: func(l string) *scene.Object { o := panel("Door"); o.Layer = l; return o },
			reason: "layer hidden",
		},
		{
			name:   "locked wins over everything",
			layer:  scene.Layer{Name: "L", Locked: true, Hidden: true, MaterialIndex: -1},
			object: func(l string) *scene.Object { return scene.NewObject("", l, scene.KindCurve) },
			reason: "layer locked",
		},
		{
			name:   "unsupported kind",
			layer:  scene.Layer{Name: "L", MaterialIndex: -1},
			object: func(l string) *scene.Object { return scene.NewObject("Rail", l, scene.KindCurve) },
			reason: "bad type - curve",
		},
		{
			name:   "kind before name",
			layer:  scene.Layer{Name: "L", MaterialIndex: -1},
			object: func(l string) *scene.Object { return scene.NewObject("", l, scene.KindTextDot) },
			reason: "bad type - text dot object",
		},
		{
			name:   "no name",
			layer:  scene.Layer{Name: "L", MaterialIndex: -1},
			object: func(l string) *scene.Object { o := panel(""); o.Layer = l; return o },
			reason: "no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := scene.NewDocument()
			d.AddLayer(tt.layer)
			ids := d.Add(tt.object(tt.layer.Name))
			d.Select(ids...)
			spy := newSpy(d)

			sc, err := flatten(t, spy, testConfig())
			require.NoError(t, err)

			assert.Empty(t, sc.Parts)
			skips := sc.Report.Filter(EventSkip)
			require.Len(t, skips, 1)
			assert.Equal(t, tt.reason, skips[0].Detail)
			assert.Equal(t, 1, spy.deletes[ids[0]])
			assert.Empty(t, d.Objects(), "skipped object should be deleted")
		})
	}
}

func TestFlattenDeletesEveryObjectOnce(t *testing.T) {
	d := nested()
	d.AddLayer(scene.Layer{Name: "Frozen", Locked: true, MaterialIndex: -1})
	locked := panel("Ice")
	locked.Layer = "Frozen"
	d.Select(d.Add(locked, panel("Loose"))...)

	roots := d.Selection()
	spy := newSpy(d)
	sc, err := flatten(t, spy, testConfig())
	require.NoError(t, err)
	assert.Len(t, sc.Parts, 2)

	for _, id := range append(roots, spy.created...) {
		assert.Equal(t, 1, spy.deletes[id], "object %s", id)
	}
	assert.Len(t, spy.deletes, len(roots)+len(spy.created))
	assert.Zero(t, d.Temporaries())
	assert.Empty(t, d.Objects())
}

func TestFlattenOrderIsPreOrder(t *testing.T) {
	inner := scene.NewBlock("Inner").Add(panel("P2"))
	outer := scene.NewBlock("Outer").Add(
		panel("P1"),
		scene.NewInstance("In", "", inner, math3d.Identity()),
		panel("P3"),
	)
	d := scene.NewDocument()
	d.Select(d.Add(scene.NewInstance("Out", "", outer, math3d.Identity()), panel("P4"))...)

	sc, err := flatten(t, d, testConfig())
	require.NoError(t, err)

	var parts []string
	for _, p := range sc.Parts {
		parts = append(parts, p.Name)
	}
	assert.Equal(t, []string{"P1", "P2", "P3", "P4"}, parts)
	assert.Equal(t, 0, sc.Parts[3].Instance, "top-level leaf belongs to the root")
	assert.Equal(t, []int{3}, sc.Root().Parts)
}

func TestFlattenEmptySelection(t *testing.T) {
	sc, err := flatten(t, scene.NewDocument(), testConfig())
	require.NoError(t, err)

	require.Len(t, sc.Instances, 1)
	assert.Empty(t, sc.Parts)
	assert.Zero(t, sc.Materials.Len())
	assert.False(t, sc.Root().Touched)
	assert.Equal(t, -1, sc.Root().Parent)
}

func TestFlattenTouchedOnlyOnPartBranches(t *testing.T) {
	empty := scene.NewBlock("Empty").Add(scene.NewObject("Rail", "", scene.KindCurve))
	full := scene.NewBlock("Full").Add(panel("Skin"))
	d := scene.NewDocument()
	d.Select(d.Add(
		scene.NewInstance("E", "", empty, math3d.Identity()),
		scene.NewInstance("F", "", full, math3d.Identity()),
	)...)

	sc, err := flatten(t, d, testConfig())
	require.NoError(t, err)

	assert.False(t, sc.Instances[1].Touched)
	assert.True(t, sc.Instances[2].Touched)
	assert.True(t, sc.Root().Touched)
}

func TestFlattenCyclicBlock(t *testing.T) {
	loop := scene.NewBlock("Loop")
	loop.Add(panel("Ring"), scene.NewInstance("Again", "", loop, math3d.Identity()), panel("After"))

	d := scene.NewDocument()
	d.Select(d.Add(scene.NewInstance("Start", "", loop, math3d.Identity()), panel("Later"))...)
	spy := newSpy(d)

	_, err := flatten(t, spy, testConfig())
	require.ErrorIs(t, err, ErrCyclicBlock)

	assert.Zero(t, d.Temporaries())
	assert.Empty(t, d.Objects(), "unprocessed objects are cleaned up too")
	for id, n := range spy.deletes {
		assert.Equal(t, 1, n, "object %s", id)
	}
}

func TestFlattenTooDeep(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDepth = 2

	_, err := flatten(t, nested(), cfg)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestFlattenUnnamedInstanceUsesBlockName(t *testing.T) {
	leaf := scene.NewBlock("Hinge").Add(panel("Pin"))
	d := scene.NewDocument()
	d.Select(d.Add(scene.NewInstance("", "", leaf, math3d.Identity()))...)

	sc, err := flatten(t, d, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "Hinge", sc.Instances[1].FullName)
}

func TestFlattenSanitizesNames(t *testing.T) {
	leaf := scene.NewBlock("Front Wheel").Add(panel("Rim  Left"))
	d := scene.NewDocument()
	d.Select(d.Add(scene.NewInstance("Wheel 1", "", leaf, math3d.Identity()))...)

	sc, err := flatten(t, d, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "Wheel_1", sc.Instances[1].FullName)
	assert.Equal(t, "Rim_Left", sc.Parts[0].Name)
}

func TestFlattenMaterials(t *testing.T) {
	d := scene.NewDocument()
	paint := d.AddMaterial(models.Material{Name: "Paint", Diffuse: models.FromARGB(0xff336699)})
	other := d.AddMaterial(models.Material{Name: "Paint", Diffuse: models.FromARGB(0xff000000)})
	d.AddLayer(scene.Layer{Name: "Body", MaterialIndex: paint})

	onLayer := panel("Hood")
	onLayer.Layer = "Body"
	sameLayer := panel("Roof")
	sameLayer.Layer = "Body"
	d.Select(d.Add(onLayer, sameLayer, panel("Trim").WithMaterial(other), panel("Bare"), panel("Lost").WithMaterial(9))...)

	logger, logs := observedLogger()
	sc, err := NewFlattener(d, models.NewKernel(), testConfig(), logger).Flatten(d.Selection())
	require.NoError(t, err)

	entries := sc.Materials.Entries()
	assert.Equal(t, []MaterialEntry{{Name: "Paint", Index: paint}, {Name: "Default", Index: -1}}, entries)

	assert.Equal(t, "Paint", sc.Parts[0].Material)
	assert.Equal(t, "Paint", sc.Parts[2].Material)
	assert.Equal(t, other, sc.Parts[2].MaterialIndex)
	assert.Equal(t, "Default", sc.Parts[3].Material)
	assert.Equal(t, -1, sc.Parts[4].MaterialIndex)

	assert.Equal(t, 1, sc.Report.Count(EventMaterialConflict))
	assert.Equal(t, 1, sc.Report.Count(EventMaterial))
	assert.Equal(t, 1, logs.FilterMessageSnippet("material conflict").Len())
}

func TestFlattenMeshBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MeshBudget = 1

	d := scene.NewDocument()
	brep := &models.Brep{Name: "Big", Patches: []*models.Mesh{quad("a", 0), quad("b", 1)}}
	d.Select(d.Add(scene.NewSurface("Big", "", brep))...)
	sc, err := flatten(t, d, cfg)
	require.NoError(t, err)

	assert.Len(t, sc.Parts, 1, "budget overruns are reported, not skipped")
	assert.Equal(t, 1, sc.Report.Count(EventBudget))
}

func TestFlattenEmptyBrepIsSkipped(t *testing.T) {
	d := scene.NewDocument()
	d.Select(d.Add(scene.NewSurface("Ghost", "", &models.Brep{Name: "Ghost"}))...)

	sc, err := flatten(t, d, testConfig())
	require.NoError(t, err)

	assert.Empty(t, sc.Parts)
	assert.Equal(t, 1, sc.Report.Count(EventSkip))
	assert.Empty(t, d.Objects())
}

// stuckHost cannot move objects between layers.
type stuckHost struct {
	*scene.Document
}

func (stuckHost) MoveToCurrentLayer(scene.ObjectID) error {
	return errors.New("layer table is read-only")
}

func TestFlattenReportsFailedRelease(t *testing.T) {
	d := scene.NewDocument()
	d.AddLayer(scene.Layer{Name: "Frozen", Locked: true, MaterialIndex: -1})
	crate := scene.NewInstance("Crate", "Frozen", scene.NewBlock("CrateBlock").Add(panel("Lid")), math3d.Identity())
	d.Select(d.Add(crate)...)

	logger, logs := observedLogger()
	sc, err := NewFlattener(stuckHost{d}, models.NewKernel(), testConfig(), logger).Flatten(d.Selection())
	require.NoError(t, err)

	assert.Len(t, sc.Parts, 1)
	assert.Equal(t, 1, logs.FilterMessageSnippet("to current layer").Len())
	cleanups := sc.Report.Filter(EventCleanup)
	require.Len(t, cleanups, 1)
	assert.Equal(t, "Crate", cleanups[0].Name)
}
