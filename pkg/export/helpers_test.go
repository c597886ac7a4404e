package export

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taigrr/sceneflat/pkg/config"
	"github.com/taigrr/sceneflat/pkg/log"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/models"
	"github.com/taigrr/sceneflat/pkg/scene"
)

func testConfig() config.Export {
	return config.Default().Export
}

func observedLogger() (*log.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return log.New(core), logs
}

// quad returns a unit square made of one quad face, offset by z.
func quad(name string, z float64) *models.Mesh {
	m := models.NewMesh(name)
	n := math3d.V3(0, 0, 1)
	m.AddVertex(math3d.V3(0, 0, z), n)
	m.AddVertex(math3d.V3(1, 0, z), n)
	m.AddVertex(math3d.V3(1, 1, z), n)
	m.AddVertex(math3d.V3(0, 1, z), n)
	m.Faces = append(m.Faces, models.Quad(0, 1, 2, 3))
	return m
}

func panel(name string) *scene.Object {
	return scene.NewSurface(name, "", &models.Brep{Name: name, Patches: []*models.Mesh{quad(name, 0)}})
}

// spyHost counts deletions and remembers every temporary the host created.
type spyHost struct {
	*scene.Document
	deletes map[scene.ObjectID]int
	created []scene.ObjectID
}

func newSpy(d *scene.Document) *spyHost {
	return &spyHost{Document: d, deletes: make(map[scene.ObjectID]int)}
}

func (s *spyHost) Explode(id scene.ObjectID) ([]scene.ObjectID, error) {
	ids, err := s.Document.Explode(id)
	s.created = append(s.created, ids...)
	return ids, err
}

func (s *spyHost) Copy(ids []scene.ObjectID, offset math3d.Vec3) ([]scene.ObjectID, error) {
	out, err := s.Document.Copy(ids, offset)
	s.created = append(s.created, out...)
	return out, err
}

func (s *spyHost) Delete(id scene.ObjectID) error {
	s.deletes[id]++
	return s.Document.Delete(id)
}

func flatten(t *testing.T, host Host, cfg config.Export) (*Scene, error) {
	t.Helper()
	return NewFlattener(host, models.NewKernel(), cfg, log.Nop()).Flatten(host.Selection())
}
