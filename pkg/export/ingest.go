package export

import (
	"fmt"

	"github.com/taigrr/sceneflat/pkg/config"
	"github.com/taigrr/sceneflat/pkg/log"
	"github.com/taigrr/sceneflat/pkg/math3d"
	"github.com/taigrr/sceneflat/pkg/scene"
)

// Selection is the captured working set of one run.
type Selection struct {
	// Origin is the position of the origin marker, zero without one.
	Origin    math3d.Vec3
	HasOrigin bool
	// Objects are the selected geometry objects; they are never modified.
	Objects []scene.ObjectID
	// Copies are temporaries of Objects translated by -Origin, in the same
	// order. The flattener consumes and deletes them.
	Copies []scene.ObjectID
}

// Ingest captures the host selection, finds the point named cfg.OriginName
// and copies every other non-point object so the origin lands at zero.
// Other points are ignored.
func Ingest(host Host, cfg config.Export, logger *log.Logger) (*Selection, error) {
	selected := host.Selection()
	sel := &Selection{}

	for _, id := range selected {
		if host.Kind(id) != scene.KindPoint {
			sel.Objects = append(sel.Objects, id)
			continue
		}
		name := host.Name(id)
		if name != cfg.OriginName {
			logger.Debugf("ignoring point %q", name)
			continue
		}
		p, err := host.Point(id)
		if err != nil {
			return nil, fmt.Errorf("read origin: %w", err)
		}
		if sel.HasOrigin {
			logger.Warnf("WARNING: more than one %q point, using the last", cfg.OriginName)
		}
		sel.Origin, sel.HasOrigin = p, true
	}

	logger.Infof("Processing %d object(s)", len(sel.Objects))
	logger.Infof("Origin is [%.2f,%.2f,%.2f]", sel.Origin.X, sel.Origin.Y, sel.Origin.Z)

	copies, err := host.Copy(sel.Objects, sel.Origin.Negate())
	if err != nil {
		for _, id := range copies {
			_ = host.Delete(id)
		}
		return nil, fmt.Errorf("copy selection: %w", err)
	}
	sel.Copies = copies
	return sel, nil
}
