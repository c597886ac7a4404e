package export

import (
	"fmt"

	"github.com/taigrr/sceneflat/pkg/log"
	"github.com/taigrr/sceneflat/pkg/scene"
)

// EventKind classifies a soft condition met during a run.
type EventKind int

const (
	EventSkip EventKind = iota
	EventRename
	EventShape
	EventMaterial
	EventMaterialConflict
	EventBudget
	EventCleanup
)

var eventNames = [...]string{
	EventSkip:             "skip",
	EventRename:           "rename",
	EventShape:            "shape",
	EventMaterial:         "material",
	EventMaterialConflict: "material conflict",
	EventBudget:           "mesh budget",
	EventCleanup:          "cleanup",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one reported condition. None of them fail a run.
type Event struct {
	Kind   EventKind
	Object scene.ObjectID
	Name   string
	Detail string
}

func (e Event) String() string {
	name := e.Name
	if name == "" {
		name = e.Object.String()
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, name, e.Detail)
}

// Report collects the events of one run in the order they happened.
type Report struct {
	Events []Event
}

// Count returns the number of events of kind.
func (r *Report) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the events of kind.
func (r *Report) Filter(kind EventKind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// add records e and logs it as a warning.
func (r *Report) add(logger *log.Logger, e Event) {
	r.Events = append(r.Events, e)
	logger.Warnf("WARNING: %s", e)
}
