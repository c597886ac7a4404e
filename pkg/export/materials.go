package export

import (
	"fmt"

	"github.com/taigrr/sceneflat/pkg/models"
)

// MaterialEntry is a registered material: its name and the host table index
// its colors are read from.
type MaterialEntry struct {
	Name  string
	Index int
}

// MaterialTable deduplicates materials by name, keeping registration order.
type MaterialTable struct {
	entries []MaterialEntry
	byName  map[string]int
}

// NewMaterialTable creates an empty table.
func NewMaterialTable() *MaterialTable {
	return &MaterialTable{byName: make(map[string]int)}
}

// Register adds name with index. The first registration of a name wins; it
// returns false when name was already registered with a different index.
func (t *MaterialTable) Register(name string, index int) bool {
	if i, ok := t.byName[name]; ok {
		return t.entries[i].Index == index
	}
	t.byName[name] = len(t.entries)
	t.entries = append(t.entries, MaterialEntry{Name: name, Index: index})
	return true
}

// Lookup returns the entry registered under name.
func (t *MaterialTable) Lookup(name string) (MaterialEntry, bool) {
	i, ok := t.byName[name]
	if !ok {
		return MaterialEntry{}, false
	}
	return t.entries[i], true
}

// Entries returns the registered materials in registration order.
func (t *MaterialTable) Entries() []MaterialEntry {
	return append([]MaterialEntry(nil), t.entries...)
}

// Len returns the number of registered materials.
func (t *MaterialTable) Len() int {
	return len(t.entries)
}

// Resolve reads the colors of the material at index from host.
func (t *MaterialTable) Resolve(host MaterialSource, index int) (models.Material, error) {
	m, err := host.Material(index)
	if err != nil {
		return models.Material{}, fmt.Errorf("resolve material %d: %w", index, err)
	}
	return m, nil
}
