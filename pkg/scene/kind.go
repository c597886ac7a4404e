// Package scene provides the host document the exporter reads from: an
// in-memory set of named objects on layers, block (instance) definitions and
// a material table, importable from glTF.
package scene

import (
	"fmt"
	"strings"
)

// Kind is the geometry type of a document object. Values are bit flags so a
// set of kinds can be used as a filter.
type Kind uint32

const (
	KindUnknown       Kind = 0
	KindPoint         Kind = 1
	KindPointCloud    Kind = 2
	KindCurve         Kind = 4
	KindSurface       Kind = 8
	KindPolysurface   Kind = 16
	KindMesh          Kind = 32
	KindLight         Kind = 256
	KindAnnotation    Kind = 512
	KindInstance      Kind = 4096
	KindTextDot       Kind = 8192
	KindGrip          Kind = 16384
	KindDetail        Kind = 32768
	KindHatch         Kind = 65536
	KindMorphControl  Kind = 131072
	KindCage          Kind = 134217728
	KindPhantom       Kind = 268435456
	KindClippingPlane Kind = 536870912
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindPoint:         "point",
	KindPointCloud:    "point cloud",
	KindCurve:         "curve",
	KindSurface:       "surface",
	KindPolysurface:   "polysurface",
	KindMesh:          "mesh",
	KindLight:         "light",
	KindAnnotation:    "annotation",
	KindInstance:      "instance",
	KindTextDot:       "text dot object",
	KindGrip:          "grip object",
	KindDetail:        "detail",
	KindHatch:         "hatch",
	KindMorphControl:  "morph control",
	KindCage:          "cage",
	KindPhantom:       "phantom",
	KindClippingPlane: "clipping plane",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// ParseKind returns the kind with the given name. Matching ignores case.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown object kind %q", name)
}

// ParseKinds folds names into a kind set.
func ParseKinds(names []string) (Kind, error) {
	var set Kind
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return 0, err
		}
		set |= k
	}
	return set, nil
}

// Has reports whether the set k contains kind.
func (k Kind) Has(kind Kind) bool {
	return kind != KindUnknown && k&kind == kind
}
