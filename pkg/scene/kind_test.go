package scene

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindPolysurface, "polysurface"},
		{KindTextDot, "text dot object"},
		{KindClippingPlane, "clipping plane"},
		{Kind(3), "kind(3)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint32(tt.kind), got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("  Point Cloud ")
	if err != nil {
		t.Fatalf("ParseKind failed: %v", err)
	}
	if k != KindPointCloud {
		t.Errorf("ParseKind = %v, want point cloud", k)
	}

	if _, err := ParseKind("blob"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestParseKindsSet(t *testing.T) {
	set, err := ParseKinds([]string{"mesh", "polysurface"})
	if err != nil {
		t.Fatalf("ParseKinds failed: %v", err)
	}
	if !set.Has(KindMesh) || !set.Has(KindPolysurface) {
		t.Errorf("set %d should contain mesh and polysurface", set)
	}
	if set.Has(KindSurface) {
		t.Error("set should not contain surface")
	}
	if set.Has(KindUnknown) {
		t.Error("no set contains the unknown kind")
	}
}
