package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to resolve caller for fixture %q", name)
	}
	path := filepath.Join(filepath.Dir(file), "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", path, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", path, err)
	}
	return out
}

func studioSchema(t *testing.T) Descriptor {
	t.Helper()
	return loadFixture[Descriptor](t, "studio_schema.json")
}

func mustBuild(t *testing.T, schema Descriptor, values Document, opts ...Option) *Tree {
	t.Helper()
	tree, err := Build(schema, values, opts...)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return tree
}

func mustLookup(t *testing.T, tree *Tree, path string) Node {
	t.Helper()
	node, ok := tree.Lookup(ParsePath(path))
	if !ok {
		t.Fatalf("expected node at %q", path)
	}
	return node
}

func mustSet(t *testing.T, tree *Tree, path string, value any) {
	t.Helper()
	if err := tree.Set(ParsePath(path), value); err != nil {
		t.Fatalf("set %s: %v", path, err)
	}
}

// sameJSON compares documents by their JSON encoding so numeric and slice
// element types do not matter.
func sameJSON(t *testing.T, got, want any) bool {
	t.Helper()
	a, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal got: %v", err)
	}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal want: %v", err)
	}
	return string(a) == string(b)
}

func leafSchema(children ...Descriptor) Descriptor {
	return Descriptor{Children: children}
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
