package settings

import (
	"reflect"
	"testing"
)

func nestedSchema() Descriptor {
	return leafSchema(
		Descriptor{
			Type:    "dict",
			Key:     "A",
			IsGroup: true,
			Children: []Descriptor{
				{
					Type: "dict",
					Key:  "inner",
					Children: []Descriptor{
						{Type: "integer", Key: "depth", Default: 1},
					},
				},
				{Type: "text", Key: "name", Default: "a"},
			},
		},
		Descriptor{
			Type: "dict",
			Key:  "B",
			Children: []Descriptor{
				{Type: "boolean", Key: "flag"},
			},
		},
	)
}

func TestGroupAggregatesModificationUpToBoundary(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil)
	mustSet(t, tree, "A.inner.depth", 2)

	inner := mustLookup(t, tree, "A.inner")
	if inner.IsModified() {
		t.Fatalf("non-group containers leave modification to their group")
	}
	if !inner.ChildModified() {
		t.Fatalf("expected inner to aggregate child modification")
	}
	if !mustLookup(t, tree, "A").IsModified() {
		t.Fatalf("expected group A to be modified")
	}
	b := mustLookup(t, tree, "B")
	if !b.IsGroup() {
		t.Fatalf("expected B to be elected group")
	}
	if b.IsModified() || b.ChildModified() {
		t.Fatalf("sibling group must not be affected")
	}
	if got := StateOf(inner); got != StateUserModified {
		t.Fatalf("expected inner state user-modified, got %s", got)
	}
}

func TestGroupApplyOverridesMarksBoundary(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil, WithOverridable(true))
	if err := tree.ApplyOverrides(Document{"A": Document{"inner": Document{"depth": 3}}}); err != nil {
		t.Fatalf("apply overrides: %v", err)
	}

	a := mustLookup(t, tree, "A")
	if !a.IsOverridden() || !a.WasOverridden() {
		t.Fatalf("expected group A overridden by apply")
	}
	if mustLookup(t, tree, "A.inner").IsOverridden() {
		t.Fatalf("non-group container must not carry its own override")
	}
	if !mustLookup(t, tree, "A.inner.depth").IsOverridden() {
		t.Fatalf("expected depth overridden")
	}
	if mustLookup(t, tree, "A.name").IsOverridden() {
		t.Fatalf("expected name not overridden")
	}
	if mustLookup(t, tree, "B").IsOverridden() {
		t.Fatalf("expected B not overridden")
	}

	override, ok := a.Overrides()
	if !ok {
		t.Fatalf("expected overrides for A")
	}
	want := Document{"A": Document{"inner": Document{"depth": 3}}}
	if !reflect.DeepEqual(override.Value, want) {
		t.Fatalf("expected %v, got %v", want, override.Value)
	}
	if _, ok := mustLookup(t, tree, "B").Overrides(); ok {
		t.Fatalf("expected no overrides for B")
	}
}

func TestGroupIgnoresOverridesOutsideOverrideContext(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil)
	if err := tree.ApplyOverrides(Document{"A": Document{"name": "z"}}); err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	if mustLookup(t, tree, "A").IsOverridden() {
		t.Fatalf("group boundaries only carry overrides in an override context")
	}
}

func TestGroupSetValueAssignsChildren(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil, WithOverridable(true))
	mustSet(t, tree, "A", map[string]any{
		"inner": map[string]any{"depth": 5},
		"name":  "z",
	})

	if got := mustLookup(t, tree, "A.inner.depth").ItemValue(); got != 5 {
		t.Fatalf("expected depth 5, got %v", got)
	}
	want := Document{
		"A":       Document{"inner": Document{"depth": 5}, "name": "z"},
		GroupsKey: []string{"A"},
	}
	if got := tree.Overrides(); !sameJSON(t, got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGroupResetValueRestoresOverride(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil, WithOverridable(true))
	if err := tree.ApplyOverrides(Document{"A": Document{"name": "b"}}); err != nil {
		t.Fatalf("apply overrides: %v", err)
	}
	mustSet(t, tree, "A.name", "c")
	mustSet(t, tree, "A.inner.depth", 9)

	a := mustLookup(t, tree, "A")
	a.ResetValue()
	if got := mustLookup(t, tree, "A.name").ItemValue(); got != "b" {
		t.Fatalf("expected override value restored, got %v", got)
	}
	if got := mustLookup(t, tree, "A.inner.depth").ItemValue(); got != 1 {
		t.Fatalf("expected default restored, got %v", got)
	}
	if a.IsModified() {
		t.Fatalf("expected group clean after reset")
	}
}

func TestGroupClearValue(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil)
	mustLookup(t, tree, "A").ClearValue()

	want := Document{"inner": Document{"depth": 0}, "name": ""}
	if got := mustLookup(t, tree, "A").ItemValue(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPresentationContainerStoresAtParentLevel(t *testing.T) {
	schema := leafSchema(Descriptor{
		Type:    "dict",
		Key:     "render",
		IsGroup: true,
		Children: []Descriptor{
			{Type: "dict-form", Children: []Descriptor{
				{Type: "text", Key: "url", Default: "x"},
			}},
		},
	})
	tree := mustBuild(t, schema, Document{"render": Document{"url": "y"}}, WithOverridable(true))
	if got := mustLookup(t, tree, "render.url").ItemValue(); got != "y" {
		t.Fatalf("expected stored url, got %v", got)
	}

	mustSet(t, tree, "render.url", "z")
	want := Document{"render": Document{"url": "z"}, GroupsKey: []string{"render"}}
	if got := tree.Overrides(); !sameJSON(t, got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAddChildBuildsUnderGroupPath(t *testing.T) {
	tree := mustBuild(t, nestedSchema(), nil, WithOverridable(true))
	group := mustLookup(t, tree, "A").(*GroupNode)

	child, err := group.AddChild(Descriptor{Type: "text", Key: "extra", Default: "e"}, nil)
	if err != nil {
		t.Fatalf("add child: %v", err)
	}
	if got := child.Path().String(); got != "A.extra" {
		t.Fatalf("expected path A.extra, got %q", got)
	}
	if child.IsGroup() {
		t.Fatalf("children of a group boundary are never groups")
	}
	values, _ := group.ItemValue().(Document)
	if values["extra"] != "e" {
		t.Fatalf("expected child value in group mapping, got %v", values)
	}

	if err := child.(*ValueNode).SetValue("f"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !group.IsOverridden() {
		t.Fatalf("expected child edit to propagate to the group")
	}

	if _, err := group.AddChild(Descriptor{Type: "dict", Key: "nested", IsGroup: true}, nil); err == nil {
		t.Fatalf("expected nested group declaration to fail")
	}
}
