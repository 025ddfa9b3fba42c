package settings

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func buildCollection(t *testing.T, desc Descriptor, opts ...Option) (*Tree, *CollectionNode) {
	t.Helper()
	tree := mustBuild(t, leafSchema(desc), nil, opts...)
	node, ok := mustLookup(t, tree, desc.Key).(*CollectionNode)
	if !ok {
		t.Fatalf("expected collection node at %q", desc.Key)
	}
	return tree, node
}

func singleRows(rows []*Row) int {
	count := 0
	for _, row := range rows {
		if row.IsSingle() {
			count++
		}
	}
	return count
}

func TestListCollectionSkipsBlankRows(t *testing.T) {
	_, node := buildCollection(t, Descriptor{Type: "list", Key: "tags", Default: []any{"", "foo", ""}})
	if node.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", node.Len())
	}
	if got := node.ItemValue(); !reflect.DeepEqual(got, []string{"foo"}) {
		t.Fatalf("expected [foo], got %#v", got)
	}
	if node.IsModified() {
		t.Fatalf("blank rows must not count as modifications")
	}
}

func TestCollectionNeverEmpty(t *testing.T) {
	_, node := buildCollection(t, Descriptor{Type: "list", Key: "tags"})
	if node.Len() != 1 || !node.Rows()[0].IsSingle() {
		t.Fatalf("expected one single empty row, got %d rows", node.Len())
	}

	added, err := node.AddRow(&Entry{Value: "a"})
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if node.Len() != 2 || singleRows(node.Rows()) != 0 {
		t.Fatalf("expected two rows without single flag")
	}

	if err := node.RemoveRow(node.Rows()[0]); err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if node.Len() != 1 || !added.IsSingle() {
		t.Fatalf("expected remaining row to be single")
	}

	if err := added.Remove(); err != nil {
		t.Fatalf("remove sole row: %v", err)
	}
	if node.Len() != 1 || singleRows(node.Rows()) != 1 {
		t.Fatalf("expected sole row to be cleared, got %d rows", node.Len())
	}
	if got := node.ItemValue().([]string); len(got) != 0 {
		t.Fatalf("expected cleared row, got %v", got)
	}

	removed := node.Rows()[0]
	if _, err := node.AddRow(nil); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := node.RemoveRow(removed); err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if err := node.RemoveRow(removed); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected foreign row to be rejected, got %v", err)
	}
}

func TestInsertRowPosition(t *testing.T) {
	_, node := buildCollection(t, Descriptor{Type: "list", Key: "tags", Default: []any{"b"}})
	if _, err := node.InsertRow(5, nil); !errors.Is(err, ErrRowPosition) {
		t.Fatalf("expected ErrRowPosition, got %v", err)
	}
	if _, err := node.InsertRow(0, &Entry{Value: "a"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := node.AddRow(&Entry{Value: "c"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := node.ItemValue(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected row order preserved, got %v", got)
	}
	if !node.IsModified() {
		t.Fatalf("expected added rows to mark the collection modified")
	}
}

func TestDictCollectionLastWriteWins(t *testing.T) {
	_, node := buildCollection(t, Descriptor{
		Type:       "dict-modifiable",
		Key:        "limits",
		ObjectType: &Descriptor{Type: "integer"},
	})
	for _, entry := range []Entry{{Key: "a", Value: 1}, {Key: "b", Value: 2}, {Key: "a", Value: 3}} {
		entry := entry
		if _, err := node.AddRow(&entry); err != nil {
			t.Fatalf("add row: %v", err)
		}
	}
	want := Document{"a": 3, "b": 2}
	if got := node.ItemValue(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDictCollectionRows(t *testing.T) {
	tree, node := buildCollection(t, Descriptor{
		Type:       "dict-modifiable",
		Key:        "env",
		ObjectType: &Descriptor{Type: "text"},
		Default:    map[string]any{"OCIO": "/config.ocio", "PATH": "/bin"},
	}, WithOverridable(true))

	rows := node.Rows()
	if len(rows) != 2 || rows[0].Key() != "OCIO" || rows[1].Key() != "PATH" {
		t.Fatalf("expected rows sorted by key, got %d rows", len(rows))
	}
	if rows[0].Value().IsGroup() {
		t.Fatalf("row values are governed by the collection")
	}

	rows[1].SetKey("")
	want := Document{"OCIO": "/config.ocio"}
	if got := node.ItemValue(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected rows without key skipped, got %v", got)
	}
	if !rows[1].IsModified() || !node.IsModified() {
		t.Fatalf("expected renamed row to mark the collection modified")
	}
	if !node.IsOverridden() || !rows[0].IsOverridden() || !rows[0].Value().IsOverridden() {
		t.Fatalf("expected row edit to override the collection and its rows")
	}

	wantOverrides := Document{"env": want, GroupsKey: []string{"env"}}
	if got := tree.Overrides(); !sameJSON(t, got, wantOverrides) {
		t.Fatalf("expected %v, got %v", wantOverrides, got)
	}
}

func TestCollectionApplyOverridesPopulatesCleanRows(t *testing.T) {
	_, node := buildCollection(t, Descriptor{
		Type:       "dict-modifiable",
		Key:        "env",
		ObjectType: &Descriptor{Type: "text"},
	}, WithOverridable(true))

	if err := node.ApplyOverrides(map[string]any{"A": "1"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if node.IsModified() {
		t.Fatalf("expected populated rows not to be modified")
	}
	row := node.Rows()[0]
	if row.Key() != "A" || row.IsModified() || !row.IsOverridden() {
		t.Fatalf("unexpected row state key=%q modified=%t overridden=%t", row.Key(), row.IsModified(), row.IsOverridden())
	}

	if err := row.Value().(*ValueNode).SetValue("2"); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if !node.IsModified() {
		t.Fatalf("expected row edit to propagate to the collection")
	}

	node.ResetValue()
	if got := node.ItemValue(); !reflect.DeepEqual(got, Document{"A": "1"}) {
		t.Fatalf("expected override restored, got %v", got)
	}
	if err := node.ApplyOverrides(nil); err != nil {
		t.Fatalf("apply nil: %v", err)
	}
	if node.IsOverridden() || node.IsModified() || node.Len() != 1 {
		t.Fatalf("expected default collection after clearing overrides")
	}
}

func TestDictCollectionRequiresObjectType(t *testing.T) {
	_, err := Build(leafSchema(Descriptor{Type: "dict-modifiable", Key: "env"}), nil)
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestCollectionOfGroupsInheritsOverride(t *testing.T) {
	_, node := buildCollection(t, Descriptor{
		Type: "dict-modifiable",
		Key:  "hosts",
		ObjectType: &Descriptor{Type: "dict", Children: []Descriptor{
			{Type: "text", Key: "executable"},
			{Type: "string-list", Key: "args"},
		}},
	}, WithOverridable(true))

	doc := map[string]any{"maya": map[string]any{"executable": "/bin/maya", "args": []any{"-batch"}}}
	if err := node.ApplyOverrides(doc); err != nil {
		t.Fatalf("apply: %v", err)
	}
	row := node.Rows()[0].Value().(*GroupNode)
	if row.IsGroup() {
		t.Fatalf("row groups are never boundaries")
	}
	for _, child := range row.Children() {
		if !child.IsOverridden() {
			t.Fatalf("expected %s to inherit the collection override", child.Key())
		}
	}
	if !sameJSON(t, node.ItemValue(), doc) {
		t.Fatalf("expected %v, got %v", doc, node.ItemValue())
	}
}

func decodeDocument(t *testing.T, raw string) Document {
	t.Helper()
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return doc
}

func TestCollectionLoadedFromJSONIsClean(t *testing.T) {
	schema := leafSchema(Descriptor{
		Type:       "dict-modifiable",
		Key:        "limits",
		ObjectType: &Descriptor{Type: "integer"},
	})
	tree := mustBuild(t, schema, decodeDocument(t, `{"limits":{"cpu":4}}`), WithOverridable(true))
	node := mustLookup(t, tree, "limits").(*CollectionNode)
	if node.IsModified() || tree.Modified() {
		t.Fatalf("expected loaded collection to be clean, modified=%t tree=%t", node.IsModified(), tree.Modified())
	}
	if got := node.ItemValue(); !reflect.DeepEqual(got, Document{"cpu": 4}) {
		t.Fatalf("expected coerced rows, got %#v", got)
	}

	if err := tree.ApplyOverrides(decodeDocument(t, `{"limits":{"cpu":8}}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if node.IsModified() || StateOf(node) != StateOverridden {
		t.Fatalf("expected overridden clean collection, got modified=%t state=%s", node.IsModified(), StateOf(node))
	}
	if got := node.OverrideValue(); !reflect.DeepEqual(got, Document{"cpu": 8}) {
		t.Fatalf("expected override items, got %#v", got)
	}

	if err := node.Rows()[0].Value().(*ValueNode).SetValue(16); err != nil {
		t.Fatalf("set row: %v", err)
	}
	if StateOf(node) != StateOverriddenAndModified {
		t.Fatalf("expected overridden-modified after row edit, got %s", StateOf(node))
	}
}

func TestFloatRowsLoadedFromJSONAreClean(t *testing.T) {
	schema := leafSchema(Descriptor{
		Type:       "dict-modifiable",
		Key:        "weights",
		ObjectType: &Descriptor{Type: "float", Decimals: intPtr(1)},
	})
	tree := mustBuild(t, schema, decodeDocument(t, `{"weights":{"a":0.25,"b":2}}`))
	if tree.Modified() {
		t.Fatalf("expected rounded rows not to count as edits")
	}
}

func TestDictCollectionRejectsUnknownRowType(t *testing.T) {
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	schema := leafSchema(Descriptor{
		Type:       "dict-modifiable",
		Key:        "env",
		ObjectType: &Descriptor{Type: "nope"},
	})
	_, err := Build(schema, nil, WithRegistry(registry))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Path.String() != "env" {
		t.Fatalf("expected schema error at env, got %#v", err)
	}
}
