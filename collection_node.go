package settings

import (
	"fmt"
	"reflect"
	"sort"
)

type collectionMode int

const (
	// listRows holds bare text rows.
	listRows collectionMode = iota
	// dictRows holds key plus value rows.
	dictRows
)

// Entry is the initial content of a collection row. Key is ignored by list
// collections.
type Entry struct {
	Key   string
	Value any
}

// CollectionNode is an ordered, dynamically sized collection of homogeneous
// rows. It never holds zero rows: removing the sole row clears it.
type CollectionNode struct {
	nodeBase
	mode          collectionMode
	rowCtx        BuildContext
	rowDesc       Descriptor
	rows          []*Row
	defaultValue  any
	overrideValue any
	// defaultItems and overrideItems hold ItemValue right after the rows
	// were populated from the matching baseline.
	defaultItems  any
	overrideItems any
	hasOverride   bool
	modified      bool
}

var _ Container = (*CollectionNode)(nil)

// Row is one entry of a CollectionNode.
type Row struct {
	owner   *CollectionNode
	key     string
	origKey string
	value   Node
	single  bool
}

func newCollectionNode(ctx BuildContext, desc Descriptor, mode collectionMode) (*CollectionNode, error) {
	if desc.Key == "" && !ctx.Row {
		return nil, &SchemaError{Path: ctx.Parent, Type: desc.Type, Err: fmt.Errorf("%w: key is required", ErrInvalidSchema)}
	}
	isGroup, err := resolveGroup(ctx, desc)
	if err != nil {
		return nil, err
	}
	node := &CollectionNode{
		nodeBase: newNodeBase(ctx, desc, isGroup),
		mode:     mode,
	}

	rowDesc := Descriptor{Type: "text"}
	if mode == dictRows {
		if desc.ObjectType == nil || desc.ObjectType.Type == "" {
			return nil, &SchemaError{Path: node.path, Type: desc.Type, Err: fmt.Errorf("%w: object_type is required", ErrInvalidSchema)}
		}
		rowDesc = *desc.ObjectType
		rowDesc.Key = ""
	}
	if _, err := ctx.Registry.Lookup(rowDesc.Type); err != nil {
		return nil, &SchemaError{Path: node.path, Type: rowDesc.Type, Err: err}
	}
	node.rowDesc = rowDesc
	node.rowCtx = ctx
	node.rowCtx.Parent = node.path
	node.rowCtx.Governed = true
	node.rowCtx.Row = true

	initial, err := node.initialValue(ctx, desc)
	if err != nil {
		return nil, err
	}
	node.defaultValue = initial
	if err := node.rebuild(initial); err != nil {
		return nil, err
	}
	node.defaultItems = node.ItemValue()
	node.refresh()
	return node, nil
}

func (n *CollectionNode) initialValue(ctx BuildContext, desc Descriptor) (any, error) {
	if !ctx.Row {
		stored, ok, err := LookupValue(ctx.Values, n.path)
		if err != nil {
			return nil, err
		}
		if ok {
			value, err := n.decode(stored)
			if err != nil {
				return nil, &NodeError{Op: "load", Path: n.path, Err: err}
			}
			return value, nil
		}
	}
	if desc.Default != nil {
		value, err := n.decode(desc.Default)
		if err != nil {
			return nil, &SchemaError{Path: n.path, Type: desc.Type, Err: err}
		}
		return value, nil
	}
	return n.empty(), nil
}

func (n *CollectionNode) empty() any {
	if n.mode == dictRows {
		return Document{}
	}
	return []string{}
}

func (n *CollectionNode) decode(value any) (any, error) {
	if n.mode == listRows {
		return toStringList(value)
	}
	switch typed := value.(type) {
	case nil:
		return Document{}, nil
	case map[string]any:
		out := make(Document, len(typed))
		for key, item := range typed {
			out[key] = item
		}
		return out, nil
	default:
		return nil, mismatch("mapping", value)
	}
}

func (n *CollectionNode) Kind() Kind { return KindCollection }

// Rows returns the rows in display order.
func (n *CollectionNode) Rows() []*Row {
	return append([]*Row(nil), n.rows...)
}

// Len returns the number of rows.
func (n *CollectionNode) Len() int { return len(n.rows) }

// Children returns the row value nodes in row order.
func (n *CollectionNode) Children() []Node {
	out := make([]Node, 0, len(n.rows))
	for _, row := range n.rows {
		out = append(out, row.value)
	}
	return out
}

// ItemValue returns the non-empty row texts for list collections and the
// mapping assembled in row order for dict collections. Rows with an empty key
// are skipped and later duplicate keys win.
func (n *CollectionNode) ItemValue() any {
	if n.mode == listRows {
		out := []string{}
		for _, row := range n.rows {
			text, _ := row.value.ItemValue().(string)
			if text == "" {
				continue
			}
			out = append(out, text)
		}
		return out
	}
	out := Document{}
	for _, row := range n.rows {
		if row.key == "" {
			continue
		}
		out[row.key] = row.value.ItemValue()
	}
	return out
}

func (n *CollectionNode) DefaultValue() any {
	value, _ := n.decode(n.defaultItems)
	return value
}

func (n *CollectionNode) OverrideValue() any {
	if !n.hasOverride {
		return nil
	}
	value, _ := n.decode(n.overrideItems)
	return value
}

func (n *CollectionNode) IsModified() bool { return n.modified }

func (n *CollectionNode) ChildModified() bool { return n.modified }

func (n *CollectionNode) ChildOverridden() bool { return n.IsOverridden() }

func (n *CollectionNode) IsInvalid() bool {
	for _, row := range n.rows {
		if row.value.IsInvalid() {
			return true
		}
	}
	return false
}

// SetValue replaces all rows as a user edit.
func (n *CollectionNode) SetValue(value any) error {
	decoded, err := n.decode(value)
	if err != nil {
		return &NodeError{Op: "set", Path: n.path, Err: err}
	}
	if err := n.rebuild(decoded); err != nil {
		return err
	}
	n.changed()
	return nil
}

// AddRow appends a row. A nil entry adds an empty row.
func (n *CollectionNode) AddRow(initial *Entry) (*Row, error) {
	return n.InsertRow(len(n.rows), initial)
}

// InsertRow inserts a row at position, shifting later rows down.
func (n *CollectionNode) InsertRow(position int, initial *Entry) (*Row, error) {
	if position < 0 || position > len(n.rows) {
		return nil, &NodeError{Op: "insert row", Path: n.path, Err: fmt.Errorf("%w: %d not in [0,%d]", ErrRowPosition, position, len(n.rows))}
	}
	row, err := n.newRow(initial)
	if err != nil {
		return nil, err
	}
	n.rows = append(n.rows, nil)
	copy(n.rows[position+1:], n.rows[position:])
	n.rows[position] = row
	if err := n.updateSingle(); err != nil {
		return nil, err
	}
	n.changed()
	return row, nil
}

// RemoveRow removes row. The sole remaining row is cleared instead.
func (n *CollectionNode) RemoveRow(row *Row) error {
	index := n.indexOf(row)
	if index < 0 {
		return &NodeError{Op: "remove row", Path: n.path, Err: fmt.Errorf("%w: row does not belong to collection", ErrPathNotFound)}
	}
	if len(n.rows) == 1 {
		row.clear()
		return nil
	}
	n.rows = append(n.rows[:index], n.rows[index+1:]...)
	row.owner = nil
	if err := n.updateSingle(); err != nil {
		return err
	}
	n.changed()
	return nil
}

func (n *CollectionNode) indexOf(row *Row) int {
	for i, candidate := range n.rows {
		if candidate == row {
			return i
		}
	}
	return -1
}

func (n *CollectionNode) ResetValue() {
	baseline := n.defaultValue
	if n.session.Overridable() && n.hasOverride {
		baseline = n.overrideValue
	}
	if err := n.rebuild(baseline); err != nil {
		n.dropped("reset", err)
		return
	}
	n.overridden = n.wasOverridden
	n.refresh()
	n.notify(n)
}

func (n *CollectionNode) ClearValue() {
	if err := n.rebuild(n.empty()); err != nil {
		n.dropped("clear", err)
		return
	}
	n.changed()
}

func (n *CollectionNode) populate(value any) error {
	decoded, err := n.decode(value)
	if err != nil {
		return &NodeError{Op: "set default", Path: n.path, Err: err}
	}
	n.defaultValue = decoded
	if err := n.rebuild(decoded); err != nil {
		return err
	}
	n.defaultItems = n.ItemValue()
	n.refresh()
	n.notify(n)
	return nil
}

func (n *CollectionNode) ApplyOverrides(value any) error {
	if value == nil {
		n.overridden = false
		n.wasOverridden = false
		n.overrideValue = nil
		n.overrideItems = nil
		n.hasOverride = false
		if err := n.rebuild(n.defaultValue); err != nil {
			return err
		}
	} else {
		decoded, err := n.decode(value)
		if err != nil {
			return &NodeError{Op: "apply overrides", Path: n.path, Err: err}
		}
		if err := n.rebuild(decoded); err != nil {
			return err
		}
		n.overridden = true
		n.wasOverridden = true
		n.overrideValue = decoded
		n.overrideItems = n.ItemValue()
		n.hasOverride = true
	}
	n.refresh()
	n.notify(n)
	return nil
}

func (n *CollectionNode) Overrides() (Override, bool) {
	if !n.IsOverridden() {
		return Override{}, false
	}
	return Override{Value: Document{n.key: n.ItemValue()}, IsGroup: n.isGroup}, true
}

func (n *CollectionNode) SetOverridden() {
	if !n.session.Overridable() {
		return
	}
	n.overridden = true
	n.refresh()
	n.notify(n)
}

func (n *CollectionNode) RemoveOverride() {
	if !n.session.Overridable() {
		return
	}
	if err := n.rebuild(n.defaultValue); err != nil {
		n.dropped("remove override", err)
		return
	}
	n.overridden = false
	n.refresh()
	n.notify(n)
}

// rebuild replaces every row with rows populated from value. Populated rows
// take their content as baseline so they do not report modifications.
func (n *CollectionNode) rebuild(value any) error {
	rows := []*Row{}
	switch typed := value.(type) {
	case []string:
		for _, text := range typed {
			row, err := n.newRow(&Entry{Value: text})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
	case Document:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			row, err := n.newRow(&Entry{Key: key, Value: typed[key]})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
	}
	for _, row := range n.rows {
		row.owner = nil
	}
	n.rows = rows
	return n.updateSingle()
}

func (n *CollectionNode) newRow(initial *Entry) (*Row, error) {
	factory, err := n.rowCtx.Registry.Lookup(n.rowDesc.Type)
	if err != nil {
		return nil, &SchemaError{Path: n.path, Type: n.rowDesc.Type, Err: err}
	}
	value, err := factory(n.rowCtx, n.rowDesc)
	if err != nil {
		return nil, err
	}
	row := &Row{owner: n, value: value}
	if initial != nil {
		if n.mode == dictRows {
			row.key = initial.Key
			row.origKey = initial.Key
		}
		if initial.Value != nil {
			filler, ok := value.(populator)
			if !ok {
				return nil, &NodeError{Op: "add row", Path: n.path, Err: fmt.Errorf("%w: row type %q cannot be populated", ErrNotEditable, n.rowDesc.Type)}
			}
			if err := filler.populate(initial.Value); err != nil {
				return nil, err
			}
		}
	}
	inheritFrom(value, n.IsOverridden)
	value.Subscribe(func(Node) {
		if row.owner == n {
			n.changed()
		}
	})
	return row, nil
}

// inheritFrom links the override flag of a row value, and of every node
// nested in it, to the owning collection.
func inheritFrom(node Node, owner func() bool) {
	switch typed := node.(type) {
	case *ValueNode:
		typed.inherited = owner
	case *CollectionNode:
		typed.inherited = owner
	case *GroupNode:
		typed.inherited = owner
		for _, child := range typed.children {
			inheritFrom(child, owner)
		}
	}
}

func (n *CollectionNode) updateSingle() error {
	if len(n.rows) == 0 {
		row, err := n.newRow(nil)
		if err != nil {
			return err
		}
		n.rows = append(n.rows, row)
	}
	for _, row := range n.rows {
		row.single = len(n.rows) == 1
	}
	return nil
}

// dropped logs a rebuild failure of an operation that has no error return.
// The rows are left as they were.
func (n *CollectionNode) dropped(op string, err error) {
	n.rowCtx.Logger().Warn("settings collection rebuild failed", "op", op, "path", n.path.String(), "error", err)
}

func (n *CollectionNode) changed() {
	n.markEdited()
	n.refresh()
	n.notify(n)
}

// refresh compares the rows against the items captured when the active
// baseline was populated, so row codecs never make a clean load look edited.
func (n *CollectionNode) refresh() {
	baseline := n.defaultItems
	if n.hasOverride {
		baseline = n.overrideItems
	}
	modified := n.overrideFlagChanged() || !reflect.DeepEqual(n.ItemValue(), baseline)
	for _, row := range n.rows {
		if row.IsModified() {
			modified = true
			break
		}
	}
	n.modified = modified
}

// Key returns the row key. Always empty for list collections.
func (r *Row) Key() string { return r.key }

// SetKey renames a dict row.
func (r *Row) SetKey(key string) {
	if r.owner == nil || r.owner.mode != dictRows {
		return
	}
	r.key = key
	r.owner.changed()
}

// Value returns the node holding the row value.
func (r *Row) Value() Node { return r.value }

// IsSingle reports whether the row is the only row of its collection.
func (r *Row) IsSingle() bool { return r.single }

// IsModified reports whether the row value or key differs from the content
// it was populated with.
func (r *Row) IsModified() bool {
	return r.value.ChildModified() || r.key != r.origKey
}

// IsOverridden reports the override state of the owning collection.
func (r *Row) IsOverridden() bool {
	return r.owner != nil && r.owner.IsOverridden()
}

// Remove removes the row from its collection, or clears it when single.
func (r *Row) Remove() error {
	if r.owner == nil {
		return nil
	}
	return r.owner.RemoveRow(r)
}

func (r *Row) clear() {
	owner := r.owner
	release := owner.session.Suspend()
	r.value.ClearValue()
	release()
	if owner.mode == dictRows {
		r.key = ""
	}
	owner.changed()
}
