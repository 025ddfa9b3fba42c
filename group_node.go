package settings

import (
	"fmt"
)

// GroupNode is a named container of child nodes. Keyless groups (dict-form)
// only arrange their children: the children are stored at the level of the
// enclosing group.
type GroupNode struct {
	nodeBase
	presentation bool
	childCtx     BuildContext
	children     []Node
}

var _ Container = (*GroupNode)(nil)

func newGroupNode(ctx BuildContext, desc Descriptor, presentation bool) (*GroupNode, error) {
	if presentation {
		if desc.IsGroup {
			return nil, &SchemaError{Path: ctx.Parent, Type: desc.Type, Err: fmt.Errorf("%w: keyless containers cannot be groups", ErrGroupHierarchy)}
		}
		desc.Key = ""
	} else if desc.Key == "" && !ctx.Row {
		return nil, &SchemaError{Path: ctx.Parent, Type: desc.Type, Err: fmt.Errorf("%w: key is required", ErrInvalidSchema)}
	}

	isGroup := false
	if !presentation {
		var err error
		isGroup, err = resolveGroup(ctx, desc)
		if err != nil {
			return nil, err
		}
	}
	node := &GroupNode{
		nodeBase:     newNodeBase(ctx, desc, isGroup),
		presentation: presentation,
	}

	node.childCtx = ctx
	node.childCtx.Parent = node.path
	node.childCtx.Governed = ctx.Governed || isGroup
	if ctx.Row {
		// Row content never reads the stored values document.
		node.childCtx.Row = false
		node.childCtx.Values = nil
	}

	for _, child := range desc.Children {
		if _, err := node.AddChild(child, node.childCtx.Values); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// AddChild builds a child from desc under the group path, reading its
// initial value from values, and subscribes to its changes.
func (n *GroupNode) AddChild(desc Descriptor, values Document) (Node, error) {
	ctx := n.childCtx
	ctx.Values = values
	factory, err := ctx.Registry.Lookup(desc.Type)
	if err != nil {
		return nil, &SchemaError{Path: ctx.Parent.Child(desc.Key), Type: desc.Type, Err: err}
	}
	child, err := factory(ctx, desc)
	if err != nil {
		return nil, err
	}
	if n.inherited != nil {
		inheritFrom(child, n.inherited)
	}
	child.Subscribe(n.childChanged)
	n.children = append(n.children, child)
	return child, nil
}

// Children returns the direct children in declaration order.
func (n *GroupNode) Children() []Node {
	return append([]Node(nil), n.children...)
}

// IsPresentation reports whether the group is a keyless arrangement of
// fields stored at the parent level.
func (n *GroupNode) IsPresentation() bool { return n.presentation }

func (n *GroupNode) Kind() Kind { return KindGroup }

func (n *GroupNode) childChanged(source Node) {
	if n.session.Suspended() {
		return
	}
	if n.isGroup && n.session.Overridable() {
		n.overridden = true
	}
	n.notify(source)
}

// ItemValue returns the mapping of child values in declaration order. Keyless
// children contribute their own mapping.
func (n *GroupNode) ItemValue() any {
	out := Document{}
	for _, child := range n.children {
		n.mergeChild(out, child, Node.ItemValue)
	}
	return out
}

func (n *GroupNode) DefaultValue() any {
	out := Document{}
	for _, child := range n.children {
		n.mergeChild(out, child, Node.DefaultValue)
	}
	return out
}

// OverrideValue returns the override values of the children that carry one,
// or nil when none does.
func (n *GroupNode) OverrideValue() any {
	out := Document{}
	for _, child := range n.children {
		value := child.OverrideValue()
		if value == nil {
			continue
		}
		if child.Key() == "" {
			if nested, ok := value.(Document); ok {
				for key, item := range nested {
					out[key] = item
				}
			}
			continue
		}
		out[child.Key()] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (n *GroupNode) mergeChild(out Document, child Node, read func(Node) any) {
	value := read(child)
	if child.Key() != "" {
		out[child.Key()] = value
		return
	}
	if nested, ok := value.(Document); ok {
		for key, item := range nested {
			out[key] = item
		}
	}
}

// IsModified reports the aggregated state for group boundaries. Other
// containers leave modification to their governing group.
func (n *GroupNode) IsModified() bool {
	if !n.isGroup {
		return false
	}
	return n.ChildModified() || n.overrideFlagChanged()
}

func (n *GroupNode) ChildModified() bool {
	for _, child := range n.children {
		if child.ChildModified() {
			return true
		}
	}
	return false
}

func (n *GroupNode) ChildOverridden() bool {
	if n.IsOverridden() {
		return true
	}
	for _, child := range n.children {
		if child.ChildOverridden() {
			return true
		}
	}
	return false
}

func (n *GroupNode) IsInvalid() bool {
	for _, child := range n.children {
		if child.IsInvalid() {
			return true
		}
	}
	return false
}

// SetValue assigns every child present in value as one edit.
func (n *GroupNode) SetValue(value any) error {
	doc, ok := value.(map[string]any)
	if !ok {
		return &NodeError{Op: "set", Path: n.path, Err: mismatch("mapping", value)}
	}
	if err := n.assign(doc); err != nil {
		return err
	}
	n.markEdited()
	n.notify(n)
	return nil
}

func (n *GroupNode) assign(doc Document) error {
	release := n.session.Suspend()
	defer release()
	for _, child := range n.children {
		var value any = doc
		if child.Key() != "" {
			var ok bool
			value, ok = doc[child.Key()]
			if !ok {
				continue
			}
		}
		if inner, ok := child.(*GroupNode); ok && child.Key() == "" {
			if err := inner.assign(doc); err != nil {
				return err
			}
			continue
		}
		setter, ok := child.(valueSetter)
		if !ok {
			continue
		}
		if err := setter.SetValue(value); err != nil {
			return err
		}
		if n.session.Overridable() {
			child.SetOverridden()
		}
	}
	return nil
}

func (n *GroupNode) populate(value any) error {
	doc, ok := value.(map[string]any)
	if !ok {
		return &NodeError{Op: "set default", Path: n.path, Err: mismatch("mapping", value)}
	}
	release := n.session.Suspend()
	defer release()
	for _, child := range n.children {
		var item any = doc
		if child.Key() != "" {
			var present bool
			item, present = doc[child.Key()]
			if !present {
				continue
			}
		}
		filler, ok := child.(populator)
		if !ok {
			continue
		}
		if err := filler.populate(item); err != nil {
			return err
		}
	}
	return nil
}

func (n *GroupNode) ResetValue() {
	release := n.session.Suspend()
	for _, child := range n.children {
		child.ResetValue()
	}
	release()
	n.overridden = n.wasOverridden
	n.notify(n)
}

func (n *GroupNode) ClearValue() {
	release := n.session.Suspend()
	for _, child := range n.children {
		child.ClearValue()
	}
	release()
	n.markEdited()
	n.notify(n)
}

// ApplyOverrides routes each child its entry of doc. Keyless children share
// doc with the group. The metadata key is never routed.
func (n *GroupNode) ApplyOverrides(value any) error {
	var doc Document
	switch typed := value.(type) {
	case nil:
	case map[string]any:
		doc = typed
	default:
		return &NodeError{Op: "apply overrides", Path: n.path, Err: mismatch("mapping", value)}
	}

	for _, child := range n.children {
		var item any
		switch {
		case doc == nil:
		case child.Key() == "":
			item = doc
		case child.Key() == GroupsKey:
		default:
			item = doc[child.Key()]
		}
		if err := child.ApplyOverrides(item); err != nil {
			return err
		}
	}

	anyChild := false
	for _, child := range n.children {
		if child.ChildOverridden() {
			anyChild = true
			break
		}
	}
	n.overridden = n.isGroup && n.session.Overridable() && (doc != nil || anyChild)
	n.wasOverridden = n.overridden
	n.notify(n)
	return nil
}

// Overrides collects the sparse override mapping of the subtree. Keys of
// group children that contributed are listed under GroupsKey.
func (n *GroupNode) Overrides() (Override, bool) {
	if !n.ChildOverridden() {
		return Override{}, false
	}
	body := Document{}
	n.collect(body)
	if n.key == "" {
		return Override{Value: body, IsGroup: n.isGroup}, true
	}
	return Override{Value: Document{n.key: body}, IsGroup: n.isGroup}, true
}

func (n *GroupNode) collect(body Document) {
	var groups []string
	for _, child := range n.children {
		override, ok := child.Overrides()
		if !ok {
			continue
		}
		for key, value := range override.Value {
			if key == GroupsKey {
				groups = append(groups, metadataKeys(value)...)
				continue
			}
			body[key] = value
		}
		if override.IsGroup && child.Key() != "" {
			groups = append(groups, child.Key())
		}
	}
	if len(groups) > 0 {
		body[GroupsKey] = groups
	}
}

func metadataKeys(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := item.(string); ok {
				out = append(out, text)
			}
		}
		return out
	default:
		return nil
	}
}

// SetOverridden marks every descendant and the group as overridden, keeping
// current values.
func (n *GroupNode) SetOverridden() {
	if !n.session.Overridable() {
		return
	}
	release := n.session.Suspend()
	for _, child := range n.children {
		child.SetOverridden()
	}
	release()
	if n.isGroup {
		n.overridden = true
	}
	n.notify(n)
}

// RemoveOverride drops the override of every descendant and restores
// defaults.
func (n *GroupNode) RemoveOverride() {
	if !n.session.Overridable() {
		return
	}
	release := n.session.Suspend()
	for _, child := range n.children {
		child.RemoveOverride()
	}
	release()
	n.overridden = false
	n.notify(n)
}

func (n *GroupNode) String() string {
	return fmt.Sprintf("group(%s) children=%d", n.path, len(n.children))
}
