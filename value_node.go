package settings

import "fmt"

// ValueNode is a leaf holding one scalar or structured value.
type ValueNode struct {
	nodeBase
	codec         valueCodec
	current       any
	defaultValue  any
	overrideValue any
	hasOverride   bool
	modified      bool
	invalid       bool
	rule          *nodeRule
}

var _ Node = (*ValueNode)(nil)

func newValueNode(ctx BuildContext, desc Descriptor, codec valueCodec) (*ValueNode, error) {
	if desc.Key == "" && !ctx.Row {
		return nil, &SchemaError{Path: ctx.Parent, Type: desc.Type, Err: fmt.Errorf("%w: key is required", ErrInvalidSchema)}
	}
	isGroup, err := resolveGroup(ctx, desc)
	if err != nil {
		return nil, err
	}
	node := &ValueNode{
		nodeBase: newNodeBase(ctx, desc, isGroup),
		codec:    codec,
	}
	if ctx.rules != nil {
		rule, err := ctx.rules.compile(desc.Validate)
		if err != nil {
			return nil, &SchemaError{Path: node.path, Type: desc.Type, Err: err}
		}
		node.rule = rule
	}

	initial, err := node.initialValue(ctx, desc)
	if err != nil {
		return nil, err
	}
	node.current = initial
	node.defaultValue = initial
	node.refresh()
	return node, nil
}

// initialValue merges the schema default with the stored values document.
func (n *ValueNode) initialValue(ctx BuildContext, desc Descriptor) (any, error) {
	if !ctx.Row {
		stored, ok, err := LookupValue(ctx.Values, n.path)
		if err != nil {
			return nil, err
		}
		if ok {
			value, err := n.codec.decode(stored)
			if err != nil {
				return nil, &NodeError{Op: "load", Path: n.path, Err: err}
			}
			return value, nil
		}
	}
	if desc.Default != nil {
		value, err := n.codec.decode(desc.Default)
		if err != nil {
			return nil, &SchemaError{Path: n.path, Type: desc.Type, Err: err}
		}
		return value, nil
	}
	return n.codec.empty(), nil
}

func (n *ValueNode) Kind() Kind { return KindValue }

// TypeName returns the value type handled by the node.
func (n *ValueNode) TypeName() string { return n.codec.typeName() }

// ItemValue returns the current value in its natural shape.
func (n *ValueNode) ItemValue() any { return n.codec.output(n.current) }

// RawValue returns the current value as edited, before output conversion.
// For raw-json nodes this is the text typed by the user.
func (n *ValueNode) RawValue() any { return n.current }

func (n *ValueNode) DefaultValue() any { return n.codec.output(n.defaultValue) }

func (n *ValueNode) OverrideValue() any {
	if !n.hasOverride {
		return nil
	}
	return n.codec.output(n.overrideValue)
}

func (n *ValueNode) IsModified() bool      { return n.modified }
func (n *ValueNode) ChildModified() bool   { return n.modified }
func (n *ValueNode) ChildOverridden() bool { return n.IsOverridden() }
func (n *ValueNode) IsInvalid() bool       { return n.invalid }

// SetValue stores a user edit.
func (n *ValueNode) SetValue(value any) error {
	coerced, err := n.codec.coerce(value)
	if err != nil {
		return &NodeError{Op: "set", Path: n.path, Err: err}
	}
	n.current = coerced
	n.changed()
	return nil
}

// SetDefaultValue stores value and makes it the default baseline, so freshly
// populated values are not reported as modified.
func (n *ValueNode) SetDefaultValue(value any) error {
	decoded, err := n.codec.decode(value)
	if err != nil {
		return &NodeError{Op: "set default", Path: n.path, Err: err}
	}
	n.current = decoded
	n.defaultValue = decoded
	n.refresh()
	n.notify(n)
	return nil
}

func (n *ValueNode) populate(value any) error {
	return n.SetDefaultValue(value)
}

// ResetValue restores the applied override when one exists in an override
// context, otherwise the default.
func (n *ValueNode) ResetValue() {
	if n.session.Overridable() && n.hasOverride {
		n.current = n.overrideValue
	} else {
		n.current = n.defaultValue
	}
	n.overridden = n.wasOverridden
	n.refresh()
	n.notify(n)
}

// ClearValue sets the type empty value as a user edit.
func (n *ValueNode) ClearValue() {
	n.current = n.codec.empty()
	n.changed()
}

func (n *ValueNode) ApplyOverrides(value any) error {
	if value == nil {
		n.overridden = false
		n.wasOverridden = false
		n.overrideValue = nil
		n.hasOverride = false
		n.current = n.defaultValue
	} else {
		decoded, err := n.codec.decode(value)
		if err != nil {
			return &NodeError{Op: "apply overrides", Path: n.path, Err: err}
		}
		n.overridden = true
		n.wasOverridden = true
		n.overrideValue = decoded
		n.hasOverride = true
		n.current = decoded
	}
	n.refresh()
	n.notify(n)
	return nil
}

func (n *ValueNode) Overrides() (Override, bool) {
	if !n.IsOverridden() {
		return Override{}, false
	}
	return Override{Value: Document{n.key: n.ItemValue()}, IsGroup: n.isGroup}, true
}

func (n *ValueNode) SetOverridden() {
	if !n.session.Overridable() {
		return
	}
	n.overridden = true
	n.refresh()
	n.notify(n)
}

func (n *ValueNode) RemoveOverride() {
	if !n.session.Overridable() {
		return
	}
	n.overridden = false
	n.current = n.defaultValue
	n.refresh()
	n.notify(n)
}

func (n *ValueNode) changed() {
	n.markEdited()
	n.refresh()
	n.notify(n)
}

// refresh recomputes the modified and invalid flags.
func (n *ValueNode) refresh() {
	baseline := n.defaultValue
	if n.hasOverride {
		baseline = n.overrideValue
	}
	n.modified = !n.codec.equal(n.current, baseline) || n.overrideFlagChanged()
	n.invalid = n.codec.invalid(n.current)
	if !n.invalid && n.rule != nil {
		n.invalid = !n.rule.check(RuleContext{
			Value: n.ItemValue(),
			Path:  n.path.String(),
			Key:   n.key,
		})
	}
}

func (n *ValueNode) String() string {
	return fmt.Sprintf("%s(%s)=%v", n.codec.typeName(), n.path, n.ItemValue())
}
