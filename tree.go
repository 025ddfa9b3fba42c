package settings

import (
	"context"
	"fmt"

	"github.com/goliatone/go-settings/pkg/activity"
)

// Tree is a live settings tree built from a schema and a stored values
// document. It is not safe for concurrent use.
type Tree struct {
	schema    Descriptor
	root      *GroupNode
	session   *Session
	cfg       buildConfig
	rules     *ruleCompiler
	emitter   *activity.Emitter
	nodes     map[string]Node
	listeners []Listener
}

// Build validates schema, constructs every node with its initial value read
// from values and wires change propagation up to the tree. A schema without a
// type is treated as a list of top-level descriptors in Children.
func Build(schema Descriptor, values Document, opts ...Option) (*Tree, error) {
	cfg := applyOptions(opts)
	if cfg.err != nil {
		return nil, cfg.err
	}
	if err := ValidateGroups(schema); err != nil {
		return nil, err
	}
	cfg.registry.Freeze()

	session := NewSession(cfg.overridable)
	rules := &ruleCompiler{cfg: cfg}
	ctx := BuildContext{
		Session:  session,
		Registry: cfg.registry,
		Values:   values,
		rules:    rules,
		logger:   cfg.logger,
	}

	root, err := buildRoot(ctx, schema)
	if err != nil {
		return nil, err
	}

	tree := &Tree{
		schema:  schema,
		root:    root,
		session: session,
		cfg:     cfg,
		rules:   rules,
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activity),
		nodes:   make(map[string]Node),
	}
	tree.index(root)
	root.Subscribe(tree.fire)
	cfg.logger.Debug("settings tree built", "fields", len(tree.nodes), "overridable", cfg.overridable)
	return tree, nil
}

// buildRoot constructs the node hierarchy with change notifications
// suspended.
func buildRoot(ctx BuildContext, schema Descriptor) (*GroupNode, error) {
	release := ctx.Session.Suspend()
	defer release()
	return newGroupNode(ctx, rootDescriptor(schema), true)
}

func (t *Tree) index(node Node) {
	if node.Key() != "" {
		t.nodes[node.Path().String()] = node
	}
	if node.Kind() == KindCollection {
		return
	}
	if container, ok := node.(Container); ok {
		for _, child := range container.Children() {
			t.index(child)
		}
	}
}

// Root returns the synthetic keyless root.
func (t *Tree) Root() *GroupNode { return t.root }

// Schema returns the schema the tree was built from.
func (t *Tree) Schema() Descriptor { return t.schema }

// Session returns the session shared by the tree nodes.
func (t *Tree) Session() *Session { return t.session }

// Lookup returns the keyed node at path. The empty path is the root.
func (t *Tree) Lookup(path Path) (Node, bool) {
	if len(path) == 0 {
		return t.root, true
	}
	node, ok := t.nodes[path.String()]
	return node, ok
}

func (t *Tree) mustLookup(op string, path Path) (Node, error) {
	node, ok := t.Lookup(path)
	if !ok {
		return nil, &NodeError{Op: op, Path: path, Err: ErrPathNotFound}
	}
	return node, nil
}

// IsValuePath reports whether path addresses a value or collection node,
// which override documents replace wholesale.
func (t *Tree) IsValuePath(path []string) bool {
	node, ok := t.Lookup(Path(path))
	return ok && node.Kind() != KindGroup
}

// OnChange registers a listener invoked after every change finished
// propagating through the tree.
func (t *Tree) OnChange(listener Listener) {
	if listener != nil {
		t.listeners = append(t.listeners, listener)
	}
}

func (t *Tree) fire(source Node) {
	for _, listener := range t.listeners {
		listener(source)
	}
}

// Set edits the node at path as a user would.
func (t *Tree) Set(path Path, value any) error {
	node, err := t.mustLookup("set", path)
	if err != nil {
		return err
	}
	setter, ok := node.(valueSetter)
	if !ok {
		return &NodeError{Op: "set", Path: path, Err: ErrNotEditable}
	}
	old := node.ItemValue()
	if err := setter.SetValue(value); err != nil {
		return err
	}
	t.emit(activity.BuildValueChangedEvent(activity.SettingsEventInput{
		Path:       path.String(),
		OldValue:   old,
		NewValue:   node.ItemValue(),
		Overridden: node.IsOverridden(),
	}))
	return nil
}

// ApplyOverrides pushes doc into the tree. Notifications are suspended while
// nodes are populated and listeners run once afterwards. A nil doc clears
// every override.
func (t *Tree) ApplyOverrides(doc Document) error {
	if err := t.applyOverrides(doc); err != nil {
		return err
	}
	t.fire(t.root)
	t.emit(activity.BuildOverridesAppliedEvent(activity.SettingsEventInput{
		Metadata: map[string]any{"keys": len(doc)},
	}))
	return nil
}

func (t *Tree) applyOverrides(doc Document) error {
	release := t.session.Suspend()
	defer release()
	if doc == nil {
		return t.root.ApplyOverrides(nil)
	}
	return t.root.ApplyOverrides(doc)
}

// Overrides collects the sparse override document of the tree. The result is
// empty when nothing is overridden.
func (t *Tree) Overrides() Document {
	out := Document{}
	if override, ok := t.root.Overrides(); ok {
		out = override.Value
	}
	t.emit(activity.BuildOverridesCollectedEvent(activity.SettingsEventInput{
		Metadata: map[string]any{"keys": len(out)},
	}))
	return out
}

// Values returns the full current values document.
func (t *Tree) Values() Document {
	values, _ := t.root.ItemValue().(Document)
	if values == nil {
		return Document{}
	}
	return values
}

// Modified reports whether any node differs from its baseline.
func (t *Tree) Modified() bool { return t.root.ChildModified() }

// Overridden reports whether any node carries an override.
func (t *Tree) Overridden() bool { return t.root.ChildOverridden() }

// Invalid reports whether any node holds invalid content.
func (t *Tree) Invalid() bool { return t.root.IsInvalid() }

// SetOverridden marks the node at path as overridden keeping its value.
func (t *Tree) SetOverridden(path Path) error {
	node, err := t.overridableNode("set override", path)
	if err != nil {
		return err
	}
	node.SetOverridden()
	return nil
}

// RemoveOverride drops the override of the node at path and restores its
// default.
func (t *Tree) RemoveOverride(path Path) error {
	node, err := t.overridableNode("remove override", path)
	if err != nil {
		return err
	}
	node.RemoveOverride()
	t.emit(activity.BuildOverrideRemovedEvent(activity.SettingsEventInput{
		Path:     path.String(),
		NewValue: node.ItemValue(),
	}))
	return nil
}

func (t *Tree) overridableNode(op string, path Path) (Node, error) {
	if !t.session.Overridable() {
		return nil, &NodeError{Op: op, Path: path, Err: ErrNotOverridable}
	}
	return t.mustLookup(op, path)
}

// Trace reports the provenance of the node at path.
func (t *Tree) Trace(path Path) (Trace, error) {
	node, err := t.mustLookup("trace", path)
	if err != nil {
		return Trace{}, err
	}
	trace := Trace{
		Path:          path.String(),
		Kind:          node.Kind().String(),
		State:         StateOf(node).String(),
		Default:       node.DefaultValue(),
		Override:      node.OverrideValue(),
		Current:       node.ItemValue(),
		Overridden:    node.IsOverridden(),
		WasOverridden: node.WasOverridden(),
		Modified:      node.IsModified(),
		Invalid:       node.IsInvalid(),
	}
	for i := 1; i <= len(path); i++ {
		if ancestor, ok := t.Lookup(path[:i]); ok && ancestor.IsGroup() {
			trace.Group = Path(path[:i]).String()
			break
		}
	}
	return trace, nil
}

// Describe lists every keyed field of the schema with defaults resolved
// against the stored values the tree was built from.
func (t *Tree) Describe() []FieldDescriptor {
	fields := DescribeSchema(t.schema)
	for i := range fields {
		if node, ok := t.Lookup(ParsePath(fields[i].Path)); ok {
			fields[i].Default = node.DefaultValue()
		}
	}
	return fields
}

func (t *Tree) emit(event activity.Event) {
	if !t.emitter.Enabled() {
		return
	}
	if err := t.emitter.Emit(context.Background(), event); err != nil {
		t.cfg.logger.Warn("settings activity hook failed", "verb", event.Verb, "error", err)
	}
}

func (t *Tree) String() string {
	return fmt.Sprintf("settings.Tree(fields=%d, overridable=%t)", len(t.nodes), t.session.Overridable())
}
