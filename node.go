package settings

// nodeBase carries the identity and override flags every variant shares.
// Variants embed it and implement the value specific parts of Node.
type nodeBase struct {
	key           string
	label         string
	path          Path
	isGroup       bool
	session       *Session
	overridden    bool
	wasOverridden bool
	listeners     []Listener
	// inherited reports the override state of an owner that serializes this
	// node wholesale (collection rows).
	inherited func() bool
}

func newNodeBase(ctx BuildContext, desc Descriptor, isGroup bool) nodeBase {
	path := ctx.Parent
	if desc.Key != "" {
		path = ctx.Parent.Child(desc.Key)
	}
	label := desc.Label
	if label == "" {
		label = desc.Key
	}
	return nodeBase{
		key:     desc.Key,
		label:   label,
		path:    path,
		isGroup: isGroup,
		session: ctx.Session,
	}
}

func (n *nodeBase) Key() string         { return n.key }
func (n *nodeBase) Label() string       { return n.label }
func (n *nodeBase) Path() Path          { return append(Path(nil), n.path...) }
func (n *nodeBase) IsGroup() bool       { return n.isGroup }
func (n *nodeBase) WasOverridden() bool { return n.wasOverridden }

// IsOverridden reports the node flag, or the flag of the owner that
// serializes this node wholesale.
func (n *nodeBase) IsOverridden() bool {
	if n.overridden {
		return true
	}
	return n.inherited != nil && n.inherited()
}

func (n *nodeBase) Subscribe(listener Listener) {
	if listener != nil {
		n.listeners = append(n.listeners, listener)
	}
}

// notify forwards source to listeners unless the session suppresses change
// side effects.
func (n *nodeBase) notify(source Node) {
	if n.session.Suspended() {
		return
	}
	for _, listener := range n.listeners {
		listener(source)
	}
}

// markEdited records a user edit: in an override context the node starts
// carrying an override.
func (n *nodeBase) markEdited() {
	if n.session.Overridable() && !n.session.Suspended() {
		n.overridden = true
	}
}

func (n *nodeBase) overrideFlagChanged() bool {
	return n.overridden != n.wasOverridden
}

// populator is implemented by every built-in node. populate stores value as
// the new default baseline, used for rows filled from persisted data.
type populator interface {
	populate(value any) error
}

// valueSetter is implemented by nodes that accept direct edits.
type valueSetter interface {
	SetValue(value any) error
}
