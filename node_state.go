package settings

// State summarizes the override and modification flags of a node.
type State int

const (
	// StateClean is a node matching its default with no override.
	StateClean State = iota
	// StateUserModified is a node edited away from its baseline without
	// carrying an override.
	StateUserModified
	// StateOverridden is a node carrying an override it still matches.
	StateOverridden
	// StateOverriddenAndModified is an overridden node edited away from the
	// applied override.
	StateOverriddenAndModified
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateUserModified:
		return "user-modified"
	case StateOverridden:
		return "overridden"
	case StateOverriddenAndModified:
		return "overridden-modified"
	default:
		return "unknown"
	}
}

// StateOf derives the state of node. Non-group containers report the state
// of their descendants.
func StateOf(node Node) State {
	if node == nil {
		return StateClean
	}
	modified := node.IsModified()
	overridden := node.IsOverridden()
	if node.Kind() == KindGroup && !node.IsGroup() {
		modified = node.ChildModified()
		overridden = node.ChildOverridden()
	}
	switch {
	case overridden && modified:
		return StateOverriddenAndModified
	case overridden:
		return StateOverridden
	case modified:
		return StateUserModified
	default:
		return StateClean
	}
}
