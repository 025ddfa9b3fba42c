package settings

// Session is the state shared by every node of one tree. Nodes hold a
// reference to it instead of looking it up through their parents.
type Session struct {
	overridable bool
	suspended   int
}

// NewSession constructs a session. Overridable sessions edit overrides on top
// of defaults; other sessions edit the defaults themselves.
func NewSession(overridable bool) *Session {
	return &Session{overridable: overridable}
}

// Overridable reports whether an override context is active.
func (s *Session) Overridable() bool {
	return s != nil && s.overridable
}

// Suspend stops change notifications until the returned release function is
// called. Calls nest; each release must be called exactly once, usually with
// defer so the guard is released even when population fails.
func (s *Session) Suspend() (release func()) {
	s.suspended++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		s.suspended--
	}
}

// Suspended reports whether change notifications are currently ignored.
func (s *Session) Suspended() bool {
	return s != nil && s.suspended > 0
}
