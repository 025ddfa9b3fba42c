package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupHierarchy indicates two override boundaries on one ancestor
	// chain, or a boundary declared on a node that cannot own one.
	ErrGroupHierarchy = errors.New("settings: invalid group hierarchy")
	// ErrUnknownType indicates a descriptor type tag missing from the registry.
	ErrUnknownType = errors.New("settings: unknown node type")
	// ErrDuplicateType indicates a second registration for the same tag.
	ErrDuplicateType = errors.New("settings: node type already registered")
	// ErrRegistryFrozen indicates a registration after the registry was used
	// to build a tree.
	ErrRegistryFrozen = errors.New("settings: registry is frozen")
	// ErrInvalidSchema indicates a descriptor missing required fields.
	ErrInvalidSchema = errors.New("settings: invalid schema")
	// ErrStructure indicates a values document holding a scalar where a
	// mapping was expected.
	ErrStructure = errors.New("settings: corrupt values document")
	// ErrValueType indicates a value that cannot be coerced into the node type.
	ErrValueType = errors.New("settings: value type mismatch")
	// ErrPathNotFound indicates a lookup for a path that has no node.
	ErrPathNotFound = errors.New("settings: path not found")
	// ErrNotEditable indicates a direct value edit on a composite node.
	ErrNotEditable = errors.New("settings: node is not editable")
	// ErrNotOverridable indicates an override operation on a tree built
	// without an override context.
	ErrNotOverridable = errors.New("settings: tree is not overridable")
	// ErrRowPosition indicates a row insert outside the collection bounds.
	ErrRowPosition = errors.New("settings: row position out of range")
	// ErrFunction indicates a rule helper that is misnamed, duplicated or
	// not registered.
	ErrFunction = errors.New("settings: rule function")
)

// SchemaError reports a schema authoring problem found while validating or
// building a tree.
type SchemaError struct {
	Path Path
	Type string
	Err  error
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("settings: schema node %s type=%q: %v", describePath(e.Path), e.Type, e.Err)
}

func (e *SchemaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StructuralError reports a values document that holds a scalar where a
// nested mapping is required.
type StructuralError struct {
	Path    Path
	Segment string
	Found   any
}

func (e *StructuralError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("settings: expected mapping at %s, found %T", describePath(e.Path), e.Found)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructure
}

// NodeError wraps a failed operation on a specific node.
type NodeError struct {
	Op   string
	Path Path
	Err  error
}

func (e *NodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("settings: %s %s: %v", e.Op, describePath(e.Path), e.Err)
}

func (e *NodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describePath(path Path) string {
	if len(path) == 0 {
		return "<root>"
	}
	return fmt.Sprintf("%q", path.String())
}
