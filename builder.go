package settings

import "fmt"

// BuildContext is passed to factories while a tree is constructed.
type BuildContext struct {
	Session  *Session
	Registry *Registry
	// Values is the stored values document the node reads its initial value
	// from. Nil for collection rows.
	Values Document
	// Parent is the path of the enclosing keyed node.
	Parent Path
	// Governed reports whether an ancestor is an override boundary.
	Governed bool
	// Row reports that the node is the value of a collection row. Row nodes
	// are keyless and take their content from the collection.
	Row bool

	rules  *ruleCompiler
	logger Logger
}

// Logger returns the logger configured for the build.
func (ctx BuildContext) Logger() Logger {
	if ctx.logger == nil {
		return noopLogger{}
	}
	return ctx.logger
}

const presentationType = "dict-form"

// ValidateGroups checks that every leaf of schema is governed by exactly one
// override boundary. A keyed node becomes a boundary when it declares
// is_group, or when no ancestor is a boundary and no descendant declares one.
func ValidateGroups(schema Descriptor) error {
	if schema.Type == "" {
		for _, child := range schema.Children {
			if err := validateGroups(child, nil, false); err != nil {
				return err
			}
		}
		return nil
	}
	return validateGroups(schema, nil, false)
}

func validateGroups(desc Descriptor, parent Path, governed bool) error {
	path := parent
	if desc.Key != "" {
		path = parent.Child(desc.Key)
	}
	if desc.Type == presentationType {
		if desc.IsGroup {
			return &SchemaError{Path: parent, Type: desc.Type, Err: fmt.Errorf("%w: keyless containers cannot be groups", ErrGroupHierarchy)}
		}
		for _, child := range desc.Children {
			if err := validateGroups(child, parent, governed); err != nil {
				return err
			}
		}
		return nil
	}

	isGroup, err := electGroup(desc, path, governed)
	if err != nil {
		return err
	}
	for _, child := range desc.Children {
		if err := validateGroups(child, path, governed || isGroup); err != nil {
			return err
		}
	}
	if desc.ObjectType != nil {
		row := *desc.ObjectType
		row.Key = ""
		if err := validateGroups(row, path, true); err != nil {
			return err
		}
	}
	return nil
}

// resolveGroup decides whether the node built from desc is an override
// boundary.
func resolveGroup(ctx BuildContext, desc Descriptor) (bool, error) {
	path := ctx.Parent
	if desc.Key != "" {
		path = ctx.Parent.Child(desc.Key)
	}
	return electGroup(desc, path, ctx.Governed)
}

func electGroup(desc Descriptor, path Path, governed bool) (bool, error) {
	if desc.IsGroup {
		if governed {
			return false, &SchemaError{Path: path, Type: desc.Type, Err: fmt.Errorf("%w: is_group declared inside another group", ErrGroupHierarchy)}
		}
		if desc.Key == "" {
			return false, &SchemaError{Path: path, Type: desc.Type, Err: fmt.Errorf("%w: is_group requires a key", ErrGroupHierarchy)}
		}
		return true, nil
	}
	if governed || desc.Key == "" {
		return false, nil
	}
	return !declaresGroup(desc.Children), nil
}

// declaresGroup reports whether any descriptor in children, or below them,
// declares is_group. Row types are not inspected since rows are always
// governed by their collection.
func declaresGroup(children []Descriptor) bool {
	for _, child := range children {
		if child.IsGroup || declaresGroup(child.Children) {
			return true
		}
	}
	return false
}

// rootDescriptor wraps schema into the keyless synthetic root.
func rootDescriptor(schema Descriptor) Descriptor {
	if schema.Type == "" {
		return Descriptor{Type: presentationType, Children: schema.Children}
	}
	return Descriptor{Type: presentationType, Children: []Descriptor{schema}}
}
