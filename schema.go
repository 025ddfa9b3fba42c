package settings

import (
	"sort"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms a settings schema into a schema document.
// Implementations must be safe for concurrent use.
type SchemaGenerator interface {
	Generate(schema Descriptor) (SchemaDocument, error)
}

// FieldDescriptor describes one stored path of a schema.
type FieldDescriptor struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	IsGroup bool   `json:"is_group,omitempty"`
	// Group is the path of the governing group boundary.
	Group   string `json:"group,omitempty"`
	Default any    `json:"default,omitempty"`
}

// WithSchemaGenerator configures the generator used by Tree.SchemaDocument.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *buildConfig) {
		cfg.generator = generator
	}
}

// SchemaDocument renders the tree schema with the configured generator.
func (t *Tree) SchemaDocument() (SchemaDocument, error) {
	return t.cfg.generator.Generate(t.schema)
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(schema Descriptor) (SchemaDocument, error) {
	if err := ValidateGroups(schema); err != nil {
		return SchemaDocument{}, err
	}
	descriptors := DescribeSchema(schema)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// DescribeSchema flattens schema into field descriptors sorted by path.
// Keyless containers contribute only their children.
func DescribeSchema(schema Descriptor) []FieldDescriptor {
	var fields []FieldDescriptor
	root := rootDescriptor(schema)
	for _, child := range root.Children {
		fields = appendFields(fields, child, nil, "", false)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Path < fields[j].Path
	})
	return fields
}

func appendFields(fields []FieldDescriptor, desc Descriptor, parent Path, group string, governed bool) []FieldDescriptor {
	if desc.Type == presentationType {
		for _, child := range desc.Children {
			fields = appendFields(fields, child, parent, group, governed)
		}
		return fields
	}
	path := parent.Child(desc.Key)
	isGroup, _ := electGroup(desc, path, governed)
	if isGroup {
		group = path.String()
	}
	field := FieldDescriptor{
		Path:    path.String(),
		Type:    desc.Type,
		Kind:    descriptorKind(desc).String(),
		IsGroup: isGroup,
		Group:   group,
		Default: desc.Default,
	}
	fields = append(fields, field)
	for _, child := range desc.Children {
		fields = appendFields(fields, child, path, group, governed || isGroup)
	}
	return fields
}

func descriptorKind(desc Descriptor) Kind {
	switch desc.Type {
	case "list", "dict-modifiable":
		return KindCollection
	case "dict", presentationType:
		return KindGroup
	default:
		if len(desc.Children) > 0 {
			return KindGroup
		}
		return KindValue
	}
}
