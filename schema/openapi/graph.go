package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	settings "github.com/goliatone/go-settings"
)

// schemaNode is the JSON Schema projection of one settings descriptor.
type schemaNode struct {
	Type                 string
	Format               string
	Title                string
	Properties           map[string]*schemaNode
	Items                *schemaNode
	AdditionalProperties *schemaNode
	Default              any
	Minimum              *float64
	Maximum              *float64
	MultipleOf           *float64
	// extensions are emitted under x-settings.
	extensions map[string]any
	// group is the path of the override boundary this node establishes.
	group string
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Title != "" {
		result["title"] = n.Title
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if n.Minimum != nil {
		result["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		result["maximum"] = *n.Maximum
	}
	if n.MultipleOf != nil {
		result["multipleOf"] = *n.MultipleOf
	}
	if n.group != "" {
		result["x-group"] = true
	}
	if len(n.extensions) > 0 {
		result["x-settings"] = maps.Clone(n.extensions)
	}
	return result
}

func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()
	if len(n.Properties) > 0 || n.Type == "object" && n.AdditionalProperties == nil {
		props := make(map[string]any, len(n.Properties))
		for _, name := range sortedKeys(n.Properties) {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}
	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}
	if n.AdditionalProperties != nil {
		result["additionalProperties"] = n.AdditionalProperties.inlineOpenAPI()
	}
	return result
}

// Digest identifies structurally equal nodes so they can share a component.
func (n *schemaNode) Digest() string {
	data, err := json.Marshal(n.inlineOpenAPI())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildSchemaGraph converts the descriptor tree into schema nodes. Keyless
// containers contribute their children to the enclosing object.
func buildSchemaGraph(schema settings.Descriptor) (*schemaNode, error) {
	if err := settings.ValidateGroups(schema); err != nil {
		return nil, err
	}
	root := newObjectNode()
	children := schema.Children
	if schema.Type != "" {
		children = []settings.Descriptor{schema}
	}
	groups := groupIndex(settings.DescribeSchema(schema))
	for _, child := range children {
		if err := addProperty(root, child, nil, groups); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func groupIndex(fields []settings.FieldDescriptor) map[string]bool {
	out := make(map[string]bool, len(fields))
	for _, field := range fields {
		if field.IsGroup {
			out[field.Path] = true
		}
	}
	return out
}

func addProperty(parent *schemaNode, desc settings.Descriptor, path settings.Path, groups map[string]bool) error {
	if desc.Type == "dict-form" {
		for _, child := range desc.Children {
			if err := addProperty(parent, child, path, groups); err != nil {
				return err
			}
		}
		return nil
	}
	childPath := path.Child(desc.Key)
	node, err := nodeFor(desc, childPath, groups)
	if err != nil {
		return err
	}
	if groups[childPath.String()] {
		node.group = childPath.String()
	}
	parent.Properties[desc.Key] = node
	return nil
}

func nodeFor(desc settings.Descriptor, path settings.Path, groups map[string]bool) (*schemaNode, error) {
	node := &schemaNode{Title: desc.Label, Default: desc.Default}
	switch desc.Type {
	case "boolean":
		node.Type = "boolean"
	case "integer":
		node.Type = "integer"
		node.Minimum, node.Maximum = desc.Minimum, desc.Maximum
	case "float":
		node.Type = "number"
		node.Minimum, node.Maximum = desc.Minimum, desc.Maximum
		if desc.Decimals != nil {
			step := 1.0
			for i := 0; i < *desc.Decimals; i++ {
				step /= 10
			}
			node.MultipleOf = &step
		}
	case "text":
		node.Type = "string"
		if desc.Multiline {
			node.extensions = map[string]any{"multiline": true}
		}
	case "raw-json":
		node.extensions = map[string]any{"widget": "raw-json"}
	case "string-list", "list":
		node.Type = "array"
		node.Items = &schemaNode{Type: "string"}
	case "dict-modifiable":
		node.Type = "object"
		if desc.ObjectType == nil {
			return nil, fmt.Errorf("openapi: %s: object_type is required", path)
		}
		row := *desc.ObjectType
		row.Key = ""
		item, err := nodeFor(row, path, groups)
		if err != nil {
			return nil, err
		}
		node.AdditionalProperties = item
	case "dict":
		node.Type = "object"
		node.Properties = map[string]*schemaNode{}
		for _, child := range desc.Children {
			if err := addProperty(node, child, path, groups); err != nil {
				return nil, err
			}
		}
	default:
		node.extensions = map[string]any{"widget": desc.Type}
	}
	if desc.Validate != "" {
		if node.extensions == nil {
			node.extensions = map[string]any{}
		}
		node.extensions["validate"] = desc.Validate
	}
	return node, nil
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
