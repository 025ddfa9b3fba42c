// Package schemafile reads settings schemas and settings documents from JSONC
// or YAML files and writes documents back.
package schemafile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/hydrate"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	// FormatJSON is JSON with comments and trailing commas allowed on read.
	FormatJSON Format = "json"
	// FormatYAML is YAML 1.2.
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("schemafile: unknown format")

// ParseFormat converts a flag value into a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json", "jsonc":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// LoadSchema reads a schema file. The file holds either one descriptor or a
// list of top-level descriptors.
func LoadSchema(path string) (settings.Descriptor, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return settings.Descriptor{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return settings.Descriptor{}, fmt.Errorf("reading %s: %w", path, err)
	}
	schema, err := parseSchema(data, format, path)
	if err != nil {
		return settings.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

// ParseSchema decodes a schema held in data.
func ParseSchema(data []byte, format Format) (settings.Descriptor, error) {
	return parseSchema(data, format, "inline")
}

func parseSchema(data []byte, format Format, source string) (settings.Descriptor, error) {
	raw, err := decode(data, format)
	if err != nil {
		return settings.Descriptor{}, err
	}
	var payload map[string]any
	switch typed := raw.(type) {
	case map[string]any:
		payload = typed
	case []any:
		payload = map[string]any{"children": typed}
	default:
		return settings.Descriptor{}, fmt.Errorf("schema must be a mapping or a list, got %T", raw)
	}
	return schemaDecoder.Decode(hydrate.Context{Source: source, Format: string(format)}, payload)
}

var schemaDecoder = hydrate.NewDecoder[settings.Descriptor](
	hydrate.WithNodeRewrite[settings.Descriptor](expandObjectType, "children", "object_type"),
	hydrate.WithStrict[settings.Descriptor](),
	hydrate.WithPostHook[settings.Descriptor](requireTypes),
)

// expandObjectType accepts a bare type tag as object_type shorthand.
func expandObjectType(_ hydrate.Context, _ string, node map[string]any) error {
	if tag, ok := node["object_type"].(string); ok {
		node["object_type"] = map[string]any{"type": tag}
	}
	return nil
}

func requireTypes(_ hydrate.Context, schema *settings.Descriptor) error {
	for _, child := range schema.Children {
		if err := requireType(child, nil); err != nil {
			return err
		}
	}
	return nil
}

func requireType(desc settings.Descriptor, parent settings.Path) error {
	path := parent
	if desc.Key != "" {
		path = parent.Child(desc.Key)
	}
	if desc.Type == "" {
		return fmt.Errorf("%w: descriptor under %q has no type", settings.ErrInvalidSchema, path.String())
	}
	for _, child := range desc.Children {
		if err := requireType(child, path); err != nil {
			return err
		}
	}
	if desc.ObjectType != nil {
		return requireType(*desc.ObjectType, path)
	}
	return nil
}

// LoadDocument reads a values or override document. A missing file yields
// an empty document.
func LoadDocument(path string) (settings.Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument decodes a values or override document held in data. Empty
// input is an empty document.
func ParseDocument(data []byte, format Format) (settings.Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return settings.Document{}, nil
	}
	raw, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	switch typed := raw.(type) {
	case nil:
		return settings.Document{}, nil
	case map[string]any:
		return typed, nil
	default:
		return nil, fmt.Errorf("document must be a mapping, got %T", raw)
	}
}

// WriteDocument encodes doc to w.
func WriteDocument(w io.Writer, doc any, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func decode(data []byte, format Format) (any, error) {
	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
		return raw, nil
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		return normalize(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// normalize converts the generic mappings produced by YAML decoding into
// string keyed documents.
func normalize(value any) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		for key, item := range typed {
			converted, err := normalize(item)
			if err != nil {
				return nil, err
			}
			typed[key] = converted
		}
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			text, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is %T, want string", key, key)
			}
			converted, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[text] = converted
		}
		return out, nil
	case []any:
		for i, item := range typed {
			converted, err := normalize(item)
			if err != nil {
				return nil, err
			}
			typed[i] = converted
		}
		return typed, nil
	default:
		return value, nil
	}
}
