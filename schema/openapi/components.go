package openapi

import (
	"strconv"
	"strings"
	"unicode"
)

// componentSet collects schemas published under components/schemas.
// Structurally equal schemas share one component, and names stay unique by
// numeric suffix.
type componentSet struct {
	byDigest map[string]string
	published map[string]map[string]any
}

func newComponentSet() *componentSet {
	return &componentSet{
		byDigest: map[string]string{},
		published: map[string]map[string]any{},
	}
}

// ref publishes schema for node, named after path, and returns the $ref
// object that replaces it. The inline schema is returned when node cannot
// be digested.
func (s *componentSet) ref(path string, node *schemaNode, schema map[string]any) map[string]any {
	digest := node.Digest()
	if digest == "" {
		return schema
	}
	name, ok := s.byDigest[digest]
	if !ok {
		name = s.claim(sanitizeComponentName(path))
		s.byDigest[digest] = name
		s.published[name] = schema
	}
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func (s *componentSet) claim(name string) string {
	if name == "" {
		name = "Schema"
	}
	candidate := name
	for n := 1; ; n++ {
		if _, taken := s.published[candidate]; !taken {
			return candidate
		}
		candidate = name + strconv.Itoa(n)
	}
}

func (s *componentSet) schemas() map[string]any {
	if len(s.published) == 0 {
		return nil
	}
	out := make(map[string]any, len(s.published))
	for name, schema := range s.published {
		out[name] = schema
	}
	return out
}

// sanitizeComponentName turns a settings path ("general.render_farm") into a
// component name ("General_Render_Farm"). Names never start with a digit.
func sanitizeComponentName(path string) string {
	words := strings.FieldsFunc(path, func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	name := strings.Join(words, "_")
	if name != "" && unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}
