// Package layering merges sparse override documents over default values the
// way runtime consumers resolve settings.
package layering

// GroupsKey is the reserved metadata key of an override mapping listing the
// keys that are independently overridden group boundaries.
const GroupsKey = "__groups__"

// MergeOption customizes MergeOverrides.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	wholesale func(path []string) bool
}

// WithWholesale replaces the value at every path accepted by fn instead of
// merging into it. Trees pass their IsValuePath so dictionary settings are
// replaced like any other leaf.
func WithWholesale(fn func(path []string) bool) MergeOption {
	return func(cfg *mergeConfig) {
		cfg.wholesale = fn
	}
}

// MergeOverrides returns a new document holding defaults with overrides
// applied on top. Nested mappings merge key by key and every other value
// replaces the default. Metadata keys are dropped from the result. Neither
// input is modified.
func MergeOverrides(defaults, overrides map[string]any, opts ...MergeOption) map[string]any {
	cfg := mergeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return mergeDocument(defaults, overrides, nil, cfg)
}

// Fold applies each override document in order, weakest first.
func Fold(defaults map[string]any, overrides []map[string]any, opts ...MergeOption) map[string]any {
	merged := StripMetadata(defaults)
	for _, doc := range overrides {
		merged = MergeOverrides(merged, doc, opts...)
	}
	return merged
}

func mergeDocument(base, patch map[string]any, path []string, cfg mergeConfig) map[string]any {
	out := StripMetadata(base)
	for key, value := range patch {
		if key == GroupsKey {
			continue
		}
		childPath := appendPath(path, key)
		nested, isMap := value.(map[string]any)
		if !isMap || (cfg.wholesale != nil && cfg.wholesale(childPath)) {
			out[key] = stripValue(value)
			continue
		}
		existing, _ := out[key].(map[string]any)
		out[key] = mergeDocument(existing, nested, childPath, cfg)
	}
	return out
}

// GroupPaths lists the dotted paths recorded as group boundaries in doc.
func GroupPaths(doc map[string]any) [][]string {
	var out [][]string
	collectGroups(doc, nil, &out)
	return out
}

func collectGroups(doc map[string]any, path []string, out *[][]string) {
	for _, key := range groupKeys(doc[GroupsKey]) {
		*out = append(*out, appendPath(path, key))
	}
	for key, value := range doc {
		if nested, ok := value.(map[string]any); ok && key != GroupsKey {
			collectGroups(nested, appendPath(path, key), out)
		}
	}
}

func groupKeys(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if key, ok := item.(string); ok {
				out = append(out, key)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of doc. Nil stays nil.
func Clone(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		out[key] = CloneValue(value)
	}
	return out
}

// CloneValue deep copies mappings and slices held in value.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return Clone(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return value
	}
}

// StripMetadata returns a deep copy of doc without metadata keys. The result
// is never nil.
func StripMetadata(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		if key == GroupsKey {
			continue
		}
		out[key] = stripValue(value)
	}
	return out
}

func stripValue(value any) any {
	if nested, ok := value.(map[string]any); ok {
		return StripMetadata(nested)
	}
	return CloneValue(value)
}

func appendPath(path []string, key string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, key)
}
