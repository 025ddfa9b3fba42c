package layering

import (
	"fmt"
	"slices"
	"strings"
)

// Level identifies the precedence of a layer. Higher levels override lower
// levels when resolving.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelDefaults represents the schema defaults.
	LevelDefaults
	// LevelStudio represents studio-wide values saved over the defaults.
	LevelStudio
	// LevelProject represents the sparse overrides of one project.
	LevelProject
)

func (l Level) String() string {
	switch l {
	case LevelDefaults:
		return "defaults"
	case LevelStudio:
		return "studio"
	case LevelProject:
		return "project"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string representation into the corresponding Level.
// Returns LevelUnknown for unrecognised values.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "defaults":
		return LevelDefaults
	case "studio":
		return LevelStudio
	case "project":
		return LevelProject
	default:
		return LevelUnknown
	}
}

// Layer is one document of a resolution chain.
type Layer struct {
	Level Level
	// Name distinguishes peers at the same level, e.g. the project name.
	Name     string
	Document map[string]any
}

// Identifier returns a stable slug for the layer ("project/shot-010").
func (l Layer) Identifier() string {
	if l.Name == "" {
		return l.Level.String()
	}
	return fmt.Sprintf("%s/%s", l.Level, l.Name)
}

// Chain is an ordered layering sequence.
type Chain struct {
	ordered []Layer
}

// NewChain constructs a chain and deduplicates layers using their
// Identifier. The resulting order always places stronger levels before weaker
// ones while keeping relative ordering for peers.
func NewChain(layers ...Layer) Chain {
	filtered := make([]Layer, 0, len(layers))
	seen := map[string]struct{}{}

	for _, layer := range layers {
		if layer.Level == LevelUnknown {
			continue
		}
		id := layer.Identifier()
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, layer)
	}

	slices.SortStableFunc(filtered, func(a, b Layer) int {
		if a.Level == b.Level {
			return 0
		}
		if a.Level > b.Level {
			return -1
		}
		return 1
	})

	return Chain{ordered: filtered}
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain) Ordered() []Layer {
	out := make([]Layer, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Strongest returns the first layer in the chain (zero layer if empty).
func (c Chain) Strongest() Layer {
	if len(c.ordered) == 0 {
		return Layer{}
	}
	return c.ordered[0]
}

// Weakest returns the final layer in the chain (zero layer if empty).
func (c Chain) Weakest() Layer {
	if len(c.ordered) == 0 {
		return Layer{}
	}
	return c.ordered[len(c.ordered)-1]
}

// Resolve folds the chain from weakest to strongest into one document.
func (c Chain) Resolve(opts ...MergeOption) map[string]any {
	if len(c.ordered) == 0 {
		return map[string]any{}
	}
	weakest := c.ordered[len(c.ordered)-1]
	overrides := make([]map[string]any, 0, len(c.ordered)-1)
	for i := len(c.ordered) - 2; i >= 0; i-- {
		overrides = append(overrides, c.ordered[i].Document)
	}
	return Fold(weakest.Document, overrides, opts...)
}

// Resolve is shorthand for NewChain(layers...).Resolve().
func Resolve(layers []Layer, opts ...MergeOption) map[string]any {
	return NewChain(layers...).Resolve(opts...)
}
