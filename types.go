package settings

import (
	"strings"
	"time"

	"github.com/goliatone/go-settings/layering"
)

// Document is a nested mapping from setting keys to values or nested
// documents. Stored values, override documents and collected values all share
// this shape.
type Document = map[string]any

// GroupsKey is the reserved metadata key listing which keys of an override
// mapping are independently overridden group boundaries.
const GroupsKey = layering.GroupsKey

// Kind tags the node variant.
type Kind int

const (
	// KindValue is a leaf holding one scalar or structured value.
	KindValue Kind = iota + 1
	// KindCollection is a dynamically sized list of homogeneous rows.
	KindCollection
	// KindGroup is a named container of child nodes.
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindCollection:
		return "collection"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Path is the ordered sequence of keys from the root to a node.
type Path []string

// ParsePath splits a dotted path ("general.studio_name") into segments.
func ParsePath(value string) Path {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return Path(strings.Split(value, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path extended by key. The receiver is never modified.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Listener is invoked after a node finished recomputing its state. The source
// is the node where the change originated.
type Listener func(source Node)

// Node is the contract shared by every node variant of a settings tree.
type Node interface {
	Key() string
	Label() string
	Path() Path
	Kind() Kind
	// IsGroup reports whether the node is an override boundary.
	IsGroup() bool

	ItemValue() any
	DefaultValue() any
	OverrideValue() any

	// ApplyOverrides pushes a persisted override value into the node. A nil
	// value clears any override state and restores defaults.
	ApplyOverrides(value any) error
	// Overrides returns the sparse override contribution of the node, or
	// false when neither the node nor any descendant carries an override.
	Overrides() (Override, bool)

	IsModified() bool
	IsOverridden() bool
	WasOverridden() bool
	ChildModified() bool
	ChildOverridden() bool
	IsInvalid() bool

	ResetValue()
	ClearValue()

	// SetOverridden marks the node as carrying an override without changing
	// its value. No-op unless the session is overridable.
	SetOverridden()
	// RemoveOverride drops the node override and restores defaults. No-op
	// unless the session is overridable.
	RemoveOverride()

	Subscribe(listener Listener)
}

// Override is the serialized contribution of one node.
type Override struct {
	Value   Document
	IsGroup bool
}

// Container is implemented by nodes that own child nodes addressable by key.
type Container interface {
	Node
	Children() []Node
}

// Descriptor is one node of the static schema.
type Descriptor struct {
	Type       string       `json:"type" yaml:"type"`
	Key        string       `json:"key,omitempty" yaml:"key,omitempty"`
	Label      string       `json:"label,omitempty" yaml:"label,omitempty"`
	IsGroup    bool         `json:"is_group,omitempty" yaml:"is_group,omitempty"`
	Children   []Descriptor `json:"children,omitempty" yaml:"children,omitempty"`
	Default    any          `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum    *float64     `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum    *float64     `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Decimals   *int         `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	Multiline  bool         `json:"multiline,omitempty" yaml:"multiline,omitempty"`
	ObjectType *Descriptor  `json:"object_type,omitempty" yaml:"object_type,omitempty"`
	Validate   string       `json:"validate,omitempty" yaml:"validate,omitempty"`
}

// RuleContext carries the inputs of a validation rule evaluation.
type RuleContext struct {
	Value    any
	Path     string
	Key      string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

// variables is the rule environment shared by every engine.
func (ctx RuleContext) variables() map[string]any {
	return map[string]any{
		"value":    ctx.Value,
		"path":     ctx.Path,
		"key":      ctx.Key,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
}

func (ctx RuleContext) label() string {
	if ctx.Path != "" {
		return ctx.Path
	}
	return "<row>"
}

// Evaluator executes validation rule expressions.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}
