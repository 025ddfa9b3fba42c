package settings

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds the node for one descriptor.
type Factory func(ctx BuildContext, desc Descriptor) (Node, error)

// Registry maps descriptor type tags to factories. It is populated before
// the first tree build and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	frozen    bool
}

// NewRegistry returns an empty registry. Use RegisterBuiltins to add the
// standard node types.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry holding the built-in
// types. Custom types must be registered before the first Build.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		if err := RegisterBuiltins(defaultRegistry); err != nil {
			panic(err)
		}
	})
	return defaultRegistry
}

// Register adds a factory for tag.
func (r *Registry) Register(tag string, factory Factory) error {
	if tag == "" || factory == nil {
		return fmt.Errorf("%w: tag and factory are required", ErrInvalidSchema)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register %q", ErrRegistryFrozen, tag)
	}
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, tag)
	}
	r.factories[tag] = factory
	return nil
}

// Lookup returns the factory registered for tag.
func (r *Registry) Lookup(tag string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	return factory, nil
}

// Freeze rejects further registrations. Build freezes the registry it uses.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the registry accepts registrations.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Types lists the registered tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// RegisterBuiltins adds the standard value, collection and group types.
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]Factory{
		"boolean": valueFactory(func(Descriptor) valueCodec { return boolCodec{} }),
		"integer": valueFactory(func(desc Descriptor) valueCodec {
			return integerCodec{minimum: desc.Minimum, maximum: desc.Maximum}
		}),
		"float": valueFactory(func(desc Descriptor) valueCodec {
			decimals := defaultDecimals
			if desc.Decimals != nil {
				decimals = *desc.Decimals
			}
			return floatCodec{minimum: desc.Minimum, maximum: desc.Maximum, decimals: decimals}
		}),
		"text": valueFactory(func(desc Descriptor) valueCodec {
			return textCodec{multiline: desc.Multiline}
		}),
		"raw-json":    valueFactory(func(Descriptor) valueCodec { return jsonCodec{} }),
		"string-list": valueFactory(func(Descriptor) valueCodec { return stringListCodec{} }),
		"list": func(ctx BuildContext, desc Descriptor) (Node, error) {
			return newCollectionNode(ctx, desc, listRows)
		},
		"dict-modifiable": func(ctx BuildContext, desc Descriptor) (Node, error) {
			return newCollectionNode(ctx, desc, dictRows)
		},
		"dict": func(ctx BuildContext, desc Descriptor) (Node, error) {
			return newGroupNode(ctx, desc, false)
		},
		"dict-form": func(ctx BuildContext, desc Descriptor) (Node, error) {
			return newGroupNode(ctx, desc, true)
		},
	}
	tags := make([]string, 0, len(builtins))
	for tag := range builtins {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		if err := r.Register(tag, builtins[tag]); err != nil {
			return err
		}
	}
	return nil
}

func valueFactory(codec func(Descriptor) valueCodec) Factory {
	return func(ctx BuildContext, desc Descriptor) (Node, error) {
		return newValueNode(ctx, desc, codec(desc))
	}
}
