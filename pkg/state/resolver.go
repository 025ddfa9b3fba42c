package state

import (
	"context"
	"fmt"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/layering"
	"github.com/goliatone/go-settings/pkg/activity"
)

// Resolver opens settings trees over stored documents and saves them back.
type Resolver struct {
	Store Store
	// Options are passed to every settings.Build call.
	Options []settings.Option
}

func (r Resolver) validate(ref Ref) error {
	if r.Store == nil {
		return fmt.Errorf("state: store is required")
	}
	if ref.Domain == "" {
		return fmt.Errorf("state: domain is required")
	}
	return nil
}

// Open builds a tree for ref. Studio values are the tree defaults. For a
// project ref the tree is overridable and the stored project overrides are
// applied. The returned meta belongs to the document ref points at, and is
// what Commit expects back.
func (r Resolver) Open(ctx context.Context, ref Ref, schema settings.Descriptor) (*settings.Tree, Meta, error) {
	if err := r.validate(ref); err != nil {
		return nil, Meta{}, err
	}

	studio, studioMeta, _, err := r.Store.Load(ctx, ref.Studio())
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load studio %q: %w", ref.Domain, err)
	}

	meta := studioMeta
	var overrides settings.Document
	hasOverrides := false
	if ref.IsProject() {
		overrides, meta, hasOverrides, err = r.Store.Load(ctx, ref)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("state: load project %q for %q: %w", ref.Project, ref.Domain, err)
		}
	}

	opts := append([]settings.Option{}, r.Options...)
	opts = append(opts,
		settings.WithOverridable(ref.IsProject()),
		settings.WithTarget(activity.Target{Domain: ref.Domain, Project: ref.Project, SnapshotID: meta.SnapshotID}),
	)
	tree, err := settings.Build(schema, studio, opts...)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: build %q: %w", ref.Domain, err)
	}
	if hasOverrides {
		if err := tree.ApplyOverrides(overrides); err != nil {
			return nil, Meta{}, fmt.Errorf("state: apply overrides %q for %q: %w", ref.Project, ref.Domain, err)
		}
	}
	return tree, meta, nil
}

// Commit saves tree for ref: the sparse override document for projects and
// the full values document for the studio. When meta carries an etag it must
// match the stored one.
func (r Resolver) Commit(ctx context.Context, ref Ref, tree *settings.Tree, meta Meta) (Meta, error) {
	if err := r.validate(ref); err != nil {
		return Meta{}, err
	}
	if tree == nil {
		return Meta{}, fmt.Errorf("state: tree is required")
	}

	_, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Domain, err)
	}
	if !ok {
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	doc := tree.Values()
	if ref.IsProject() {
		doc = tree.Overrides()
	}
	saved, err := r.Store.Save(ctx, ref, doc, mergeMeta(loadedMeta, meta))
	if err != nil {
		return loadedMeta, fmt.Errorf("state: save %q: %w", ref.Domain, err)
	}
	return saved, nil
}

// Effective returns the values runtime consumers see for ref: schema
// defaults, then studio values, then project overrides. Value settings are
// replaced wholesale so dictionaries behave as in the editor.
func (r Resolver) Effective(ctx context.Context, ref Ref, schema settings.Descriptor) (settings.Document, error) {
	if err := r.validate(ref); err != nil {
		return nil, err
	}
	defaults, err := settings.Build(schema, nil, r.Options...)
	if err != nil {
		return nil, fmt.Errorf("state: build %q: %w", ref.Domain, err)
	}

	layers := []layering.Layer{{Level: layering.LevelDefaults, Document: defaults.Values()}}
	studio, _, ok, err := r.Store.Load(ctx, ref.Studio())
	if err != nil {
		return nil, fmt.Errorf("state: load studio %q: %w", ref.Domain, err)
	}
	if ok {
		layers = append(layers, layering.Layer{Level: layering.LevelStudio, Document: studio})
	}
	if ref.IsProject() {
		overrides, _, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("state: load project %q for %q: %w", ref.Project, ref.Domain, err)
		}
		if ok {
			layers = append(layers, layering.Layer{Level: layering.LevelProject, Name: ref.Project, Document: overrides})
		}
	}
	return layering.Resolve(layers, layering.WithWholesale(defaults.IsValuePath)), nil
}
