package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	settings "github.com/goliatone/go-settings"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrInvalidRef = errors.New("state: invalid ref")

// Ref identifies one persisted settings document.
type Ref struct {
	Domain string
	// Project selects the project override document. Empty refers to the
	// studio values.
	Project string
}

// Studio returns the ref of the studio values for the same domain.
func (r Ref) Studio() Ref {
	return Ref{Domain: r.Domain}
}

// IsProject reports whether the ref addresses project overrides.
func (r Ref) IsProject() bool {
	return strings.TrimSpace(r.Project) != ""
}

// Identifier returns the canonical storage key of the ref.
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	if domain == "" {
		return "", fmt.Errorf("%w: domain is required", ErrInvalidRef)
	}
	if strings.Contains(domain, "..") || strings.Contains(r.Project, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, r.Domain+"/"+r.Project)
	}
	if !r.IsProject() {
		return fmt.Sprintf("studio/%s", domain), nil
	}
	return fmt.Sprintf("project/%s/%s", strings.TrimSpace(r.Project), domain), nil
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Store loads/saves one document for a single ref. Save assigns a fresh
// snapshot id and etag.
type Store interface {
	Load(ctx context.Context, ref Ref) (doc settings.Document, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, doc settings.Document, meta Meta) (Meta, error)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
