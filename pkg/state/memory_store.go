package state

import (
	"context"
	"sync"
	"time"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/layering"
	"github.com/google/uuid"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. It uses Ref.Identifier() as its deterministic key.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	doc  settings.Document
	meta Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (settings.Document, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return layering.Clone(record.doc), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, doc settings.Document, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	saved := stamp(meta, s.now())
	s.mu.Lock()
	s.records[key] = memoryRecord{doc: layering.Clone(doc), meta: cloneMeta(saved)}
	s.mu.Unlock()
	return cloneMeta(saved), nil
}

// stamp assigns the storage owned fields of a saved snapshot.
func stamp(meta Meta, now time.Time) Meta {
	out := cloneMeta(meta)
	out.SnapshotID = uuid.NewString()
	out.ETag = uuid.NewString()
	out.UpdatedAt = now.UTC()
	return out
}
