package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	settings "github.com/goliatone/go-settings"
	"gopkg.in/yaml.v3"
)

// FileStore keeps one YAML file per ref under Root, named after
// Ref.Identifier().
type FileStore struct {
	Root string

	mu  sync.Mutex
	now func() time.Time
}

type fileEnvelope struct {
	Meta     Meta              `yaml:"meta"`
	Document settings.Document `yaml:"document"`
}

// NewFileStore returns a store rooted at dir. The directory is created on the
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Root: dir, now: time.Now}
}

func (s *FileStore) path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(key)+".yaml"), nil
}

func (s *FileStore) Load(_ context.Context, ref Ref) (settings.Document, Meta, bool, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}
	s.mu.Lock()
	raw, err := os.ReadFile(path)
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: read %s: %w", path, err)
	}

	var envelope fileEnvelope
	if err := yaml.Unmarshal(raw, &envelope); err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: decode %s: %w", path, err)
	}
	if envelope.Document == nil {
		envelope.Document = settings.Document{}
	}
	return envelope.Document, envelope.Meta, true, nil
}

func (s *FileStore) Save(_ context.Context, ref Ref, doc settings.Document, meta Meta) (Meta, error) {
	path, err := s.path(ref)
	if err != nil {
		return Meta{}, err
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	saved := stamp(meta, now())
	if doc == nil {
		doc = settings.Document{}
	}
	raw, err := yaml.Marshal(fileEnvelope{Meta: saved, Document: doc})
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("state: create %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return Meta{}, fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Meta{}, fmt.Errorf("state: replace %s: %w", path, err)
	}
	return cloneMeta(saved), nil
}
