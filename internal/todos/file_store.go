package todos

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all todos as a single JSON array file. The file must exist
// before the first request; FileStore never creates it on read.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) ListAll(ctx context.Context) ([]Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) GetByID(ctx context.Context, id string) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return Todo{}, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	return all[i], nil
}

func (s *FileStore) Append(ctx context.Context, t Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(all, t.ID) >= 0 {
		return ErrDuplicateID
	}
	return s.save(append(all, t))
}

func (s *FileStore) ReplaceAll(ctx context.Context, all []Todo) error {
	if err := checkUnique(all); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(all)
}

func (s *FileStore) RemoveByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(all, id)
	if i < 0 {
		return ErrNotFound
	}
	return s.save(append(all[:i], all[i+1:]...))
}

func (s *FileStore) Update(ctx context.Context, id string, fn func(*Todo)) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return Todo{}, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	fn(&all[i])
	all[i].ID = id
	if err := s.save(all); err != nil {
		return Todo{}, err
	}
	return all[i], nil
}

func (s *FileStore) load() ([]Todo, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var all []Todo
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if all == nil {
		all = []Todo{}
	}
	return all, nil
}

// save writes to a sibling temp file and renames it over the store file.
func (s *FileStore) save(all []Todo) error {
	if all == nil {
		all = []Todo{}
	}
	b, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
