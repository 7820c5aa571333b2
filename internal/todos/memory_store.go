package todos

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.Mutex
	items []Todo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Todo, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	return s.items[i], nil
}

func (s *MemoryStore) Append(ctx context.Context, t Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.items, t.ID) >= 0 {
		return ErrDuplicateID
	}
	s.items = append(s.items, t)
	return nil
}

func (s *MemoryStore) ReplaceAll(ctx context.Context, all []Todo) error {
	if err := checkUnique(all); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]Todo, len(all))
	copy(s.items, all)
	return nil
}

func (s *MemoryStore) RemoveByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		return ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Todo)) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	t := s.items[i]
	fn(&t)
	t.ID = id
	s.items[i] = t
	return t, nil
}
