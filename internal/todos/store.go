package todos

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("todo not found")
	ErrDuplicateID = errors.New("todo id already exists")
)

// Store is the persistence boundary for todos. Implementations keep insertion
// order and serialise mutations.
type Store interface {
	ListAll(ctx context.Context) ([]Todo, error)
	GetByID(ctx context.Context, id string) (Todo, error)
	Append(ctx context.Context, t Todo) error
	ReplaceAll(ctx context.Context, all []Todo) error
	RemoveByID(ctx context.Context, id string) error
	// Update applies fn to the stored record under the store's write lock and
	// persists the result.
	Update(ctx context.Context, id string, fn func(*Todo)) (Todo, error)
}

func indexOf(all []Todo, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

func checkUnique(all []Todo) error {
	seen := make(map[string]struct{}, len(all))
	for _, t := range all {
		if _, ok := seen[t.ID]; ok {
			return ErrDuplicateID
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
