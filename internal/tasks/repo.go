package tasks

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Repository is the storage contract for tasks. Lookups by id report
// absence through the boolean result rather than an error.
type Repository interface {
	Create(ctx context.Context, in CreateTask) (Task, error)
	FindAll(ctx context.Context, completed *bool) ([]Task, error)
	FindByID(ctx context.Context, id int64) (Task, bool, error)
	Update(ctx context.Context, id int64, patch UpdateTask) (Task, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// InMemoryRepo keeps tasks in a map. Ids are never reused after delete.
type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, in CreateTask) (Task, error) {
	if in.Title == "" {
		return Task{}, ErrTitleRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t := cloneTask(Task{
		ID:          r.seq,
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed.Value,
	})
	r.store[t.ID] = t
	return cloneTask(t), nil
}

func (r *InMemoryRepo) FindAll(_ context.Context, completed *bool) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		if completed != nil && t.Completed != *completed {
			continue
		}
		out = append(out, cloneTask(t))
	}
	slices.SortFunc(out, func(a, b Task) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *InMemoryRepo) FindByID(_ context.Context, id int64) (Task, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, false, nil
	}
	return cloneTask(t), true, nil
}

func (r *InMemoryRepo) Update(_ context.Context, id int64, patch UpdateTask) (Task, bool, error) {
	if err := patch.check(); err != nil {
		return Task{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, false, nil
	}
	t = cloneTask(patch.apply(t))
	r.store[id] = t
	return cloneTask(t), true, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return false, nil
	}
	delete(r.store, id)
	return true, nil
}
