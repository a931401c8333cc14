package tasks

import (
	"errors"
	"fmt"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrInvalidPatch  = errors.New("invalid patch")
)

// CreateTask is the input contract for creating a task. An absent
// completed defaults to false; an explicit null is rejected.
type CreateTask struct {
	Title       string         `json:"title" validate:"required"`
	Description *string        `json:"description"`
	Completed   Optional[bool] `json:"completed"`
}

// UpdateTask is a sparse patch: only fields that are Set are applied.
// Description may be set to null; title and completed may not.
type UpdateTask struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Completed   Optional[bool]   `json:"completed"`
}

// Empty reports whether the patch carries no fields.
func (p UpdateTask) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set
}

func (p UpdateTask) check() error {
	if p.Title.Set && (p.Title.Null || p.Title.Value == "") {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, ErrTitleRequired)
	}
	if p.Completed.Set && p.Completed.Null {
		return fmt.Errorf("%w: completed must not be null", ErrInvalidPatch)
	}
	return nil
}

// apply returns t with the patch's fields applied.
func (p UpdateTask) apply(t Task) Task {
	if p.Title.Set {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Ptr()
	}
	if p.Completed.Set {
		t.Completed = p.Completed.Value
	}
	return t
}

func cloneTask(t Task) Task {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	return t
}
