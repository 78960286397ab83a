package coursework

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("course item not found")
	ErrInvalidItem = errors.New("invalid course item")
)

type ListOpts struct {
	StudentID string // filter by student
	CourseID  string // filter by course
	Status    Status // optional
	Limit     int
	Offset    int
}

type Store interface {
	// UpsertItem replaces the item, including its attempts when any are given.
	// Without attempts the stored ones are kept and the counters follow them.
	UpsertItem(ctx context.Context, it CourseItem) (CourseItem, error)
	GetItem(ctx context.Context, id string) (CourseItem, error)
	ListItems(ctx context.Context, opts ListOpts) ([]CourseItem, error)
	// RecordAttempt appends the next attempt, grading questions that carry no verdict.
	RecordAttempt(ctx context.Context, itemID string, a Attempt) (CourseItem, error)
	ListCourses(ctx context.Context, studentID string) ([]string, error)
}
