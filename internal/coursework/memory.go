package coursework

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/studycoach/internal/grading"
)

type memoryStore struct {
	mu     sync.RWMutex
	items  map[string]CourseItem
	order  []string
	grader grading.Grader
	now    func() time.Time
}

// NewInMemoryStore keeps items in process memory; used in tests.
func NewInMemoryStore(g grading.Grader) Store {
	return &memoryStore{
		items:  map[string]CourseItem{},
		grader: g,
		now:    time.Now,
	}
}

func (m *memoryStore) UpsertItem(ctx context.Context, it CourseItem) (CourseItem, error) {
	if err := validateItem(it); err != nil {
		return CourseItem{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it = cloneItem(it)
	for i := range it.Attempts {
		if err := gradeQuestions(ctx, m.grader, it.Attempts[i].Questions); err != nil {
			return CourseItem{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.items[it.ID]
	if !ok {
		m.order = append(m.order, it.ID)
	} else if len(it.Attempts) == 0 {
		it.Attempts = cloneItem(prev).Attempts
	}
	normalizeAttempts(&it)
	m.items[it.ID] = it
	return cloneItem(it), nil
}

func (m *memoryStore) GetItem(_ context.Context, id string) (CourseItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return CourseItem{}, ErrNotFound
	}
	return cloneItem(it), nil
}

func (m *memoryStore) ListItems(_ context.Context, opts ListOpts) ([]CourseItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []CourseItem{}
	skipped := 0
	for _, id := range m.order {
		it := m.items[id]
		if opts.StudentID != "" && it.StudentID != opts.StudentID {
			continue
		}
		if opts.CourseID != "" && it.CourseID != opts.CourseID {
			continue
		}
		if opts.Status != "" && it.Status != opts.Status {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, cloneItem(it))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) RecordAttempt(ctx context.Context, itemID string, a Attempt) (CourseItem, error) {
	if err := gradeQuestions(ctx, m.grader, a.Questions); err != nil {
		return CourseItem{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return CourseItem{}, ErrNotFound
	}
	next := 0
	for _, prev := range it.Attempts {
		next = max(next, prev.AttemptNo)
	}
	a.AttemptNo = next + 1
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = m.now().UTC()
	}
	it.Attempts = append(it.Attempts, a)
	it.AttemptCount++
	it.Status = StatusSubmitted
	if a.Score != nil {
		s := *a.Score
		it.LatestScore = &s
		it.Status = StatusGraded
	}
	it = cloneItem(it)
	m.items[itemID] = it
	return cloneItem(it), nil
}

func (m *memoryStore) ListCourses(_ context.Context, studentID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, it := range m.items {
		if it.StudentID != studentID {
			continue
		}
		if _, ok := seen[it.CourseID]; ok {
			continue
		}
		seen[it.CourseID] = struct{}{}
		out = append(out, it.CourseID)
	}
	sort.Strings(out)
	return out, nil
}

func cloneItem(it CourseItem) CourseItem {
	if it.LatestScore != nil {
		s := *it.LatestScore
		it.LatestScore = &s
	}
	if it.DueDate != nil {
		d := *it.DueDate
		it.DueDate = &d
	}
	attempts := make([]Attempt, len(it.Attempts))
	for i, a := range it.Attempts {
		if a.Score != nil {
			s := *a.Score
			a.Score = &s
		}
		if a.Submission != nil {
			sub := *a.Submission
			a.Submission = &sub
		}
		qs := make([]Question, len(a.Questions))
		copy(qs, a.Questions)
		for j := range qs {
			if qs[j].IsCorrect != nil {
				v := *qs[j].IsCorrect
				qs[j].IsCorrect = &v
			}
		}
		if a.Questions == nil {
			qs = nil
		}
		a.Questions = qs
		attempts[i] = a
	}
	it.Attempts = attempts
	return it
}
