package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store, used by unit tests and
// the no-database demo mode. It enforces the same uniqueness and referential
// invariants as the Postgres adapter.
type Store struct {
	mu         sync.RWMutex
	categories map[int64]domain.Category
	questions  map[int64]domain.Question
	results    map[int64]domain.Result
	nextID     int64
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		categories: make(map[int64]domain.Category),
		questions:  make(map[int64]domain.Question),
		results:    make(map[int64]domain.Result),
		now:        time.Now,
	}
}

// NewStoreWithClock is test-only for deterministic timestamps.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

func (s *Store) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateCategory(_ context.Context, c domain.Category) (domain.Category, error) {
	if err := domain.ValidateCategory(c); err != nil {
		return domain.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return domain.Category{}, fmt.Errorf("%w: category name %q already exists", domain.ErrConstraint, c.Name)
		}
	}
	c.ID = s.nextIDLocked()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for id := int64(1); id <= s.nextID; id++ {
		if c, ok := s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c domain.Category) (domain.Category, error) {
	if err := domain.ValidateCategory(c); err != nil {
		return domain.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: category %d", domain.ErrNotFound, c.ID)
	}
	for id, other := range s.categories {
		if id != c.ID && other.Name == c.Name {
			return domain.Category{}, fmt.Errorf("%w: category name %q already exists", domain.ErrConstraint, c.Name)
		}
	}
	existing.Name = c.Name
	existing.Description = c.Description
	existing.UpdatedAt = s.now()
	s.categories[c.ID] = existing
	return existing, nil
}

// DeleteCategory cascades to the category's questions.
func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	delete(s.categories, id)
	for qid, q := range s.questions {
		if q.CategoryID == id {
			delete(s.questions, qid)
		}
	}
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[q.CategoryID]; !ok {
		return domain.Question{}, fmt.Errorf("%w: question references missing category %d", domain.ErrConstraint, q.CategoryID)
	}
	q.ID = s.nextIDLocked()
	s.questions[q.ID] = q
	return q, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	return q, nil
}

func (s *Store) ListQuestions(_ context.Context, categoryID int64, limit int) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Question
	for id := int64(1); id <= s.nextID; id++ {
		q, ok := s.questions[id]
		if !ok || q.CategoryID != categoryID {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[q.ID]; !ok {
		return domain.Question{}, fmt.Errorf("%w: question %d", domain.ErrNotFound, q.ID)
	}
	if _, ok := s.categories[q.CategoryID]; !ok {
		return domain.Question{}, fmt.Errorf("%w: question references missing category %d", domain.ErrConstraint, q.CategoryID)
	}
	s.questions[q.ID] = q
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) InsertResult(_ context.Context, r domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[r.CategoryID]; !ok {
		return domain.Result{}, fmt.Errorf("%w: result references missing category %d", domain.ErrConstraint, r.CategoryID)
	}
	r.ID = s.nextIDLocked()
	if r.CompletedAt.IsZero() {
		r.CompletedAt = s.now()
	}
	s.results[r.ID] = r
	return r, nil
}

func (s *Store) ListResults(_ context.Context, f domain.ResultFilter) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Result
	for id := int64(1); id <= s.nextID; id++ {
		r, ok := s.results[id]
		if !ok {
			continue
		}
		if f.CategoryID != 0 && r.CategoryID != f.CategoryID {
			continue
		}
		if f.UserName != "" && r.UserName != f.UserName {
			continue
		}
		if !f.Since.IsZero() && r.CompletedAt.Before(f.Since) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
