package app

import (
	"context"

	"smart-quiz-service/internal/domain"
)

// Store abstracts the relational content store (in-memory, Postgres).
// Implementations return domain.ErrNotFound, domain.ErrConstraint, or
// domain.ErrConnectivity as appropriate.
type Store interface {
	CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error)
	// DeleteCategory cascades to the category's questions.
	DeleteCategory(ctx context.Context, id int64) error

	CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	// ListQuestions returns questions for a category in stable store order.
	// limit <= 0 means no limit.
	ListQuestions(ctx context.Context, categoryID int64, limit int) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error

	InsertResult(ctx context.Context, r domain.Result) (domain.Result, error)
	ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.Result, error)
}

// SessionRegistry abstracts how in-flight sessions are tracked (in-memory,
// Redis-backed liveness).
type SessionRegistry interface {
	Put(s *Session)
	Get(token string) (*Session, bool)
	Delete(token string)
	All() []*Session
}
