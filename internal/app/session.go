package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"smart-quiz-service/internal/domain"
)

// DefaultIdleTimeout is how long an in-progress session may sit idle before
// a sweep abandons it.
const DefaultIdleTimeout = time.Hour

// DefaultQuestionCount is used when a caller does not specify how many
// questions a session should hold.
const DefaultQuestionCount = 10

// Session is one user's single quiz attempt. It holds an immutable snapshot
// of its questions, fixed at creation: later edits to stored questions never
// alter an in-flight session. Operations are expected under single-writer
// discipline; the mutex guards against accidental concurrent use.
type Session struct {
	mu           sync.Mutex
	token        string
	userName     string
	age          int
	categoryID   int64
	questions    []domain.Question
	answers      []string
	state        domain.SessionState
	startedAt    time.Time
	lastActivity time.Time
	now          func() time.Time
}

// Engine governs the quiz-session lifecycle. It runs no background timers;
// expiry is caller-driven via IsExpired and SweepExpired.
type Engine struct {
	store         Store
	registry      SessionRegistry
	idleTimeout   time.Duration
	questionCount int
	now           func() time.Time
	newToken      func() string
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithIdleTimeout overrides the default idle timeout.
func WithIdleTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.idleTimeout = d }
}

// WithQuestionCount overrides the default question count per session.
func WithQuestionCount(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.questionCount = n
		}
	}
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, registry SessionRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		store:         store,
		registry:      registry,
		idleTimeout:   DefaultIdleTimeout,
		questionCount: DefaultQuestionCount,
		now:           time.Now,
		newToken:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start fetches up to questionCount questions for the category, fixes the
// ordered snapshot, and returns a new in-progress session. Question order is
// the stable order returned by the store; no shuffling.
func (e *Engine) Start(ctx context.Context, userName string, age int, categoryID int64, questionCount int) (*Session, error) {
	if userName == "" {
		return nil, fmt.Errorf("%w: user name is required", domain.ErrValidation)
	}
	if age != 0 && (age < 1 || age > 120) {
		return nil, fmt.Errorf("%w: age must be between 1 and 120", domain.ErrValidation)
	}
	if questionCount <= 0 {
		questionCount = e.questionCount
	}

	if _, err := e.store.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	questions, err := e.store.ListQuestions(ctx, categoryID, questionCount)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: category %d has no questions", domain.ErrNotFound, categoryID)
	}

	now := e.now()
	session := &Session{
		token:        e.newToken(),
		userName:     userName,
		age:          age,
		categoryID:   categoryID,
		questions:    questions,
		answers:      make([]string, 0, len(questions)),
		state:        domain.StateInProgress,
		startedAt:    now,
		lastActivity: now,
		now:          e.now,
	}
	e.registry.Put(session)
	return session, nil
}

// Lookup finds an in-flight session by its token.
func (e *Engine) Lookup(token string) (*Session, error) {
	session, ok := e.registry.Get(token)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, token)
	}
	return session, nil
}

// SubmitAnswer appends one answer letter and advances the session. The last
// answer does not complete the session; the caller invokes Complete.
func (e *Engine) SubmitAnswer(s *Session, letter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return fmt.Errorf("%w: cannot answer in state %s", domain.ErrInvalidState, s.state)
	}
	if !domain.ValidAnswerLetter(letter) {
		return fmt.Errorf("%w: answer must be one of A, B, C, D", domain.ErrValidation)
	}
	if len(s.answers) >= len(s.questions) {
		return fmt.Errorf("%w: all %d questions already answered", domain.ErrValidation, len(s.questions))
	}
	s.answers = append(s.answers, letter)
	s.lastActivity = e.now()
	return nil
}

// Complete scores the session, persists the result exactly once, and moves
// the session to its terminal state. Calling it again fails rather than
// double-inserting.
func (e *Engine) Complete(ctx context.Context, s *Session) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return domain.Result{}, fmt.Errorf("%w: session already %s", domain.ErrInvalidState, s.state)
	}
	if len(s.answers) != len(s.questions) {
		return domain.Result{}, fmt.Errorf("%w: %d of %d questions answered", domain.ErrInvalidState, len(s.answers), len(s.questions))
	}

	scorePct, correct, wrong, err := Score(s.questions, s.answers)
	if err != nil {
		return domain.Result{}, err
	}

	now := e.now()
	result := domain.Result{
		UserName:         s.userName,
		Age:              s.age,
		CategoryID:       s.categoryID,
		Score:            scorePct,
		CorrectCount:     correct,
		WrongCount:       wrong,
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: int(now.Sub(s.startedAt) / time.Second),
		CompletedAt:      now,
	}
	persisted, err := e.store.InsertResult(ctx, result)
	if err != nil {
		return domain.Result{}, err
	}

	s.state = domain.StateCompleted
	e.registry.Delete(s.token)
	return persisted, nil
}

// Abandon moves an in-progress session to Abandoned. No result is persisted.
func (e *Engine) Abandon(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return fmt.Errorf("%w: session already %s", domain.ErrInvalidState, s.state)
	}
	s.state = domain.StateAbandoned
	e.registry.Delete(s.token)
	return nil
}

// IsExpired reports whether an in-progress session has been idle past the
// engine's timeout as of now.
func (e *Engine) IsExpired(s *Session, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == domain.StateInProgress && now.Sub(s.lastActivity) > e.idleTimeout
}

// SweepExpired abandons every expired session and returns how many were
// swept. Callers poll this; the engine never schedules it.
func (e *Engine) SweepExpired(now time.Time) int {
	swept := 0
	for _, session := range e.registry.All() {
		if e.IsExpired(session, now) {
			if err := e.Abandon(session); err == nil {
				swept++
			}
		}
	}
	return swept
}

// Token returns the session's opaque unique token.
func (s *Session) Token() string { return s.token }

// UserName returns the session owner's name.
func (s *Session) UserName() string { return s.userName }

// CategoryID returns the category the session draws from.
func (s *Session) CategoryID() int64 { return s.categoryID }

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns (answered, total).
func (s *Session) Progress() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers), len(s.questions)
}

// CurrentQuestion returns the next unanswered question, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[len(s.answers)], true
}

// Questions returns a copy of the immutable question snapshot.
func (s *Session) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }
