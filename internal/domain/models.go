package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the optional question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known levels. Empty means unset.
func (d Difficulty) Valid() bool {
	switch d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// SessionState is the lifecycle state of a quiz attempt.
type SessionState string

const (
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
	StateAbandoned  SessionState = "abandoned"
)

// Category groups questions. Name is unique across categories.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Question is a four-option MCQ with exactly one correct letter.
type Question struct {
	ID            int64      `json:"id"`
	CategoryID    int64      `json:"categoryId"`
	Text          string     `json:"text"`
	OptionA       string     `json:"optionA"`
	OptionB       string     `json:"optionB"`
	OptionC       string     `json:"optionC"`
	OptionD       string     `json:"optionD"`
	CorrectAnswer string     `json:"correctAnswer"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
}

// Option returns the option text for a letter, or "" for an unknown letter.
func (q Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// Result is the immutable record of one completed quiz attempt.
type Result struct {
	ID               int64     `json:"id"`
	UserName         string    `json:"userName"`
	Age              int       `json:"age,omitempty"` // 0 means not provided
	CategoryID       int64     `json:"categoryId"`
	Score            int       `json:"score"` // 0-100 percentage
	CorrectCount     int       `json:"correctCount"`
	WrongCount       int       `json:"wrongCount"`
	TotalQuestions   int       `json:"totalQuestions"`
	TimeTakenSeconds int       `json:"timeTakenSeconds,omitempty"`
	CompletedAt      time.Time `json:"completedAt"`
}

// ResultFilter narrows ListResults. Zero values mean "no filter".
type ResultFilter struct {
	CategoryID int64
	UserName   string
	Since      time.Time
	Limit      int
}

// RowError records one failed import row, 1-based.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportOutcome reports partial success of a bulk import. It is returned to
// the caller and never persisted.
type ImportOutcome struct {
	TotalRows         int        `json:"totalRows"`
	SuccessfulImports int        `json:"successfulImports"`
	FailedImports     int        `json:"failedImports"`
	Errors            []RowError `json:"errors,omitempty"`
	CreatedIDs        []int64    `json:"createdIds,omitempty"`
}

// ScoreBucket is one fixed range of the score distribution histogram.
type ScoreBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// CategoryAnalytics is recomputed on demand from Result rows.
type CategoryAnalytics struct {
	CategoryID        int64         `json:"categoryId,omitempty"` // 0 when aggregated over all categories
	CategoryName      string        `json:"categoryName,omitempty"`
	TotalAttempts     int           `json:"totalAttempts"`
	AverageScore      float64       `json:"averageScore"`
	BestScore         int           `json:"bestScore"`
	WorstScore        int           `json:"worstScore"`
	RecentScores      []int         `json:"recentScores"`
	ScoreDistribution []ScoreBucket `json:"scoreDistribution"`
}

// DailyScore is one calendar-day bucket of a user's results.
type DailyScore struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	AverageScore float64 `json:"averageScore"`
	Attempts     int     `json:"attempts"`
}

// PerformanceTrend classifies a user's score trajectory over a trailing window.
type PerformanceTrend struct {
	UserName       string       `json:"userName"`
	PeriodDays     int          `json:"periodDays"`
	Daily          []DailyScore `json:"daily"`
	TrendDirection string       `json:"trendDirection"` // improving | declining | stable
	AverageScore   float64      `json:"averageScore"`
	TotalAttempts  int          `json:"totalAttempts"`
}

// ValidateCategory checks the name/description limits.
func ValidateCategory(c Category) error {
	name := strings.TrimSpace(c.Name)
	if name == "" || len(name) > 100 {
		return fmt.Errorf("%w: category name must be 1-100 characters", ErrValidation)
	}
	if len(c.Description) > 500 {
		return fmt.Errorf("%w: category description must be at most 500 characters", ErrValidation)
	}
	return nil
}

// ValidateQuestion checks field presence, length limits, and enums.
func ValidateQuestion(q Question) error {
	if q.CategoryID <= 0 {
		return fmt.Errorf("%w: question requires a category", ErrValidation)
	}
	text := strings.TrimSpace(q.Text)
	if text == "" || len(text) > 1000 {
		return fmt.Errorf("%w: question text must be 1-1000 characters", ErrValidation)
	}
	for letter, opt := range map[string]string{"a": q.OptionA, "b": q.OptionB, "c": q.OptionC, "d": q.OptionD} {
		if strings.TrimSpace(opt) == "" || len(opt) > 500 {
			return fmt.Errorf("%w: option_%s must be 1-500 characters", ErrValidation, letter)
		}
	}
	if !ValidAnswerLetter(q.CorrectAnswer) {
		return fmt.Errorf("%w: correct_answer must be one of A, B, C, D", ErrValidation)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("%w: difficulty must be easy, medium, or hard", ErrValidation)
	}
	return nil
}

// ValidAnswerLetter reports whether s is exactly one of A, B, C, D.
func ValidAnswerLetter(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	}
	return false
}
