package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"smart-quiz-service/internal/domain"
)

// Store is the Postgres implementation of app.Store, on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SQLSTATE classes that map onto the domain taxonomy.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// mapError folds driver errors into the domain taxonomy. Anything that looks
// like an unreachable server is ErrConnectivity so callers treat it as fatal
// for the current operation.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrConstraint, op, pgErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrConnectivity, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if err := domain.ValidateCategory(c); err != nil {
		return domain.Category{}, err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Description).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Category{}, mapError("create category", err)
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Category{}, mapError(fmt.Sprintf("get category %d", id), err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories ORDER BY id
	`)
	if err != nil {
		return nil, mapError("list categories", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, mapError("scan category", err)
		}
		out = append(out, c)
	}
	return out, mapError("list categories", rows.Err())
}

func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if err := domain.ValidateCategory(c); err != nil {
		return domain.Category{}, err
	}
	err := s.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at
	`, c.ID, c.Name, c.Description).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Category{}, mapError(fmt.Sprintf("update category %d", c.ID), err)
	}
	return c, nil
}

// DeleteCategory relies on ON DELETE CASCADE to drop the category's questions.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Sprintf("delete category %d", id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO questions (category_id, question_text, option_a, option_b, option_c, option_d, correct_answer, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING id
	`, q.CategoryID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, string(q.Difficulty)).Scan(&q.ID)
	if err != nil {
		return domain.Question{}, mapError("create question", err)
	}
	return q, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	q, err := s.scanQuestion(s.pool.QueryRow(ctx, `
		SELECT id, category_id, question_text, option_a, option_b, option_c, option_d, correct_answer, COALESCE(difficulty, '')
		FROM questions WHERE id = $1
	`, id))
	if err != nil {
		return domain.Question{}, mapError(fmt.Sprintf("get question %d", id), err)
	}
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, categoryID int64, limit int) ([]domain.Question, error) {
	query := `
		SELECT id, category_id, question_text, option_a, option_b, option_c, option_d, correct_answer, COALESCE(difficulty, '')
		FROM questions WHERE category_id = $1 ORDER BY id
	`
	args := []interface{}{categoryID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list questions", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := s.scanQuestion(rows)
		if err != nil {
			return nil, mapError("scan question", err)
		}
		out = append(out, q)
	}
	return out, mapError("list questions", rows.Err())
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE questions
		SET category_id = $2, question_text = $3, option_a = $4, option_b = $5,
		    option_c = $6, option_d = $7, correct_answer = $8, difficulty = NULLIF($9, '')
		WHERE id = $1
	`, q.ID, q.CategoryID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, string(q.Difficulty))
	if err != nil {
		return domain.Question{}, mapError(fmt.Sprintf("update question %d", q.ID), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Question{}, fmt.Errorf("%w: question %d", domain.ErrNotFound, q.ID)
	}
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Sprintf("delete question %d", id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: question %d", domain.ErrNotFound, id)
	}
	return nil
}

func (s *Store) InsertResult(ctx context.Context, r domain.Result) (domain.Result, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO results (user_name, age, category_id, score, correct_count, wrong_count, total_questions, time_taken_seconds, completed_at)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.UserName, r.Age, r.CategoryID, r.Score, r.CorrectCount, r.WrongCount, r.TotalQuestions, r.TimeTakenSeconds, r.CompletedAt).Scan(&r.ID)
	if err != nil {
		return domain.Result{}, mapError("insert result", err)
	}
	return r, nil
}

func (s *Store) ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.Result, error) {
	query := `
		SELECT id, user_name, COALESCE(age, 0), category_id, score, correct_count, wrong_count, total_questions, COALESCE(time_taken_seconds, 0), completed_at
		FROM results WHERE 1=1
	`
	var args []interface{}
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		query += fmt.Sprintf(` AND category_id = $%d`, len(args))
	}
	if f.UserName != "" {
		args = append(args, f.UserName)
		query += fmt.Sprintf(` AND user_name = $%d`, len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(` AND completed_at >= $%d`, len(args))
	}
	query += ` ORDER BY completed_at, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list results", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.UserName, &r.Age, &r.CategoryID, &r.Score, &r.CorrectCount, &r.WrongCount, &r.TotalQuestions, &r.TimeTakenSeconds, &r.CompletedAt); err != nil {
			return nil, mapError("scan result", err)
		}
		out = append(out, r)
	}
	return out, mapError("list results", rows.Err())
}

func (s *Store) scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var difficulty string
	err := row.Scan(&q.ID, &q.CategoryID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &difficulty)
	if err != nil {
		return domain.Question{}, err
	}
	q.Difficulty = domain.Difficulty(difficulty)
	return q, nil
}
