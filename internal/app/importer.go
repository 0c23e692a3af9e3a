package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smart-quiz-service/internal/domain"
)

// DefaultMaxImportRows caps a single import batch.
const DefaultMaxImportRows = 1000

// RawRow is one tabular import row as a mapping of named fields.
type RawRow map[string]string

// requiredColumns must be present and non-empty on every row.
var requiredColumns = []string{"question_text", "option_a", "option_b", "option_c", "option_d", "correct_answer"}

// Importer validates tabular rows independently and persists the valid ones,
// reporting partial success. A single bad row never aborts the batch; only a
// connectivity-level store fault does.
type Importer struct {
	store   Store
	maxRows int
}

func NewImporter(store Store, maxRows int) *Importer {
	if maxRows <= 0 {
		maxRows = DefaultMaxImportRows
	}
	return &Importer{store: store, maxRows: maxRows}
}

// Import processes rows in order against the target category. The returned
// outcome always satisfies SuccessfulImports+FailedImports == TotalRows.
func (im *Importer) Import(ctx context.Context, categoryID int64, rows []RawRow) (domain.ImportOutcome, error) {
	outcome := domain.ImportOutcome{TotalRows: len(rows)}

	if len(rows) > im.maxRows {
		return outcome, fmt.Errorf("%w: batch of %d rows exceeds the maximum of %d", domain.ErrValidation, len(rows), im.maxRows)
	}
	if _, err := im.store.GetCategory(ctx, categoryID); err != nil {
		return outcome, err
	}

	for i, row := range rows {
		question, err := questionFromRow(categoryID, row)
		if err == nil {
			var created domain.Question
			created, err = im.store.CreateQuestion(ctx, question)
			if err == nil {
				outcome.SuccessfulImports++
				outcome.CreatedIDs = append(outcome.CreatedIDs, created.ID)
				continue
			}
			if errors.Is(err, domain.ErrConnectivity) {
				return outcome, fmt.Errorf("import aborted at row %d: %w", i+1, err)
			}
		}
		outcome.FailedImports++
		outcome.Errors = append(outcome.Errors, domain.RowError{Row: i + 1, Message: err.Error()})
	}
	return outcome, nil
}

// questionFromRow builds and validates a question from one raw row.
func questionFromRow(categoryID int64, row RawRow) (domain.Question, error) {
	for _, col := range requiredColumns {
		if strings.TrimSpace(row[col]) == "" {
			return domain.Question{}, fmt.Errorf("%w: missing required field %s", domain.ErrValidation, col)
		}
	}
	q := domain.Question{
		CategoryID:    categoryID,
		Text:          strings.TrimSpace(row["question_text"]),
		OptionA:       strings.TrimSpace(row["option_a"]),
		OptionB:       strings.TrimSpace(row["option_b"]),
		OptionC:       strings.TrimSpace(row["option_c"]),
		OptionD:       strings.TrimSpace(row["option_d"]),
		CorrectAnswer: strings.ToUpper(strings.TrimSpace(row["correct_answer"])),
		Difficulty:    domain.Difficulty(strings.ToLower(strings.TrimSpace(row["difficulty"]))),
	}
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}
