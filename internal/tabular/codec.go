// Package tabular implements the CSV import/export format for questions:
// question_text, option_a, option_b, option_c, option_d, correct_answer,
// difficulty (optional). Export quoting is handled by encoding/csv and is
// sufficient for round-trip re-import.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"smart-quiz-service/internal/app"
	"smart-quiz-service/internal/domain"
)

// Columns is the canonical column order for export.
var Columns = []string{"question_text", "option_a", "option_b", "option_c", "option_d", "correct_answer", "difficulty"}

// Decode parses CSV input into ordered raw rows keyed by header name. The
// header must include every required column; difficulty is optional.
func Decode(r io.Reader) ([]app.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are reported per row by the importer

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", domain.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrValidation, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, required := range Columns[:6] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing required column %s", domain.ErrValidation, required)
		}
	}

	var rows []app.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row %d: %v", domain.ErrValidation, len(rows)+1, err)
		}
		row := make(app.RawRow, len(index))
		for name, i := range index {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Encode writes questions as CSV in the canonical column order.
func Encode(w io.Writer, questions []domain.Question) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, q := range questions {
		record := []string{q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, string(q.Difficulty)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
