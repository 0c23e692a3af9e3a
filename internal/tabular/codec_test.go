package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"smart-quiz-service/internal/domain"
)

func TestDecodeMapsRowsByHeader(t *testing.T) {
	input := strings.Join([]string{
		"question_text,option_a,option_b,option_c,option_d,correct_answer,difficulty",
		`"What is 2, plus 2?",3,4,5,6,B,easy`,
		"Capital of France?,Paris,Rome,Berlin,Madrid,A,",
	}, "\n")

	rows, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["question_text"] != "What is 2, plus 2?" {
		t.Fatalf("quoted comma mangled: %q", rows[0]["question_text"])
	}
	if rows[0]["correct_answer"] != "B" || rows[1]["difficulty"] != "" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestDecodeMissingColumnFails(t *testing.T) {
	input := "question_text,option_a,option_b,option_c,option_d\nq,a,b,c,d"
	_, err := Decode(strings.NewReader(input))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeEmptyInputFails(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	questions := []domain.Question{
		{
			Text:          `He said "four", with quotes`,
			OptionA:       "three, maybe",
			OptionB:       "four\nwith a newline",
			OptionC:       "five",
			OptionD:       "six",
			CorrectAnswer: "B",
			Difficulty:    domain.DifficultyMedium,
		},
		{
			Text:          "Capital of France?",
			OptionA:       "Paris",
			OptionB:       "Rome",
			OptionC:       "Berlin",
			OptionD:       "Madrid",
			CorrectAnswer: "A",
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, questions); err != nil {
		t.Fatalf("encode: %v", err)
	}
	rows, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != len(questions) {
		t.Fatalf("expected %d rows, got %d", len(questions), len(rows))
	}
	for i, q := range questions {
		row := rows[i]
		if row["question_text"] != q.Text ||
			row["option_a"] != q.OptionA ||
			row["option_b"] != q.OptionB ||
			row["option_c"] != q.OptionC ||
			row["option_d"] != q.OptionD ||
			row["correct_answer"] != q.CorrectAnswer ||
			row["difficulty"] != string(q.Difficulty) {
			t.Fatalf("row %d does not round-trip: %+v vs %+v", i+1, row, q)
		}
	}
}
