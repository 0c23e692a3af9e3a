package app

import (
	"fmt"
	"math"

	"smart-quiz-service/internal/domain"
)

// Score compares answers to questions by position and returns the percentage
// score (half-up rounding), correct count, and wrong count. It is pure and
// deterministic. The answer sequence must match the question set exactly.
func Score(questions []domain.Question, answers []string) (scorePct, correct, wrong int, err error) {
	if len(questions) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: cannot score an empty question set", domain.ErrValidation)
	}
	if len(answers) != len(questions) {
		return 0, 0, 0, fmt.Errorf("%w: got %d answers for %d questions", domain.ErrValidation, len(answers), len(questions))
	}
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			correct++
		} else {
			wrong++
		}
	}
	scorePct = int(math.Round(float64(correct) * 100 / float64(len(questions))))
	return scorePct, correct, wrong, nil
}
