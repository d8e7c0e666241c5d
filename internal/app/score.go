package app

import "trivia-quiz-service/internal/domain"

// Tally is the live score of a session.
type Tally struct {
	Score     int `json:"score"`
	Answered  int `json:"answered"`
	Incorrect int `json:"incorrect"`
	Accuracy  int `json:"accuracy"`
}

// ScoreAnswers computes the tally over answers for a session of total questions.
// Positions without an answer count neither as answered nor as correct.
func ScoreAnswers(answers map[int]domain.Answer, total int) Tally {
	var t Tally
	for _, answer := range answers {
		t.Answered++
		if answer.IsCorrect {
			t.Score++
		}
	}
	t.Incorrect = t.Answered - t.Score
	t.Accuracy = Percentage(t.Score, total)
	return t
}

// Percentage returns round(part/total*100), or 0 when total is not positive.
func Percentage(part, total int) int {
	return roundedRatio(part*100, total)
}

// roundedRatio rounds num/den half up using integer arithmetic.
func roundedRatio(num, den int) int {
	if den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}
