package app_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// idleTicker never fires; tests drive the countdown through Tick.
type idleTicker struct {
	ch chan time.Time
}

func (t *idleTicker) C() <-chan time.Time  { return t.ch }
func (t *idleTicker) Reset(time.Duration) {}
func (t *idleTicker) Stop()               {}

func idleTickers(time.Duration) app.Ticker {
	return &idleTicker{ch: make(chan time.Time)}
}

type staticSource struct {
	questions []domain.Question
	err       error
}

func (s staticSource) GetQuestions(context.Context, domain.QuestionFilter) ([]domain.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.questions, nil
}

// makeQuestions builds n questions whose correct answer is always option 1.
func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:                 fmt.Sprintf("q%d", i+1),
			Category:           "science",
			Difficulty:         domain.DifficultyEasy,
			Text:               fmt.Sprintf("Question %d?", i+1),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: 1,
		}
	}
	return qs
}

var errBackend = errors.New("backend down")

func newLoadedSession(n int, opts app.SessionOptions) (*app.Session, error) {
	if opts.Tickers == nil {
		opts.Tickers = idleTickers
	}
	s := app.NewSession("s1", &domain.Principal{UserID: "u1", Username: "alice"}, "science", domain.DifficultyEasy, opts)
	err := s.Load(context.Background(), staticSource{questions: makeQuestions(n)})
	return s, err
}
