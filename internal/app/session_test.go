package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

func TestLoadStartsSession(t *testing.T) {
	s, err := newLoadedSession(12, app.SessionOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != app.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", snap.Status)
	}
	if snap.Total != app.DefaultQuestionLimit {
		t.Fatalf("expected questions capped at %d, got %d", app.DefaultQuestionLimit, snap.Total)
	}
	if snap.TimeRemaining != 60 || snap.Position != 0 {
		t.Fatalf("unexpected start state %+v", snap)
	}
	if snap.Question == nil || snap.Question.CorrectAnswerIndex != nil {
		t.Fatalf("correct answer must stay hidden before answering, got %+v", snap.Question)
	}
}

func TestLoadFailureErrorsSession(t *testing.T) {
	s := app.NewSession("s1", nil, "science", domain.DifficultyEasy, app.SessionOptions{Tickers: idleTickers})
	err := s.Load(context.Background(), staticSource{err: errBackend})
	if !errors.Is(err, domain.ErrQuestionsUnavailable) {
		t.Fatalf("expected questions unavailable, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != app.StatusErrored || snap.Error != "Unable to load questions" {
		t.Fatalf("unexpected errored snapshot %+v", snap)
	}
	if _, err := s.Select(0); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
}

func TestEmptyLoadErrorsSession(t *testing.T) {
	s := app.NewSession("s1", nil, "art", domain.DifficultyHard, app.SessionOptions{Tickers: idleTickers})
	if err := s.Load(context.Background(), staticSource{}); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions, got %v", err)
	}
	if s.Status() != app.StatusErrored {
		t.Fatalf("expected errored, got %s", s.Status())
	}
}

func TestSelectLocksFirstAnswer(t *testing.T) {
	s, _ := newLoadedSession(3, app.SessionOptions{})

	snap, err := s.Select(2)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if got := snap.Answers[0]; got.SelectedIndex != 2 || got.IsCorrect {
		t.Fatalf("unexpected answer %+v", got)
	}
	if snap.Question.CorrectAnswerIndex == nil || *snap.Question.CorrectAnswerIndex != 1 {
		t.Fatalf("correct answer should be revealed once answered")
	}

	snap, err = s.Select(1)
	if err != nil {
		t.Fatalf("second select failed: %v", err)
	}
	if got := snap.Answers[0]; got.SelectedIndex != 2 {
		t.Fatalf("answer must stay locked, got %+v", got)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	s, _ := newLoadedSession(3, app.SessionOptions{})
	for _, idx := range []int{-1, 4} {
		if _, err := s.Select(idx); !errors.Is(err, domain.ErrOptionOutOfRange) {
			t.Fatalf("select(%d): expected out of range, got %v", idx, err)
		}
	}
	if len(s.Snapshot().Answers) != 0 {
		t.Fatalf("rejected selection must not record an answer")
	}
}

func TestTimeoutAdvancesWithoutAnswer(t *testing.T) {
	s, _ := newLoadedSession(3, app.SessionOptions{})

	var snap app.SessionSnapshot
	for i := 0; i < 59; i++ {
		snap, _ = s.Tick()
	}
	if snap.Position != 0 || snap.TimeRemaining != 1 {
		t.Fatalf("expected 1s left on first question, got %+v", snap)
	}
	snap, _ = s.Tick()
	if snap.Position != 1 || snap.TimeRemaining != 60 {
		t.Fatalf("expected move to second question with full time, got pos=%d remaining=%d", snap.Position, snap.TimeRemaining)
	}
	if _, ok := snap.Answers[0]; ok {
		t.Fatalf("timed out question must stay unanswered")
	}
}

func TestTimeoutOnFifthQuestionRecordsUnanswered(t *testing.T) {
	var got domain.QuizResult
	s, _ := newLoadedSession(5, app.SessionOptions{
		OnComplete: func(_ *app.Session, r domain.QuizResult) { got = r },
	})
	for i := 0; i < 4; i++ {
		must(t)(s.Select(1))
		must(t)(s.Next())
	}
	for i := 0; i < 60; i++ {
		must(t)(s.Tick())
	}
	if s.Status() != app.StatusCompleted {
		t.Fatalf("expected completion after last timeout, got %s", s.Status())
	}
	if got.Score != 4 || got.Total != 5 || got.Percentage != 80 {
		t.Fatalf("unexpected result %+v", got)
	}
	last := got.AnswerHistory[4]
	if last.SelectedIndex != domain.Unanswered || last.IsCorrect {
		t.Fatalf("expected unanswered last entry, got %+v", last)
	}
}

func TestSevenOfTenScoresSeventy(t *testing.T) {
	var got domain.QuizResult
	s, _ := newLoadedSession(10, app.SessionOptions{
		OnComplete: func(_ *app.Session, r domain.QuizResult) { got = r },
	})
	for i := 0; i < 10; i++ {
		choice := 1
		if i >= 7 {
			choice = 0
		}
		must(t)(s.Select(choice))
		if i < 9 {
			must(t)(s.Next())
		}
	}
	snap, err := s.Finish()
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if snap.Result == nil || snap.Result.Score != 7 || snap.Result.Percentage != 70 {
		t.Fatalf("expected 7/10 = 70%%, got %+v", snap.Result)
	}
	if got.Score != 7 || got.UserID != "u1" || len(got.AnswerHistory) != 10 {
		t.Fatalf("completion hook got %+v", got)
	}
}

func TestNavigationResetsCountdown(t *testing.T) {
	s, _ := newLoadedSession(5, app.SessionOptions{})
	for i := 0; i < 10; i++ {
		must(t)(s.Tick())
	}
	snap, _ := s.GoTo(0)
	if snap.TimeRemaining != 50 {
		t.Fatalf("goto to the same position must not reset, got %d", snap.TimeRemaining)
	}
	snap, err := s.GoTo(3)
	if err != nil {
		t.Fatalf("goto failed: %v", err)
	}
	if snap.Position != 3 || snap.TimeRemaining != 60 {
		t.Fatalf("expected reset at position 3, got %+v", snap)
	}
	if _, err := s.GoTo(5); !errors.Is(err, domain.ErrInvalidPosition) {
		t.Fatalf("expected invalid position, got %v", err)
	}
}

func TestPreviousKeepsAnswers(t *testing.T) {
	s, _ := newLoadedSession(3, app.SessionOptions{})
	snap, _ := s.Previous()
	if snap.Position != 0 {
		t.Fatalf("previous at first question must stay at 0")
	}
	must(t)(s.Select(3))
	must(t)(s.Next())
	must(t)(s.Tick())
	snap, _ = s.Previous()
	if snap.Position != 0 || snap.TimeRemaining != 60 {
		t.Fatalf("expected back at 0 with full time, got %+v", snap)
	}
	if snap.Answers[0].SelectedIndex != 3 {
		t.Fatalf("previous must not touch answers")
	}
}

func TestFinishRacingTickCompletesOnce(t *testing.T) {
	for run := 0; run < 50; run++ {
		var completions atomic.Int32
		s, _ := newLoadedSession(2, app.SessionOptions{
			QuestionSeconds: 1,
			OnComplete:      func(*app.Session, domain.QuizResult) { completions.Add(1) },
		})
		must(t)(s.Next())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = s.Finish() }()
		go func() { defer wg.Done(); _, _ = s.Tick() }()
		wg.Wait()

		if n := completions.Load(); n != 1 {
			t.Fatalf("run %d: expected exactly one completion, got %d", run, n)
		}
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	var completions int
	s, _ := newLoadedSession(2, app.SessionOptions{
		OnComplete: func(*app.Session, domain.QuizResult) { completions++ },
	})
	first, err := s.Finish()
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	second, err := s.Finish()
	if err != nil {
		t.Fatalf("second finish failed: %v", err)
	}
	if completions != 1 || first.Result != second.Result {
		t.Fatalf("expected one completion with the same result, got %d", completions)
	}
}

func TestExitAbandonsWithoutResult(t *testing.T) {
	completed := false
	s, _ := newLoadedSession(3, app.SessionOptions{
		OnComplete: func(*app.Session, domain.QuizResult) { completed = true },
	})
	must(t)(s.Select(1))
	snap, err := s.Exit()
	if err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if snap.Status != app.StatusAbandoned || snap.Result != nil {
		t.Fatalf("unexpected snapshot after exit %+v", snap)
	}
	if _, err := s.Tick(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed after exit, got %v", err)
	}
	if _, err := s.Finish(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("finish after exit must fail, got %v", err)
	}
	if completed {
		t.Fatalf("exit must never complete the session")
	}
}

func TestSubscribeClosesAfterCompletion(t *testing.T) {
	s, _ := newLoadedSession(1, app.SessionOptions{})
	ch, cancel := s.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.Status != app.StatusInProgress {
		t.Fatalf("expected in-progress initial snapshot, got %s", initial.Status)
	}
	must(t)(s.Next())

	var last app.SessionSnapshot
	for snap := range ch {
		last = snap
	}
	if last.Status != app.StatusCompleted || last.Result == nil {
		t.Fatalf("expected terminal snapshot with result, got %+v", last)
	}
}

func TestSubscribeRacingFinish(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, _ := newLoadedSession(2, app.SessionOptions{})
		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ch, cancel := s.Subscribe()
				defer cancel()
				first, ok := <-ch
				if !ok {
					t.Errorf("subscriber must receive an initial snapshot")
					return
				}
				last := first
				for snap := range ch {
					last = snap
				}
				if first.Status == app.StatusCompleted && last.Status != app.StatusCompleted {
					t.Errorf("stale snapshot delivered after the terminal one")
				}
			}()
		}
		must(t)(s.Finish())
		wg.Wait()
	}
}

func TestSubscribeAfterCompletion(t *testing.T) {
	s, _ := newLoadedSession(1, app.SessionOptions{})
	must(t)(s.Finish())

	ch, cancel := s.Subscribe()
	defer cancel()
	snap, ok := <-ch
	if !ok || snap.Status != app.StatusCompleted {
		t.Fatalf("expected the terminal snapshot, got %+v", snap)
	}
	if _, open := <-ch; open {
		t.Fatalf("channel must be closed for an ended session")
	}
}

// must fails the test when a session operation returns an error.
func must(t *testing.T) func(app.SessionSnapshot, error) {
	t.Helper()
	return func(_ app.SessionSnapshot, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}
