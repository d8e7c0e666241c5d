package app

import (
	"context"
	"log"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// ResultRepository persists and lists completed quiz results.
type ResultRepository interface {
	CreateQuizResult(ctx context.Context, result domain.QuizResult) (domain.QuizResult, error)
	ListQuizResults(ctx context.Context, query domain.ResultQuery) ([]domain.QuizResult, error)
}

// UserRepository stores user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	PatchUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error)
}

// BuildResult assembles the result of a completed session. The history covers
// every position; positions never answered are recorded as unanswered.
func BuildResult(userID, category string, difficulty domain.Difficulty, questions []domain.Question, answers map[int]domain.Answer, completedAt time.Time) domain.QuizResult {
	history := make([]domain.AnswerRecord, len(questions))
	score := 0
	for i, q := range questions {
		selected := domain.Unanswered
		if answer, ok := answers[i]; ok {
			selected = answer.SelectedIndex
		}
		correct := selected == q.CorrectAnswerIndex
		if correct {
			score++
		}
		history[i] = domain.AnswerRecord{
			QuestionID:         q.ID,
			QuestionText:       q.Text,
			Options:            q.Options,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			SelectedIndex:      selected,
			IsCorrect:          correct,
		}
	}
	return domain.QuizResult{
		UserID:        userID,
		Category:      category,
		Difficulty:    difficulty,
		Score:         score,
		Total:         len(questions),
		Percentage:    Percentage(score, len(questions)),
		CompletedAt:   completedAt.UTC(),
		AnswerHistory: history,
	}
}

// NextStats folds one result into a user's running statistics.
func NextStats(prev domain.UserStats, result domain.QuizResult) domain.UserStats {
	next := domain.UserStats{
		TotalQuizzes:   prev.TotalQuizzes + 1,
		BestScore:      prev.BestScore,
		CorrectAnswers: prev.CorrectAnswers + result.Score,
		TotalAnswers:   prev.TotalAnswers + result.Total,
	}
	if result.Percentage > next.BestScore {
		next.BestScore = result.Percentage
	}
	return next
}

// Recorder writes completed results in the background. Both writes are
// best-effort: failures are logged and never reach the quiz flow.
type Recorder struct {
	results ResultRepository
	users   UserRepository
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(results ResultRepository, users UserRepository) *Recorder {
	return &Recorder{results: results, users: users, timeout: 10 * time.Second}
}

// Record starts the result persist and, for an authenticated principal, the
// stats update. It returns immediately.
func (r *Recorder) Record(ctx context.Context, principal *domain.Principal, result domain.QuizResult) {
	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if _, err := r.results.CreateQuizResult(ctx, result); err != nil {
			log.Printf("persist quiz result failed: %v", err)
		}
	}()

	if principal == nil || principal.UserID == "" {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.updateStats(ctx, principal.UserID, result); err != nil {
			log.Printf("update stats for user %s failed: %v", principal.UserID, err)
		}
	}()
}

func (r *Recorder) updateStats(ctx context.Context, userID string, result domain.QuizResult) error {
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	next := NextStats(user.Stats, result)
	_, err = r.users.PatchUser(ctx, userID, domain.UserPatch{Stats: &next})
	return err
}

// Wait blocks until every background write started so far has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
