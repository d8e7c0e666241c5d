package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"trivia-quiz-service/internal/domain"
)

// Store keeps questions, results, users and badges in process memory.
// It implements every repository interface of the app layer and is the
// store of choice for tests and demos.
type Store struct {
	mu        sync.RWMutex
	questions []domain.Question
	results   []domain.QuizResult
	users     []domain.User
	badges    []domain.Badge
}

func NewStore() *Store {
	return &Store{}
}

// SeedQuestions appends questions, assigning ids where missing.
func (s *Store) SeedQuestions(questions ...domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		s.questions = append(s.questions, cloneQuestion(q))
	}
}

// SeedBadges replaces the badge catalogue.
func (s *Store) SeedBadges(badges ...domain.Badge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append([]domain.Badge(nil), badges...)
}

func (s *Store) ListQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		out = append(out, cloneQuestion(q))
	}
	return out, nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.questionIndex(id); i >= 0 {
		return cloneQuestion(s.questions[i]), nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = uuid.NewString()
	s.questions = append(s.questions, cloneQuestion(q))
	return q, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.questionIndex(q.ID)
	if i < 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	s.questions[i] = cloneQuestion(q)
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.questionIndex(id)
	if i < 0 {
		return domain.ErrQuestionNotFound
	}
	s.questions = append(s.questions[:i], s.questions[i+1:]...)
	return nil
}

func (s *Store) questionIndex(id string) int {
	for i, q := range s.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreateQuizResult(_ context.Context, result domain.QuizResult) (domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = uuid.NewString()
	s.results = append(s.results, result)
	return result, nil
}

func (s *Store) ListQuizResults(_ context.Context, query domain.ResultQuery) ([]domain.QuizResult, error) {
	s.mu.RLock()
	out := make([]domain.QuizResult, 0, len(s.results))
	for _, r := range s.results {
		if query.UserID != "" && r.UserID != query.UserID {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	if query.NewestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		})
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users = append(s.users, cloneUser(user))
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	for i, u := range s.users {
		out[i] = cloneUser(u)
	}
	return out, nil
}

func (s *Store) PatchUser(_ context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID != id {
			continue
		}
		if patch.Username != nil {
			s.users[i].Username = *patch.Username
		}
		if patch.Stats != nil {
			s.users[i].Stats = *patch.Stats
		}
		if patch.Badges != nil {
			s.users[i].Badges = append([]string(nil), patch.Badges...)
		}
		return cloneUser(s.users[i]), nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) ListBadges(_ context.Context) ([]domain.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Badge(nil), s.badges...), nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func cloneUser(u domain.User) domain.User {
	u.Badges = append([]string(nil), u.Badges...)
	return u
}
