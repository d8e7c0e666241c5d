package app

import (
	"context"
	"log"

	"trivia-quiz-service/internal/domain"
)

// QuestionRepository is the persistent question store.
type QuestionRepository interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

// QuestionCache drops cached question sets so sessions see edits.
type QuestionCache interface {
	Invalidate(ctx context.Context, filter domain.QuestionFilter) error
}

const (
	msgLoginToManage  = "You must be logged in to manage questions."
	msgEditNotOwner   = "You can only edit questions you created."
	msgDeleteNotOwner = "You can only delete questions you created."
)

// QuestionBank manages the question catalogue on behalf of logged-in authors.
type QuestionBank struct {
	repo  QuestionRepository
	cache QuestionCache
}

// NewQuestionBank builds the bank; cache may be nil when nothing caches questions.
func NewQuestionBank(repo QuestionRepository, cache QuestionCache) *QuestionBank {
	return &QuestionBank{repo: repo, cache: cache}
}

func (b *QuestionBank) List(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	return b.repo.ListQuestions(ctx, filter)
}

// Categories counts questions per category in first-seen order.
func (b *QuestionBank) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	questions, err := b.repo.ListQuestions(ctx, domain.QuestionFilter{})
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	categories := make([]domain.CategoryCount, 0)
	for _, q := range questions {
		i, ok := index[q.Category]
		if !ok {
			i = len(categories)
			index[q.Category] = i
			categories = append(categories, domain.CategoryCount{Name: q.Category})
		}
		categories[i].Count++
	}
	return categories, nil
}

// Create stores a new question authored by principal.
func (b *QuestionBank) Create(ctx context.Context, principal *domain.Principal, in domain.QuestionInput) (domain.Question, error) {
	if principal == nil {
		return domain.Question{}, &domain.AuthenticationError{Message: msgLoginToManage}
	}
	if err := in.Validate(); err != nil {
		return domain.Question{}, err
	}
	q := in.Question()
	q.AuthorID = principal.UserID
	q.AuthorName = principal.Username

	created, err := b.repo.CreateQuestion(ctx, q)
	if err != nil {
		return domain.Question{}, err
	}
	b.invalidate(ctx, created)
	return created, nil
}

// Update replaces a question. Only its author may edit it; questions without
// an author are claimed by the editor.
func (b *QuestionBank) Update(ctx context.Context, principal *domain.Principal, id string, in domain.QuestionInput) (domain.Question, error) {
	if principal == nil {
		return domain.Question{}, &domain.AuthenticationError{Message: msgLoginToManage}
	}
	if err := in.Validate(); err != nil {
		return domain.Question{}, err
	}
	existing, err := b.repo.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if existing.AuthorID != "" && existing.AuthorID != principal.UserID {
		return domain.Question{}, &domain.AuthorizationError{Message: msgEditNotOwner}
	}

	q := in.Question()
	q.ID = existing.ID
	q.AuthorID, q.AuthorName = existing.AuthorID, existing.AuthorName
	if q.AuthorID == "" {
		q.AuthorID, q.AuthorName = principal.UserID, principal.Username
	}

	updated, err := b.repo.UpdateQuestion(ctx, q)
	if err != nil {
		return domain.Question{}, err
	}
	b.invalidate(ctx, existing, updated)
	return updated, nil
}

// Delete removes a question owned by principal.
func (b *QuestionBank) Delete(ctx context.Context, principal *domain.Principal, id string) error {
	if principal == nil {
		return &domain.AuthenticationError{Message: msgLoginToManage}
	}
	existing, err := b.repo.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != "" && existing.AuthorID != principal.UserID {
		return &domain.AuthorizationError{Message: msgDeleteNotOwner}
	}
	if err := b.repo.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	b.invalidate(ctx, existing)
	return nil
}

func (b *QuestionBank) invalidate(ctx context.Context, questions ...domain.Question) {
	if b.cache == nil {
		return
	}
	for _, q := range questions {
		filter := domain.QuestionFilter{Category: q.Category, Difficulty: q.Difficulty}
		if err := b.cache.Invalidate(ctx, filter); err != nil {
			log.Printf("invalidate question cache %s/%s failed: %v", filter.Category, filter.Difficulty, err)
		}
	}
}
