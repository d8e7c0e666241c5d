package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

func TestStoreListQuizResults(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, user := range []string{"u1", "u2", "u1", "u1"} {
		_, err := store.CreateQuizResult(ctx, domain.QuizResult{UserID: user, Score: i, CompletedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("create result: %v", err)
		}
	}

	got, err := store.ListQuizResults(ctx, domain.ResultQuery{UserID: "u1", NewestFirst: true, Limit: 2})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(got) != 2 || got[0].Score != 3 || got[1].Score != 2 {
		t.Fatalf("expected newest two u1 results, got %+v", got)
	}
	if got[0].ID == "" {
		t.Fatalf("expected assigned id")
	}

	all, _ := store.ListQuizResults(ctx, domain.ResultQuery{})
	if len(all) != 4 || all[0].Score != 0 {
		t.Fatalf("expected insertion order without sort, got %+v", all)
	}
}

func TestStoreUsers(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	u, err := store.CreateUser(ctx, domain.User{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, domain.User{Username: "alias", Email: "alice@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}

	stats := domain.UserStats{TotalQuizzes: 1, BestScore: 80, CorrectAnswers: 8, TotalAnswers: 10}
	patched, err := store.PatchUser(ctx, u.ID, domain.UserPatch{Stats: &stats})
	if err != nil {
		t.Fatalf("patch user: %v", err)
	}
	if patched.Stats != stats || patched.Username != "alice" {
		t.Fatalf("unexpected patched user %+v", patched)
	}
	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestStoreQuestionLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	q, err := store.CreateQuestion(ctx, domain.Question{Category: "art", Difficulty: domain.DifficultyMedium, Text: "Who painted it?", Options: []string{"a", "b", "c", "d"}})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	q.Text = "Who painted the Mona Lisa?"
	if _, err := store.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("update question: %v", err)
	}
	got, _ := store.GetQuestion(ctx, q.ID)
	if got.Text != q.Text {
		t.Fatalf("update not stored: %+v", got)
	}
	if err := store.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if _, err := store.GetQuestion(ctx, q.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession("s-1", nil, "science", domain.DifficultyEasy, app.SessionOptions{})
	store.Put(session)
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected session present")
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestPrincipalStoreExpiry(t *testing.T) {
	store := NewPrincipalStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	ctx := context.Background()

	p := domain.Principal{TokenID: "t1", UserID: "u1"}
	if err := store.Save(ctx, p, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := store.Load(ctx, "t1"); err != nil || got.UserID != "u1" {
		t.Fatalf("expected principal, got %+v %v", got, err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := store.Load(ctx, "t1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expiry, got %v", err)
	}

	_ = store.Save(ctx, domain.Principal{TokenID: "t2", UserID: "u2"}, time.Hour)
	_ = store.Delete(ctx, "t2")
	if _, err := store.Load(ctx, "t2"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected deleted principal to be gone, got %v", err)
	}
}
