package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

func newTestService(store *memory.Store) (*app.QuizService, *memory.SessionStore, *app.Recorder) {
	sessions := memory.NewSessionStore()
	recorder := app.NewRecorder(store, store)
	questions := memory.NewQuestionCache(store, time.Minute)
	service := app.NewQuizService(sessions, questions, recorder, app.SessionOptions{Tickers: idleTickers})
	return service, sessions, recorder
}

func seededStore() *memory.Store {
	store := memory.NewStore()
	store.SeedQuestions(makeQuestions(3)...)
	return store
}

func TestQuizServicePlaysAndRecords(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	user, _ := store.CreateUser(ctx, domain.User{Username: "alice", Email: "a@example.com"})
	service, sessions, recorder := newTestService(store)

	snap, err := service.Start(ctx, &domain.Principal{UserID: user.ID}, "", "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if snap.Category != app.DefaultCategory || snap.Difficulty != app.DefaultDifficulty || snap.Total != 3 {
		t.Fatalf("unexpected start snapshot %+v", snap)
	}

	for i := 0; i < 3; i++ {
		if _, err := service.Select(ctx, snap.ID, 1); err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if i < 2 {
			if _, err := service.Next(ctx, snap.ID); err != nil {
				t.Fatalf("next failed: %v", err)
			}
		}
	}
	done, err := service.Finish(ctx, snap.ID)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if done.Result == nil || done.Result.Percentage != 100 {
		t.Fatalf("expected perfect result, got %+v", done.Result)
	}
	recorder.Wait()

	if sessions.Len() != 0 {
		t.Fatalf("completed session must be released")
	}
	if final, err := service.Snapshot(ctx, snap.ID); err != nil || final.Status != app.StatusCompleted {
		t.Fatalf("expected completed state to stay readable, got %s %v", final.Status, err)
	}
	results, _ := store.ListQuizResults(ctx, domain.ResultQuery{UserID: user.ID})
	if len(results) != 1 || results[0].Score != 3 {
		t.Fatalf("expected recorded result, got %+v", results)
	}
	got, _ := store.GetUser(ctx, user.ID)
	if got.Stats.TotalQuizzes != 1 || got.Stats.BestScore != 100 {
		t.Fatalf("expected stats update, got %+v", got.Stats)
	}
}

func TestQuizServiceExitDoesNotRecord(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	service, sessions, recorder := newTestService(store)

	snap, _ := service.Start(ctx, nil, "science", domain.DifficultyEasy)
	_, _ = service.Select(ctx, snap.ID, 1)
	exited, err := service.Exit(ctx, snap.ID)
	if err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if exited.Status != app.StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", exited.Status)
	}
	recorder.Wait()

	if sessions.Len() != 0 {
		t.Fatalf("abandoned session must be released")
	}
	if results, _ := store.ListQuizResults(ctx, domain.ResultQuery{}); len(results) != 0 {
		t.Fatalf("exit must not persist, got %d results", len(results))
	}
}

func TestQuizServiceStartFailures(t *testing.T) {
	ctx := context.Background()
	service, sessions, _ := newTestService(memory.NewStore())

	snap, err := service.Start(ctx, nil, "science", domain.DifficultyEasy)
	if !errors.Is(err, domain.ErrNoQuestions) || snap.Status != app.StatusErrored {
		t.Fatalf("expected errored start, got %s %v", snap.Status, err)
	}
	if sessions.Len() != 0 {
		t.Fatalf("errored session must be released")
	}
	if _, err := service.Start(ctx, nil, "science", "impossible"); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}
}

func TestQuizServiceSubscribe(t *testing.T) {
	service, _, _ := newTestService(seededStore())
	ctx := context.Background()

	snap, _ := service.Start(ctx, nil, "science", domain.DifficultyEasy)
	ch, cancel, err := service.Subscribe(ctx, snap.ID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()
	<-ch // initial snapshot

	if _, err := service.GoTo(ctx, snap.ID, 2); err != nil {
		t.Fatalf("goto failed: %v", err)
	}
	update := <-ch
	if update.Position != 2 {
		t.Fatalf("expected position 2, got %d", update.Position)
	}

	if _, _, err := service.Subscribe(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestQuizServiceFinishTwiceReturnsStoredResult(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := memory.NewSessionStore()
	recorder := app.NewRecorder(store, store)
	service := app.NewQuizService(sessions, memory.NewQuestionCache(store, time.Minute), recorder, app.SessionOptions{
		Tickers: idleTickers,
		Now:     func() time.Time { return clock },
	})

	snap, _ := service.Start(ctx, nil, "science", domain.DifficultyEasy)
	_, _ = service.Select(ctx, snap.ID, 1)
	first, err := service.Finish(ctx, snap.ID)
	if err != nil || first.Result == nil {
		t.Fatalf("first finish failed: %+v %v", first, err)
	}
	recorder.Wait()

	second, err := service.Finish(ctx, snap.ID)
	if err != nil {
		t.Fatalf("repeated finish must not fail, got %v", err)
	}
	if second.Status != app.StatusCompleted || second.Result == nil || second.Result.Score != first.Result.Score || !second.Result.CompletedAt.Equal(first.Result.CompletedAt) {
		t.Fatalf("expected the stored result, got %+v", second)
	}
	recorder.Wait()
	if results, _ := store.ListQuizResults(ctx, domain.ResultQuery{}); len(results) != 1 {
		t.Fatalf("expected exactly one recorded result, got %d", len(results))
	}

	clock = clock.Add(app.FinishedRetention + time.Second)
	if _, err := service.Finish(ctx, snap.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found after retention, got %v", err)
	}
}
