package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"trivia-quiz-service/internal/domain"
)

func TestPrincipalStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewPrincipalStore(newClient(mr))
	ctx := context.Background()
	p := domain.Principal{TokenID: "t1", UserID: "u1", Username: "alice", Role: domain.RoleAdmin}

	if err := store.Save(ctx, p, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UserID != "u1" || got.Role != domain.RoleAdmin {
		t.Fatalf("unexpected principal %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "t1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired principal, got %v", err)
	}

	_ = store.Save(ctx, domain.Principal{TokenID: "t2", UserID: "u2"}, time.Hour)
	if err := store.Delete(ctx, "t2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "t2"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected deleted principal, got %v", err)
	}
}
