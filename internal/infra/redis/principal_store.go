package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/domain"
)

// PrincipalStore keeps logged-in principals in Redis so logins survive
// restarts and are shared between instances.
type PrincipalStore struct {
	client *redis.Client
}

func NewPrincipalStore(client *redis.Client) *PrincipalStore {
	return &PrincipalStore{client: client}
}

func (s *PrincipalStore) Save(ctx context.Context, principal domain.Principal, ttl time.Duration) error {
	payload, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(principal.TokenID), payload, ttl).Err()
}

func (s *PrincipalStore) Load(ctx context.Context, tokenID string) (domain.Principal, error) {
	raw, err := s.client.Get(ctx, s.key(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("load principal: %w", err)
	}
	var principal domain.Principal
	if err := json.Unmarshal(raw, &principal); err != nil {
		return domain.Principal{}, fmt.Errorf("decode principal: %w", err)
	}
	return principal, nil
}

func (s *PrincipalStore) Delete(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, s.key(tokenID)).Err()
}

func (s *PrincipalStore) key(tokenID string) string {
	return "quiz:principal:" + tokenID
}
