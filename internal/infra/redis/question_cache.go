package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-quiz-service/internal/domain"
)

// QuestionLoader fetches questions from the backing store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// QuestionCache caches question sets in Redis and falls back to a loader on cache miss.
// Sets are stored as JSON: SET quiz:questions:{category}:{difficulty} [...]
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := c.key(filter)
	if questions, ok := c.read(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.read(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.loader.ListQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}
		if questions == nil {
			questions = []domain.Question{}
		}
		payload, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache questions %s failed: %v", key, err)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached set for filter.
func (c *QuestionCache) Invalidate(ctx context.Context, filter domain.QuestionFilter) error {
	return c.client.Del(ctx, c.key(filter)).Err()
}

func (c *QuestionCache) read(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached questions %s failed: %v", key, err)
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		log.Printf("decode cached questions %s failed: %v", key, err)
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) key(filter domain.QuestionFilter) string {
	return "quiz:questions:" + filter.Category + ":" + string(filter.Difficulty)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
