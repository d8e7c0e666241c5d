package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-quiz-service/internal/domain"
)

// QuestionLoader fetches questions from a backing store (Postgres, SQLite, ...).
type QuestionLoader interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// QuestionCache caches question sets per filter with a TTL to avoid repeated DB hits.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

// CacheKey identifies a question set; shared with the Redis cache.
func CacheKey(filter domain.QuestionFilter) string {
	return filter.Category + "|" + string(filter.Difficulty)
}

func (c *QuestionCache) GetQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := CacheKey(filter)
	if questions, ok := c.lookup(key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if questions, ok := c.lookup(key); ok {
			return questions, nil
		}
		now := c.clock()
		questions, err := c.loader.ListQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return copyQuestions(result.([]domain.Question)), nil
}

// Invalidate drops the cached set for filter.
func (c *QuestionCache) Invalidate(_ context.Context, filter domain.QuestionFilter) error {
	c.mu.Lock()
	delete(c.cache, CacheKey(filter))
	c.mu.Unlock()
	return nil
}

func (c *QuestionCache) lookup(key string) ([]domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return copyQuestions(entry.questions), true
	}
	return nil, false
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func copyQuestions(in []domain.Question) []domain.Question {
	return append([]domain.Question(nil), in...)
}
