package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/postgres"
	redisinfra "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/sqlite"
)

// store is what every backend offers the app layer.
type store interface {
	app.QuestionRepository
	app.ResultRepository
	app.UserRepository
	app.BadgeRepository
}

// questionCache serves sessions and is invalidated by question edits.
type questionCache interface {
	app.QuestionSource
	app.QuestionCache
}

// backend bundles the stores picked by configuration.
type backend struct {
	store      store
	questions  questionCache
	sessions   app.SessionRepository
	principals app.PrincipalStore
	persistent bool
	closers    []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend selects Postgres when a url is set, otherwise SQLite when a path
// is set, otherwise an in-memory store seeded with sample questions. Redis
// backs the caches and session bookkeeping when an address is configured.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	if err := b.openStore(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr == "" {
		b.questions = memory.NewQuestionCache(b.store, quizTTL)
		b.sessions = memory.NewSessionStore()
		b.principals = memory.NewPrincipalStore()
		return b, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b.closers = append(b.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		b.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	b.questions = redisinfra.NewQuestionCache(client, b.store, quizTTL)
	b.sessions = redisinfra.NewSessionStore(client, redisTTL)
	b.principals = redisinfra.NewPrincipalStore(client)
	return b, nil
}

func (b *backend) openStore(ctx context.Context, cfg config.Config) error {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.store = postgres.NewStore(pool)
		b.persistent = true
		log.Printf("using postgres store")
	case cfg.SQLite.Path != "":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.store = db
		b.persistent = true
		log.Printf("using sqlite store at %s", cfg.SQLite.Path)
	default:
		mem := memory.NewStore()
		mem.SeedQuestions(sampleQuestions()...)
		mem.SeedBadges(defaultBadges()...)
		b.store = mem
		log.Printf("using in-memory store with sample questions")
	}
	return nil
}

// defaultBadges mirrors the catalogue the SQL schemas seed.
func defaultBadges() []domain.Badge {
	return []domain.Badge{
		{ID: "first_step", Name: "First Step", Description: "Created an account and joined the fun.", Icon: "🎯"},
		{ID: "perfect_score", Name: "Perfect Score", Description: "Answered every question of a quiz correctly.", Icon: "🏆"},
		{ID: "quiz_enthusiast", Name: "Quiz Enthusiast", Description: "Completed ten quizzes.", Icon: "🔥"},
	}
}

// sampleQuestions keeps the in-memory mode playable out of the box.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Category: "science", Difficulty: domain.DifficultyEasy, Text: "What is the chemical symbol for water?", Options: []string{"O2", "H2O", "CO2", "NaCl"}, CorrectAnswerIndex: 1},
		{Category: "science", Difficulty: domain.DifficultyEasy, Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Jupiter", "Mars", "Saturn"}, CorrectAnswerIndex: 2},
		{Category: "science", Difficulty: domain.DifficultyEasy, Text: "How many legs does an insect have?", Options: []string{"Six", "Eight", "Four", "Ten"}, CorrectAnswerIndex: 0},
		{Category: "science", Difficulty: domain.DifficultyMedium, Text: "What gas do plants absorb from the air?", Options: []string{"Oxygen", "Nitrogen", "Helium", "Carbon dioxide"}, CorrectAnswerIndex: 3},
		{Category: "history", Difficulty: domain.DifficultyEasy, Text: "Who was the first President of the United States?", Options: []string{"Lincoln", "Jefferson", "Washington", "Adams"}, CorrectAnswerIndex: 2},
		{Category: "history", Difficulty: domain.DifficultyMedium, Text: "In which year did the Berlin Wall fall?", Options: []string{"1987", "1989", "1991", "1993"}, CorrectAnswerIndex: 1},
		{Category: "geography", Difficulty: domain.DifficultyEasy, Text: "What is the capital of Japan?", Options: []string{"Seoul", "Beijing", "Tokyo", "Bangkok"}, CorrectAnswerIndex: 2},
		{Category: "geography", Difficulty: domain.DifficultyHard, Text: "Which river is the longest in Europe?", Options: []string{"Danube", "Volga", "Rhine", "Dnieper"}, CorrectAnswerIndex: 1},
	}
}
