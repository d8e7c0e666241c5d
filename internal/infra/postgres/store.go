package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-quiz-service/internal/domain"
)

// Store persists questions, results, users and badges in Postgres.
// The schema is owned by the bun migrations in ./migrations.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const questionColumns = `id, category, difficulty, text, options, correct_answer_index, author_id, author_name`

func (s *Store) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var (
		where []string
		args  []interface{}
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Difficulty != "" {
		args = append(args, string(filter.Difficulty))
		where = append(where, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	q.ID = uuid.NewString()
	options, err := json.Marshal(q.Options)
	if err != nil {
		return domain.Question{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (id, category, difficulty, text, options, correct_answer_index, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
		q.ID, q.Category, string(q.Difficulty), q.Text, string(options), q.CorrectAnswerIndex, q.AuthorID, q.AuthorName)
	if err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return domain.Question{}, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE questions
		SET category = $2, difficulty = $3, text = $4, options = $5::jsonb,
		    correct_answer_index = $6, author_id = $7, author_name = $8
		WHERE id = $1`,
		q.ID, q.Category, string(q.Difficulty), q.Text, string(options), q.CorrectAnswerIndex, q.AuthorID, q.AuthorName)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) CreateQuizResult(ctx context.Context, result domain.QuizResult) (domain.QuizResult, error) {
	result.ID = uuid.NewString()
	history, err := json.Marshal(result.AnswerHistory)
	if err != nil {
		return domain.QuizResult{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_results (id, user_id, category, difficulty, score, total, percentage, completed_at, answer_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`,
		result.ID, result.UserID, result.Category, string(result.Difficulty), result.Score, result.Total,
		result.Percentage, result.CompletedAt, string(history))
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("create quiz result: %w", err)
	}
	return result, nil
}

func (s *Store) ListQuizResults(ctx context.Context, q domain.ResultQuery) ([]domain.QuizResult, error) {
	query := `SELECT id, user_id, category, difficulty, score, total, percentage, completed_at, answer_history FROM quiz_results`
	var args []interface{}
	if q.UserID != "" {
		args = append(args, q.UserID)
		query += ` WHERE user_id = $1`
	}
	if q.NewestFirst {
		query += ` ORDER BY completed_at DESC, seq`
	} else {
		query += ` ORDER BY seq`
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.QuizResult, 0)
	for rows.Next() {
		var (
			r          domain.QuizResult
			difficulty string
			history    []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Category, &difficulty, &r.Score, &r.Total, &r.Percentage, &r.CompletedAt, &history); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		r.Difficulty = domain.Difficulty(difficulty)
		r.CompletedAt = r.CompletedAt.UTC()
		if err := json.Unmarshal(history, &r.AnswerHistory); err != nil {
			return nil, fmt.Errorf("unmarshal answer history: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

const userColumns = `id, username, email, password_hash, role, total_quizzes, best_score, correct_answers, total_answers, badges, joined_at`

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Badges == nil {
		user.Badges = []string{}
	}
	badges, err := json.Marshal(user.Badges)
	if err != nil {
		return domain.User{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
		user.Stats.TotalQuizzes, user.Stats.BestScore, user.Stats.CorrectAnswers, user.Stats.TotalAnswers,
		string(badges), user.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.oneUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.oneUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *Store) oneUser(ctx context.Context, query string, arg string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) PatchUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	var (
		sets []string
		args = []interface{}{id}
	)
	if patch.Username != nil {
		args = append(args, *patch.Username)
		sets = append(sets, fmt.Sprintf("username = $%d", len(args)))
	}
	if patch.Stats != nil {
		args = append(args, patch.Stats.TotalQuizzes, patch.Stats.BestScore, patch.Stats.CorrectAnswers, patch.Stats.TotalAnswers)
		n := len(args)
		sets = append(sets, fmt.Sprintf("total_quizzes = $%d, best_score = $%d, correct_answers = $%d, total_answers = $%d", n-3, n-2, n-1, n))
	}
	if patch.Badges != nil {
		badges, err := json.Marshal(patch.Badges)
		if err != nil {
			return domain.User{}, err
		}
		args = append(args, string(badges))
		sets = append(sets, fmt.Sprintf("badges = $%d::jsonb", len(args)))
	}
	if len(sets) == 0 {
		return s.GetUser(ctx, id)
	}

	row := s.pool.QueryRow(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+userColumns, args...)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *Store) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, icon FROM badges ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	badges := make([]domain.Badge, 0)
	for rows.Next() {
		var b domain.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q          domain.Question
		difficulty string
		options    []byte
	)
	if err := row.Scan(&q.ID, &q.Category, &difficulty, &q.Text, &options, &q.CorrectAnswerIndex, &q.AuthorID, &q.AuthorName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return q, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u      domain.User
		badges []byte
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Stats.TotalQuizzes, &u.Stats.BestScore, &u.Stats.CorrectAnswers, &u.Stats.TotalAnswers,
		&badges, &u.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.JoinedAt = u.JoinedAt.UTC()
	if err := json.Unmarshal(badges, &u.Badges); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal badges: %w", err)
	}
	return u, nil
}
