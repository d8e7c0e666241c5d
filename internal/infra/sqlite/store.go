// Package sqlite provides the embedded store used when no Postgres is configured.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"trivia-quiz-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store persists questions, results, users and badges in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}

const questionColumns = `id, category, difficulty, text, options, correct_answer_index, author_id, author_name`

func (s *Store) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Difficulty != "" {
		where = append(where, "difficulty = ?")
		args = append(args, string(filter.Difficulty))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET category = ?, difficulty = ?, text = ?, options = ?, correct_answer_index = ?, author_id = ?, author_name = ?
		WHERE id = ?`,
		q.Category, string(q.Difficulty), q.Text, string(options), q.CorrectAnswerIndex, q.AuthorID, q.AuthorName, q.ID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quiz_results (id, user_id, category, difficulty, score, total, percentage, completed_at, answer_history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.UserID, result.Category, string(result.Difficulty), result.Score, result.Total,
		result.Percentage, toMillis(result.CompletedAt), string(history))
	if err != nil {
		return domain.QuizResult{}, fmt.Errorf("create quiz result: %w", err)
	}
	return result, nil
}

func (s *Store) ListQuizResults(ctx context.Context, q domain.ResultQuery) ([]domain.QuizResult, error) {
	query := `SELECT id, user_id, category, difficulty, score, total, percentage, completed_at, answer_history FROM quiz_results`
	var args []any
	if q.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, q.UserID)
	}
	if q.NewestFirst {
		query += ` ORDER BY completed_at DESC, rowid`
	} else {
		query += ` ORDER BY rowid`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.QuizResult, 0)
	for rows.Next() {
		var (
			r           domain.QuizResult
			difficulty  string
			completedAt int64
			history     string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Category, &difficulty, &r.Score, &r.Total, &r.Percentage, &completedAt, &history); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		r.Difficulty = domain.Difficulty(difficulty)
		r.CompletedAt = fromMillis(completedAt)
		if err := json.Unmarshal([]byte(history), &r.AnswerHistory); err != nil {
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
		user.Stats.TotalQuizzes, user.Stats.BestScore, user.Stats.CorrectAnswers, user.Stats.TotalAnswers,
		string(badges), toMillis(user.JoinedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.oneUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.oneUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) oneUser(ctx context.Context, query, arg string) (domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
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
		args []any
	)
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.Stats != nil {
		sets = append(sets, "total_quizzes = ?", "best_score = ?", "correct_answers = ?", "total_answers = ?")
		args = append(args, patch.Stats.TotalQuizzes, patch.Stats.BestScore, patch.Stats.CorrectAnswers, patch.Stats.TotalAnswers)
	}
	if patch.Badges != nil {
		badges, err := json.Marshal(patch.Badges)
		if err != nil {
			return domain.User{}, err
		}
		sets = append(sets, "badges = ?")
		args = append(args, string(badges))
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return domain.User{}, fmt.Errorf("patch user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.User{}, domain.ErrUserNotFound
		}
	}
	return s.GetUser(ctx, id)
}

func (s *Store) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, icon FROM badges ORDER BY rowid`)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (domain.Question, error) {
	var (
		q          domain.Question
		difficulty string
		options    string
	)
	if err := row.Scan(&q.ID, &q.Category, &difficulty, &q.Text, &options, &q.CorrectAnswerIndex, &q.AuthorID, &q.AuthorName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return q, nil
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u        domain.User
		badges   string
		joinedAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Stats.TotalQuizzes, &u.Stats.BestScore, &u.Stats.CorrectAnswers, &u.Stats.TotalAnswers,
		&badges, &joinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.JoinedAt = fromMillis(joinedAt)
	if err := json.Unmarshal([]byte(badges), &u.Badges); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal badges: %w", err)
	}
	return u, nil
}
