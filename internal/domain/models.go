package domain

import "time"

// Difficulty is the level a question is tagged with.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 string     `json:"id"`
	Category           string     `json:"category"`
	Difficulty         Difficulty `json:"difficulty"`
	Text               string     `json:"question"`
	Options            []string   `json:"options"`
	CorrectAnswerIndex int        `json:"correctAnswer"`
	AuthorID           string     `json:"authorId,omitempty"`
	AuthorName         string     `json:"authorName,omitempty"`
}

// QuestionFilter narrows listQuestions; empty fields match everything.
type QuestionFilter struct {
	Category   string
	Difficulty Difficulty
}

// Unanswered is the selected index recorded for a position that never got a selection.
const Unanswered = -1

// Answer is the locked selection for one question position.
type Answer struct {
	SelectedIndex int  `json:"selectedIndex"`
	IsCorrect     bool `json:"isCorrect"`
}

// AnswerRecord is one line of a completed session's answer history.
type AnswerRecord struct {
	QuestionID         string   `json:"questionId"`
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	SelectedIndex      int      `json:"selectedIndex"`
	IsCorrect          bool     `json:"isCorrect"`
}

// QuizResult is the immutable outcome of a completed session.
type QuizResult struct {
	ID            string         `json:"id,omitempty"`
	UserID        string         `json:"userId,omitempty"`
	Category      string         `json:"category"`
	Difficulty    Difficulty     `json:"difficulty"`
	Score         int            `json:"score"`
	Total         int            `json:"total"`
	Percentage    int            `json:"percentage"`
	CompletedAt   time.Time      `json:"completedAt"`
	AnswerHistory []AnswerRecord `json:"answerHistory"`
}

// ResultQuery is the filter/sort/limit triple accepted by listQuizResults.
type ResultQuery struct {
	UserID      string
	NewestFirst bool
	Limit       int // zero means no limit
}

// UserStats accumulates over every completed session of a user.
type UserStats struct {
	TotalQuizzes   int `json:"totalQuizzes"`
	BestScore      int `json:"bestScore"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalAnswers   int `json:"totalAnswers"`
}

// Roles known to navigation.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Stats        UserStats `json:"stats"`
	Badges       []string  `json:"badges"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Username *string
	Stats    *UserStats
	Badges   []string
}

// Badge is an achievement users can hold.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Principal is the authenticated user carried through a request or session.
type Principal struct {
	TokenID  string    `json:"tokenId"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IssuedAt time.Time `json:"issuedAt"`
}

// LeaderboardEntry is a per-user aggregate derived from completed sessions.
type LeaderboardEntry struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	BestScore int    `json:"bestScore"`
	AvgScore  int    `json:"avgScore"`
	Runs      int    `json:"runs"`
}

// CategoryCount is the number of questions in a category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
