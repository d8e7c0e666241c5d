package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// SessionStatus is the state of a quiz session.
type SessionStatus string

const (
	StatusLoading    SessionStatus = "loading"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusErrored    SessionStatus = "errored"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether no further transition can happen.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored || s == StatusAbandoned
}

const (
	DefaultQuestionLimit   = 10
	DefaultQuestionSeconds = 60
)

// QuestionSource supplies the ordered questions of a session.
type QuestionSource interface {
	GetQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// SessionOptions tunes a session. Zero values fall back to the defaults.
type SessionOptions struct {
	QuestionLimit   int
	QuestionSeconds int
	TickInterval    time.Duration
	Tickers         TickerFactory
	Now             func() time.Time
	// OnComplete runs once, outside the session lock, when the session completes.
	OnComplete func(s *Session, result domain.QuizResult)
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.QuestionLimit <= 0 || o.QuestionLimit > DefaultQuestionLimit {
		o.QuestionLimit = DefaultQuestionLimit
	}
	if o.QuestionSeconds <= 0 {
		o.QuestionSeconds = DefaultQuestionSeconds
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Tickers == nil {
		o.Tickers = NewRealTicker
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// QuestionView is the current question as shown to the player.
// The correct index is only revealed once the position is answered.
type QuestionView struct {
	ID                 string   `json:"id"`
	Text               string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswer,omitempty"`
}

// SessionSnapshot is a consistent copy of a session's state.
type SessionSnapshot struct {
	ID            string                `json:"id"`
	Status        SessionStatus         `json:"status"`
	Error         string                `json:"error,omitempty"`
	Category      string                `json:"category"`
	Difficulty    domain.Difficulty     `json:"difficulty"`
	Position      int                   `json:"position"`
	Total         int                   `json:"total"`
	TimeRemaining int                   `json:"timeRemaining"`
	Question      *QuestionView         `json:"question,omitempty"`
	Answers       map[int]domain.Answer `json:"answers"`
	Tally         Tally                 `json:"tally"`
	Result        *domain.QuizResult    `json:"result,omitempty"`
}

// Session is one run through a fixed, ordered set of questions.
// Every mutation is serialized by mu.
type Session struct {
	id         string
	principal  *domain.Principal
	category   string
	difficulty domain.Difficulty
	opts       SessionOptions

	mu          sync.Mutex
	status      SessionStatus
	errMessage  string
	questions   []domain.Question
	current     int
	answers     map[int]domain.Answer
	remaining   int
	timer       *Timer
	result      *domain.QuizResult
	subscribers map[chan SessionSnapshot]struct{}
}

// NewSession creates a session in the Loading state. principal may be nil.
func NewSession(id string, principal *domain.Principal, category string, difficulty domain.Difficulty, opts SessionOptions) *Session {
	return &Session{
		id:          id,
		principal:   principal,
		category:    category,
		difficulty:  difficulty,
		opts:        opts.withDefaults(),
		status:      StatusLoading,
		answers:     make(map[int]domain.Answer),
		subscribers: make(map[chan SessionSnapshot]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Principal returns the user the session runs for, or nil when anonymous.
func (s *Session) Principal() *domain.Principal { return s.principal }

// Load fetches the questions and starts the countdown. A failed or empty
// fetch leaves the session Errored; there is no retry.
func (s *Session) Load(ctx context.Context, source QuestionSource) error {
	questions, err := source.GetQuestions(ctx, domain.QuestionFilter{Category: s.category, Difficulty: s.difficulty})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusLoading {
		return domain.ErrSessionClosed
	}
	if err != nil {
		s.failLocked("Unable to load questions")
		return fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	if len(questions) == 0 {
		s.failLocked("No questions available for this category and difficulty")
		return domain.ErrNoQuestions
	}
	if len(questions) > s.opts.QuestionLimit {
		questions = questions[:s.opts.QuestionLimit]
	}
	s.questions = append([]domain.Question(nil), questions...)
	s.status = StatusInProgress
	s.current = 0
	s.remaining = s.opts.QuestionSeconds
	s.timer = StartTimer(s.opts.Tickers, s.opts.TickInterval, func(gen uint64) { _, _ = s.timerTick(gen) })
	s.broadcastLocked()
	return nil
}

func (s *Session) failLocked(message string) {
	s.status = StatusErrored
	s.errMessage = message
	s.broadcastLocked()
}

// Select locks optionIndex as the answer for the current position.
// It is a no-op when the position already has an answer.
func (s *Session) Select(optionIndex int) (SessionSnapshot, error) {
	return s.apply(func() (bool, error) {
		question := s.questions[s.current]
		if optionIndex < 0 || optionIndex >= len(question.Options) {
			return false, domain.ErrOptionOutOfRange
		}
		if _, locked := s.answers[s.current]; locked {
			return false, nil
		}
		s.answers[s.current] = domain.Answer{
			SelectedIndex: optionIndex,
			IsCorrect:     optionIndex == question.CorrectAnswerIndex,
		}
		return true, nil
	})
}

// Next moves to the following position, or completes on the last one.
func (s *Session) Next() (SessionSnapshot, error) {
	return s.apply(func() (bool, error) {
		s.advanceLocked()
		return true, nil
	})
}

// Previous moves back one position; it never touches answers.
func (s *Session) Previous() (SessionSnapshot, error) {
	return s.apply(func() (bool, error) {
		if s.current == 0 {
			return false, nil
		}
		s.moveLocked(s.current - 1)
		return true, nil
	})
}

// GoTo jumps to an arbitrary position.
func (s *Session) GoTo(position int) (SessionSnapshot, error) {
	return s.apply(func() (bool, error) {
		if position < 0 || position >= len(s.questions) {
			return false, domain.ErrInvalidPosition
		}
		if position == s.current {
			return false, nil
		}
		s.moveLocked(position)
		return true, nil
	})
}

// Tick counts one second down. At zero the session advances, or completes on
// the last position; the position's answer stays absent if never selected.
func (s *Session) Tick() (SessionSnapshot, error) {
	return s.apply(func() (bool, error) {
		s.countDownLocked()
		return true, nil
	})
}

// timerTick is Tick for the session's own timer. A tick that fired before the
// last position change belongs to the previous question and is dropped.
func (s *Session) timerTick(gen uint64) (SessionSnapshot, error) {
	return s.apply(func() (bool, error) {
		if s.timer != nil && s.timer.Generation() != gen {
			return false, nil
		}
		s.countDownLocked()
		return true, nil
	})
}

func (s *Session) countDownLocked() {
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.advanceLocked()
	}
}

// Finish completes the session. Calling it again returns the same result
// without completing twice.
func (s *Session) Finish() (SessionSnapshot, error) {
	snap, err := s.apply(func() (bool, error) {
		s.completeLocked()
		return true, nil
	})
	if errors.Is(err, domain.ErrSessionClosed) && snap.Status == StatusCompleted {
		return snap, nil
	}
	return snap, err
}

// Exit abandons the session: the timer stops and nothing is recorded.
// Callers are expected to have confirmed the exit with the player.
func (s *Session) Exit() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return s.snapshotLocked(), domain.ErrSessionClosed
	}
	s.status = StatusAbandoned
	s.stopTimerLocked()
	return s.broadcastLocked(), nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the current state machine status.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// apply runs op under the lock while the session is in progress. When op
// changes state the new snapshot is broadcast, and if op completed the
// session the completion hook runs after the lock is released.
func (s *Session) apply(op func() (bool, error)) (SessionSnapshot, error) {
	s.mu.Lock()
	if s.status != StatusInProgress {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrSessionClosed
	}
	changed, err := op()
	if err != nil || !changed {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}
	snap := s.broadcastLocked()
	var completed *domain.QuizResult
	if s.status == StatusCompleted {
		completed = s.result
	}
	s.mu.Unlock()

	if completed != nil && s.opts.OnComplete != nil {
		s.opts.OnComplete(s, *completed)
	}
	return snap, nil
}

func (s *Session) advanceLocked() {
	if s.current >= len(s.questions)-1 {
		s.completeLocked()
		return
	}
	s.moveLocked(s.current + 1)
}

// moveLocked changes the position; every position change restarts the countdown.
func (s *Session) moveLocked(position int) {
	if position == s.current {
		return
	}
	s.current = position
	s.remaining = s.opts.QuestionSeconds
	if s.timer != nil {
		s.timer.Reset()
	}
}

// completeLocked is only reached from InProgress, which makes it one-shot.
func (s *Session) completeLocked() {
	s.status = StatusCompleted
	s.stopTimerLocked()
	userID := ""
	if s.principal != nil {
		userID = s.principal.UserID
	}
	result := BuildResult(userID, s.category, s.difficulty, s.questions, s.answers, s.opts.Now())
	s.result = &result
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Session) subscribe() (<-chan SessionSnapshot, func()) {
	ch := make(chan SessionSnapshot, 8)

	s.mu.Lock()
	// The initial snapshot is queued before any broadcast can reach ch.
	ch <- s.snapshotLocked()
	if s.status.Terminal() {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The channel is closed after the terminal snapshot or when cancel is called.
func (s *Session) Subscribe() (<-chan SessionSnapshot, func()) {
	return s.subscribe()
}

func (s *Session) broadcastLocked() SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscribers lose the stale snapshot, never the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	if s.status.Terminal() {
		for ch := range s.subscribers {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
	return snap
}

func (s *Session) snapshotLocked() SessionSnapshot {
	answers := make(map[int]domain.Answer, len(s.answers))
	for pos, answer := range s.answers {
		answers[pos] = answer
	}
	snap := SessionSnapshot{
		ID:            s.id,
		Status:        s.status,
		Error:         s.errMessage,
		Category:      s.category,
		Difficulty:    s.difficulty,
		Position:      s.current,
		Total:         len(s.questions),
		TimeRemaining: s.remaining,
		Answers:       answers,
		Tally:         ScoreAnswers(s.answers, len(s.questions)),
		Result:        s.result,
	}
	if s.status == StatusInProgress {
		q := s.questions[s.current]
		view := &QuestionView{ID: q.ID, Text: q.Text, Options: q.Options}
		if _, answered := s.answers[s.current]; answered {
			correct := q.CorrectAnswerIndex
			view.CorrectAnswerIndex = &correct
		}
		snap.Question = view
	}
	return snap
}
