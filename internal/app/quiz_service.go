package app

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-quiz-service/internal/domain"
)

// SessionRepository abstracts where live quiz sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

const (
	DefaultCategory   = "science"
	DefaultDifficulty = domain.DifficultyEasy
)

// FinishedRetention is how long a completed session's final state stays
// retrievable after the session itself is released.
const FinishedRetention = 5 * time.Minute

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionSource
	recorder  *Recorder
	opts      SessionOptions
	newID     func() string
	now       func() time.Time

	finishedMu sync.Mutex
	finished   map[string]finishedSession
}

type finishedSession struct {
	snap SessionSnapshot
	at   time.Time
}

// NewQuizService wires the session use cases. opts.OnComplete is owned by the
// service and overwritten.
func NewQuizService(store SessionRepository, questions QuestionSource, recorder *Recorder, opts SessionOptions) *QuizService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &QuizService{
		sessions:  store,
		questions: questions,
		recorder:  recorder,
		opts:      opts,
		newID:     uuid.NewString,
		now:       now,
		finished:  make(map[string]finishedSession),
	}
}

// Start opens a session for principal (nil when anonymous) and loads its
// questions. A failed load returns the errored snapshot together with the error.
func (s *QuizService) Start(ctx context.Context, principal *domain.Principal, category string, difficulty domain.Difficulty) (SessionSnapshot, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	if !difficulty.Valid() {
		return SessionSnapshot{}, domain.ErrInvalidDifficulty
	}

	opts := s.opts
	opts.OnComplete = s.complete
	session := NewSession(s.newID(), principal, category, difficulty, opts)
	s.sessions.Put(session)

	if err := session.Load(ctx, s.questions); err != nil {
		s.sessions.Delete(session.ID())
		log.Printf("session %s failed to load: %v", session.ID(), err)
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// complete keeps the final state around before releasing the session, so a
// finish that lost the race against the timer still gets the result.
func (s *QuizService) complete(session *Session, result domain.QuizResult) {
	s.remember(session.Snapshot())
	s.sessions.Delete(session.ID())
	if s.recorder != nil {
		s.recorder.Record(context.Background(), session.Principal(), result)
	}
}

func (s *QuizService) remember(snap SessionSnapshot) {
	now := s.now()
	s.finishedMu.Lock()
	defer s.finishedMu.Unlock()
	for id, f := range s.finished {
		if now.Sub(f.at) > FinishedRetention {
			delete(s.finished, id)
		}
	}
	s.finished[snap.ID] = finishedSession{snap: snap, at: now}
}

func (s *QuizService) finishedSnapshot(sessionID string) (SessionSnapshot, bool) {
	s.finishedMu.Lock()
	defer s.finishedMu.Unlock()
	f, ok := s.finished[sessionID]
	if !ok {
		return SessionSnapshot{}, false
	}
	if s.now().Sub(f.at) > FinishedRetention {
		delete(s.finished, sessionID)
		return SessionSnapshot{}, false
	}
	return f.snap, true
}

func (s *QuizService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) Select(_ context.Context, sessionID string, optionIndex int) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Select(optionIndex)
}

func (s *QuizService) Next(_ context.Context, sessionID string) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Next()
}

func (s *QuizService) Previous(_ context.Context, sessionID string) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Previous()
}

func (s *QuizService) GoTo(_ context.Context, sessionID string, position int) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.GoTo(position)
}

// Tick counts the session down by one second outside of its own timer.
func (s *QuizService) Tick(_ context.Context, sessionID string) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Tick()
}

// Finish completes the session. Once completed, further calls return the
// stored result until FinishedRetention has passed.
func (s *QuizService) Finish(_ context.Context, sessionID string) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		if snap, ok := s.finishedSnapshot(sessionID); ok {
			return snap, nil
		}
		return SessionSnapshot{}, err
	}
	return session.Finish()
}

// Exit abandons the session without recording anything.
func (s *QuizService) Exit(_ context.Context, sessionID string) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	snap, err := session.Exit()
	s.sessions.Delete(sessionID)
	return snap, err
}

func (s *QuizService) Snapshot(_ context.Context, sessionID string) (SessionSnapshot, error) {
	session, err := s.session(sessionID)
	if err != nil {
		if snap, ok := s.finishedSnapshot(sessionID); ok {
			return snap, nil
		}
		return SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives every state change of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan SessionSnapshot, func(), error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}
