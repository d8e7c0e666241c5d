package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when acting on a session that is no longer in progress.
	ErrSessionClosed = errors.New("quiz session is not in progress")
	// ErrQuestionsUnavailable indicates the question fetch failed while loading a session.
	ErrQuestionsUnavailable = errors.New("unable to load questions")
	// ErrNoQuestions indicates the question source returned nothing for the requested filter.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidPosition indicates a navigation target outside the session's questions.
	ErrInvalidPosition = errors.New("question position out of range")
	// ErrInvalidDifficulty is returned when a session is started with an unknown difficulty.
	ErrInvalidDifficulty = errors.New("difficulty must be easy, medium or hard")
	// ErrOptionOutOfRange indicates a selection outside the question's options.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrQuestionNotFound indicates a question id is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion is matched by every question ValidationError.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrNotQuestionAuthor is matched by ownership failures on question edits and deletes.
	ErrNotQuestionAuthor = errors.New("question belongs to another author")
	// ErrUserNotFound indicates a user id or email is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidSignup is matched by signup input ValidationErrors.
	ErrInvalidSignup = errors.New("invalid signup")
	// ErrUnauthenticated is returned when an operation needs a logged-in user.
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError reports the first violated input rule with a user-facing message.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
	kind    error
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets callers match the error against its kind sentinel.
func (e *ValidationError) Is(target error) bool { return target == e.kind }

// AuthorizationError is returned when a user acts on a question they do not own.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func (e *AuthorizationError) Is(target error) bool { return target == ErrNotQuestionAuthor }

// AuthenticationError is returned when an operation needs a logged-in user.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func (e *AuthenticationError) Is(target error) bool { return target == ErrUnauthenticated }
