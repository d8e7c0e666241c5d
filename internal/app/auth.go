package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"trivia-quiz-service/internal/domain"
)

// PrincipalStore keeps logged-in principals by token id so they survive
// reconnects and restarts, until logout or expiry.
type PrincipalStore interface {
	Save(ctx context.Context, principal domain.Principal, ttl time.Duration) error
	Load(ctx context.Context, tokenID string) (domain.Principal, error)
	Delete(ctx context.Context, tokenID string) error
}

// Claims are the JWT claims issued at login and signup.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long issued tokens stay valid.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

func (i *TokenIssuer) Issue(p domain.Principal) (string, error) {
	now := i.now()
	claims := &Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.TokenID,
			Subject:   p.UserID,
			Issuer:    "trivia-quiz-service",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthResult is what signup and login hand back to the caller.
type AuthResult struct {
	Token     string           `json:"token"`
	User      domain.User      `json:"user"`
	Principal domain.Principal `json:"-"`
}

// AuthService owns signup, login and the principal lifecycle.
type AuthService struct {
	users      UserRepository
	principals PrincipalStore
	tokens     *TokenIssuer
	now        func() time.Time
}

func NewAuthService(users UserRepository, principals PrincipalStore, tokens *TokenIssuer) *AuthService {
	return &AuthService{users: users, principals: principals, tokens: tokens, now: time.Now}
}

// firstBadge is granted to every new account.
const firstBadge = "first_step"

// Signup creates an account. A registered email is rejected before anything is written.
func (s *AuthService) Signup(ctx context.Context, in domain.SignupInput) (AuthResult, error) {
	if err := in.Validate(); err != nil {
		return AuthResult{}, err
	}
	email := normalizeEmail(in.Email)
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return AuthResult{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, domain.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Badges:       []string{firstBadge},
		JoinedAt:     s.now().UTC(),
	})
	if err != nil {
		return AuthResult{}, err
	}
	return s.open(ctx, user)
}

// FindUsersByCredentials returns the single matching user, or none.
func (s *AuthService) FindUsersByCredentials(ctx context.Context, email, password string) ([]domain.User, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return []domain.User{user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	users, err := s.FindUsersByCredentials(ctx, email, password)
	if err != nil {
		return AuthResult{}, err
	}
	if len(users) == 0 {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	return s.open(ctx, users[0])
}

func (s *AuthService) open(ctx context.Context, user domain.User) (AuthResult, error) {
	principal := domain.Principal{
		TokenID:  uuid.NewString(),
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		IssuedAt: s.now().UTC(),
	}
	token, err := s.tokens.Issue(principal)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.principals.Save(ctx, principal, s.tokens.TTL()); err != nil {
		return AuthResult{}, fmt.Errorf("save principal: %w", err)
	}
	return AuthResult{Token: token, User: user, Principal: principal}, nil
}

// Authenticate resolves a token to the principal stored at login.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	principal, err := s.principals.Load(ctx, claims.ID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if principal.UserID != claims.Subject {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return principal, nil
}

// Logout forgets the principal behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return s.principals.Delete(ctx, claims.ID)
}

// Me returns the stored account of the principal.
func (s *AuthService) Me(ctx context.Context, principal *domain.Principal) (domain.User, error) {
	if principal == nil {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return s.users.GetUser(ctx, principal.UserID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
