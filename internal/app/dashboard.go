package app

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"trivia-quiz-service/internal/domain"
)

// BadgeRepository lists the badge catalogue.
type BadgeRepository interface {
	ListBadges(ctx context.Context) ([]domain.Badge, error)
}

const (
	dashboardRecentLimit = 5
	DefaultRecentResults = 8
)

// Dashboard is the personal overview of a logged-in user.
type Dashboard struct {
	User          domain.User         `json:"user"`
	Stats         domain.UserStats    `json:"stats"`
	Accuracy      int                 `json:"accuracy"`
	RecentResults []domain.QuizResult `json:"recentResults"`
	Badges        []domain.Badge      `json:"badges"`
}

// DashboardService assembles dashboards and result feeds.
type DashboardService struct {
	users   UserRepository
	results ResultRepository
	badges  BadgeRepository
}

func NewDashboardService(users UserRepository, results ResultRepository, badges BadgeRepository) *DashboardService {
	return &DashboardService{users: users, results: results, badges: badges}
}

// Dashboard loads the user, their newest results and the badges they hold.
// A badge lookup failure leaves the badge list empty instead of failing.
func (s *DashboardService) Dashboard(ctx context.Context, principal *domain.Principal) (Dashboard, error) {
	if principal == nil {
		return Dashboard{}, domain.ErrUnauthenticated
	}

	var (
		user    domain.User
		recent  []domain.QuizResult
		catalog []domain.Badge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.GetUser(gctx, principal.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.results.ListQuizResults(gctx, domain.ResultQuery{
			UserID:      principal.UserID,
			NewestFirst: true,
			Limit:       dashboardRecentLimit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		if catalog, err = s.badges.ListBadges(gctx); err != nil {
			log.Printf("list badges failed: %v", err)
			catalog = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		User:          user,
		Stats:         user.Stats,
		Accuracy:      StatsAccuracy(user.Stats),
		RecentResults: recent,
		Badges:        earnedBadges(catalog, user.Badges),
	}, nil
}

// RecentResults returns the newest results across all users.
func (s *DashboardService) RecentResults(ctx context.Context, limit int) ([]domain.QuizResult, error) {
	if limit <= 0 {
		limit = DefaultRecentResults
	}
	return s.results.ListQuizResults(ctx, domain.ResultQuery{NewestFirst: true, Limit: limit})
}

// Badges returns the full badge catalogue.
func (s *DashboardService) Badges(ctx context.Context) ([]domain.Badge, error) {
	return s.badges.ListBadges(ctx)
}

// StatsAccuracy is the all-time share of correct answers, in percent.
func StatsAccuracy(stats domain.UserStats) int {
	den := stats.TotalAnswers
	if den < 1 {
		den = 1
	}
	return roundedRatio(stats.CorrectAnswers*100, den)
}

func earnedBadges(catalog []domain.Badge, held []string) []domain.Badge {
	owned := make(map[string]struct{}, len(held))
	for _, id := range held {
		owned[id] = struct{}{}
	}
	out := make([]domain.Badge, 0, len(held))
	for _, b := range catalog {
		if _, ok := owned[b.ID]; ok {
			out = append(out, b)
		}
	}
	return out
}
