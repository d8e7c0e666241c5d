package app

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"trivia-quiz-service/internal/domain"
)

// LeaderboardSize is the number of entries a leaderboard shows.
const LeaderboardSize = 10

// RankLeaderboard aggregates results per known user and returns the best
// limit entries by average score. Ties are broken by user id ascending.
// Results whose user is unknown are ignored.
func RankLeaderboard(results []domain.QuizResult, users []domain.User, limit int) []domain.LeaderboardEntry {
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	type runs struct {
		best, sum, count int
	}
	var order []string
	agg := make(map[string]*runs)
	for _, res := range results {
		if _, known := byID[res.UserID]; !known {
			continue
		}
		r, ok := agg[res.UserID]
		if !ok {
			r = &runs{best: res.Percentage}
			agg[res.UserID] = r
			order = append(order, res.UserID)
		}
		if res.Percentage > r.best {
			r.best = res.Percentage
		}
		r.sum += res.Percentage
		r.count++
	}

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		r := agg[id]
		entries = append(entries, domain.LeaderboardEntry{
			UserID:    id,
			Username:  byID[id].Username,
			BestScore: r.best,
			AvgScore:  roundedRatio(r.sum, r.count),
			Runs:      r.count,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AvgScore != entries[j].AvgScore {
			return entries[i].AvgScore > entries[j].AvgScore
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// LeaderboardService recomputes the leaderboard from storage on every call.
type LeaderboardService struct {
	results ResultRepository
	users   UserRepository
}

func NewLeaderboardService(results ResultRepository, users UserRepository) *LeaderboardService {
	return &LeaderboardService{results: results, users: users}
}

// Top returns the current top entries.
func (s *LeaderboardService) Top(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var (
		results []domain.QuizResult
		users   []domain.User
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = s.results.ListQuizResults(ctx, domain.ResultQuery{})
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.users.ListUsers(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return RankLeaderboard(results, users, LeaderboardSize), nil
}
