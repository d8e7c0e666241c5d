package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
)

// NewLeaderboardCmd prints the current top players.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top players",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd.Context(), *configPath, cmd.OutOrStdout())
		},
	}
}

func runLeaderboard(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	entries, err := app.NewLeaderboardService(b.store, b.store).Top(ctx)
	if err != nil {
		return err
	}
	printLeaderboard(out, entries)
	return nil
}

func printLeaderboard(out io.Writer, entries []domain.LeaderboardEntry) {
	if out == nil {
		out = os.Stdout
	}
	if len(entries) == 0 {
		color.New(color.FgYellow).Fprintln(out, "no results recorded yet")
		return
	}
	header := color.New(color.FgCyan, color.Bold)
	podium := color.New(color.FgYellow)
	header.Fprintf(out, "%-4s %-20s %6s %6s %5s\n", "#", "PLAYER", "AVG", "BEST", "RUNS")
	for i, e := range entries {
		line := fmt.Sprintf("%-4d %-20s %5d%% %5d%% %5d", i+1, e.Username, e.AvgScore, e.BestScore, e.Runs)
		if i < 3 {
			podium.Fprintln(out, line)
			continue
		}
		fmt.Fprintln(out, line)
	}
}
