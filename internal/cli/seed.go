package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
)

// seedQuestion is one entry of a questions YAML file.
type seedQuestion struct {
	Category      string   `yaml:"category"`
	Difficulty    string   `yaml:"difficulty"`
	Question      string   `yaml:"question"`
	Options       []string `yaml:"options"`
	CorrectAnswer int      `yaml:"correct_answer"`
}

// NewSeedCmd loads questions from a YAML file into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import questions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/questions.yaml", "questions YAML file")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	inputs, err := parseSeedFile(f)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	if !b.persistent {
		return fmt.Errorf("seed needs a postgres url or sqlite path")
	}

	for _, in := range inputs {
		q, err := b.store.CreateQuestion(ctx, in.Question())
		if err != nil {
			return fmt.Errorf("create question %q: %w", in.Text, err)
		}
		if err := b.questions.Invalidate(ctx, domain.QuestionFilter{Category: q.Category, Difficulty: q.Difficulty}); err != nil {
			log.Printf("invalidate cache for %s/%s failed: %v", q.Category, q.Difficulty, err)
		}
	}
	log.Printf("seeded %d questions from %s", len(inputs), file)
	return nil
}

// parseSeedFile decodes and validates every question before anything is written.
func parseSeedFile(r io.Reader) ([]domain.QuestionInput, error) {
	var entries []seedQuestion
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	inputs := make([]domain.QuestionInput, 0, len(entries))
	for i, e := range entries {
		in := domain.QuestionInput{
			Text:               e.Question,
			Options:            e.Options,
			CorrectAnswerIndex: e.CorrectAnswer,
			Category:           e.Category,
			Difficulty:         domain.Difficulty(e.Difficulty),
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
