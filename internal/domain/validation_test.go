package domain

import (
	"errors"
	"testing"
)

func validInput() QuestionInput {
	return QuestionInput{
		Text:               "What is the chemical symbol for gold?",
		Options:            []string{"Au", "Ag", "Gd", "Go"},
		CorrectAnswerIndex: 0,
		Category:           "science",
		Difficulty:         DifficultyEasy,
	}
}

func TestQuestionInputValidateRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*QuestionInput)
		want   string
	}{
		{"missing text", func(in *QuestionInput) { in.Text = "   " }, "Question text is required."},
		{"three options", func(in *QuestionInput) { in.Options = in.Options[:3] }, "Please provide 4 options."},
		{"no options", func(in *QuestionInput) { in.Options = nil }, "Please provide 4 options."},
		{"blank option", func(in *QuestionInput) { in.Options[2] = " " }, "All options must be filled in."},
		{"negative index", func(in *QuestionInput) { in.CorrectAnswerIndex = -1 }, "Correct answer index must be between 0 and 3."},
		{"index too large", func(in *QuestionInput) { in.CorrectAnswerIndex = 4 }, "Correct answer index must be between 0 and 3."},
		{"missing category", func(in *QuestionInput) { in.Category = "" }, "Category is required."},
		{"unknown difficulty", func(in *QuestionInput) { in.Difficulty = "extreme" }, "Difficulty must be easy, medium or hard."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.Options = append([]string(nil), in.Options...)
			tc.mutate(&in)
			err := in.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrInvalidQuestion) {
				t.Fatalf("expected ErrInvalidQuestion, got %v", err)
			}
			if err.Error() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestQuestionInputReportsTextBeforeOptions(t *testing.T) {
	in := QuestionInput{Difficulty: DifficultyHard}
	err := in.Validate()
	if err == nil || err.Error() != "Question text is required." {
		t.Fatalf("expected text rule first, got %v", err)
	}
}

func TestQuestionInputTrims(t *testing.T) {
	in := validInput()
	in.Text = "  Spaced?  "
	in.Options = []string{" a", "b ", " c ", "d"}
	if err := in.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	q := in.Question()
	if q.Text != "Spaced?" || q.Options[0] != "a" || q.Options[2] != "c" {
		t.Fatalf("expected trimmed question, got %+v", q)
	}
}

func TestSignupInputValidate(t *testing.T) {
	ok := SignupInput{Username: "ada", Email: "ada@example.com", Password: "secret"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid signup, got %v", err)
	}

	bad := ok
	bad.Email = "not-an-email"
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidSignup) || err.Error() != "A valid email is required." {
		t.Fatalf("expected email rule, got %v", err)
	}
	if errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("signup error must not match question kind")
	}
}
