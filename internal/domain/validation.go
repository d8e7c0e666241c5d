package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return Difficulty(fl.Field().String()).Valid()
	})
	return v
}

// QuestionInput is the submitted form for creating or editing a question.
// Field order is the order rules are reported in.
type QuestionInput struct {
	Text               string     `json:"question" validate:"nonblank"`
	Options            []string   `json:"options" validate:"len=4,dive,nonblank"`
	CorrectAnswerIndex int        `json:"correctAnswer" validate:"min=0,max=3"`
	Category           string     `json:"category" validate:"nonblank"`
	Difficulty         Difficulty `json:"difficulty" validate:"difficulty"`
}

// Validate returns a *ValidationError for the first violated rule.
func (in QuestionInput) Validate() error {
	return firstViolation(validate.Struct(in), ErrInvalidQuestion, questionMessage)
}

// Question builds a trimmed question from valid input.
func (in QuestionInput) Question() Question {
	options := make([]string, len(in.Options))
	for i, opt := range in.Options {
		options[i] = strings.TrimSpace(opt)
	}
	return Question{
		Category:           strings.TrimSpace(in.Category),
		Difficulty:         in.Difficulty,
		Text:               strings.TrimSpace(in.Text),
		Options:            options,
		CorrectAnswerIndex: in.CorrectAnswerIndex,
	}
}

func questionMessage(fe validator.FieldError) string {
	field := fe.StructField()
	switch {
	case field == "Text":
		return "Question text is required."
	case field == "Options":
		return "Please provide 4 options."
	case strings.HasPrefix(field, "Options["):
		return "All options must be filled in."
	case field == "CorrectAnswerIndex":
		return "Correct answer index must be between 0 and 3."
	case field == "Category":
		return "Category is required."
	case field == "Difficulty":
		return "Difficulty must be easy, medium or hard."
	}
	return "Question is invalid."
}

// SignupInput is the account creation form.
type SignupInput struct {
	Username string `json:"username" validate:"nonblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"nonblank"`
}

// Validate returns a *ValidationError for the first violated rule.
func (in SignupInput) Validate() error {
	return firstViolation(validate.Struct(in), ErrInvalidSignup, signupMessage)
}

func signupMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Username":
		return "Username is required."
	case "Email":
		return "A valid email is required."
	}
	return "Password is required."
}

func firstViolation(err error, kind error, message func(validator.FieldError) string) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &ValidationError{
		Field:   fe.StructField(),
		Rule:    fe.Tag(),
		Message: message(fe),
		kind:    kind,
	}
}
