package quiz

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/proctor/core"
)

var (
	correctOptionTag  = "correct_option"
	correctOptionText = "the correct option must be one of the options"
)

// InitValidators registers the quiz validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, Question{})
	core.RegisterCustomTranslation(validate, translator, correctOptionTag, correctOptionText)
}

// Validate cleans and validates the Quiz.
func (q *Quiz) Validate(validate *validator.Validate) error {
	q.Title = core.CleanString(q.Title)
	for i := range q.Questions {
		q.Questions[i].Prompt = core.CleanString(q.Questions[i].Prompt)
	}
	return validate.Struct(q)
}

// Validate cleans and validates the NewAttempt.
func (na *NewAttempt) Validate(validate *validator.Validate) error {
	na.QuizID = core.CleanString(na.QuizID)
	return validate.Struct(na)
}

// Validate cleans and validates the Submission.
func (sub *Submission) Validate(validate *validator.Validate) error {
	sub.QuizID = core.CleanString(sub.QuizID)
	return validate.Struct(sub)
}

func questionStructValidation(sl validator.StructLevel) {
	qn := sl.Current().Interface().(Question)
	if qn.CorrectOption >= len(qn.Options) {
		sl.ReportError(qn.CorrectOption, "correctOption", "CorrectOption", correctOptionTag, "")
	}
}

// answersLengthError reports a submission that does not match the quiz length.
func answersLengthError(want, got int) error {
	err := fmt.Errorf("expected %d answers, got %d", want, got)
	return core.NewValidationError(err, core.FieldError{Field: "answers", Error: err.Error()})
}
