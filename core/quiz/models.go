package quiz

import (
	"math"
	"time"
)

const (
	// PassPercentage is the minimum percentage of a passed attempt.
	PassPercentage = 60.0

	// NoAnswer marks an unanswered question.
	NoAnswer = -1

	StatusCompleted = "completed"
	StatusForced    = "forced" // the attempt was terminated by the integrity monitor
)

type Question struct {
	Prompt        string   `json:"prompt" validate:"required,notblank"`
	Options       []string `json:"options" validate:"min=2,dive,required"`
	CorrectOption int      `json:"correctOption" validate:"min=0"`
}

type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title" validate:"required,notblank"`
	CreatedBy string     `json:"createdBy"`
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
	CreatedAt time.Time  `json:"createdAt"` // UTC
}

// QuestionView is a Question stripped of its correct answer.
type QuestionView struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// View is the Quiz served to candidates.
type View struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

func (q Quiz) View() View {
	v := View{ID: q.ID, Title: q.Title, Questions: make([]QuestionView, len(q.Questions))}
	for i, qn := range q.Questions {
		v.Questions[i] = QuestionView{Index: i, Prompt: qn.Prompt, Options: qn.Options}
	}
	return v
}

// NewAttempt is the request of a candidate to start a quiz.
type NewAttempt struct {
	QuizID string `json:"quizId" validate:"required,notblank"`
}

// Submission holds the answers of a candidate, one option index per question (NoAnswer if unanswered).
type Submission struct {
	QuizID      string `json:"quizId" validate:"required,notblank"`
	CandidateID string `json:"-"`
	Answers     []int  `json:"answers" validate:"dive,min=-1"`
}

type QuestionOutcome struct {
	Index           int  `json:"index"`
	SubmittedAnswer int  `json:"submittedAnswer"`
	ExpectedAnswer  int  `json:"expectedAnswer"`
	Correct         bool `json:"correct"`
}

type AttemptResult struct {
	ID             string            `json:"id"`
	CandidateID    string            `json:"candidateIdentity"`
	QuizID         string            `json:"quizId"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	Percentage     float64           `json:"percentage"`
	Passed         bool              `json:"passed"`
	Status         string            `json:"status"`
	WarningCount   int               `json:"warningCount"`
	Outcomes       []QuestionOutcome `json:"outcomes"`
	SubmittedAt    time.Time         `json:"submittedAt"` // UTC
}

func (r AttemptResult) Forced() bool {
	return r.Status == StatusForced
}

// ResultFilter narrows QueryAttemptResults; empty fields match everything.
type ResultFilter struct {
	CandidateID string
	QuizID      string
}

// Evaluate compares answers with the correct options of q.
// answers must have exactly one entry per question.
func Evaluate(q Quiz, answers []int) AttemptResult {
	res := AttemptResult{
		QuizID:         q.ID,
		TotalQuestions: len(q.Questions),
		Outcomes:       make([]QuestionOutcome, len(q.Questions)),
	}
	for i, qn := range q.Questions {
		out := QuestionOutcome{
			Index:           i,
			SubmittedAnswer: answers[i],
			ExpectedAnswer:  qn.CorrectOption,
			Correct:         answers[i] == qn.CorrectOption,
		}
		if out.Correct {
			res.Score++
		}
		res.Outcomes[i] = out
	}
	if res.TotalQuestions > 0 {
		res.Percentage = roundPercentage(float64(res.Score) / float64(res.TotalQuestions) * 100)
	}
	res.Passed = res.Percentage >= PassPercentage
	return res
}

// roundPercentage rounds to 2 decimal places.
func roundPercentage(p float64) float64 {
	return math.Round(p*100) / 100
}

// Unanswered returns a submission with every question left unanswered.
func Unanswered(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = NoAnswer
	}
	return answers
}
