package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
)

var ErrEmptyQuiz = errors.New("quiz has no questions")

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// GetQuiz fails with core.NotFoundError when the quiz does not exist.
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		// ListQuizzes returns every quiz, newest first.
		ListQuizzes(ctx context.Context) ([]Quiz, error)
		SaveAttemptResult(ctx context.Context, res AttemptResult) (AttemptResult, error)
		// QueryAttemptResults returns results matching filter, newest first.
		QueryAttemptResults(ctx context.Context, filter ResultFilter) ([]AttemptResult, error)
	}

	// SessionTracker is the part of proctor.Monitor needed to grade attempts.
	SessionTracker interface {
		Begin(candidateID, quizID string) (proctor.AttemptSession, error)
		Session(candidateID string) (proctor.AttemptSession, bool)
		ClaimGrading(candidateID, quizID string) (proctor.AttemptSession, error)
		ReleaseGrading(candidateID string, settled bool)
	}

	Service struct {
		repo     Repository
		sessions SessionTracker
		logger   core.Logger
		nowFunc  func() time.Time // mockable
	}
)

func NewService(repo Repository, sessions SessionTracker, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// storeError converts a repository failure into a retryable core.DependencyError.
func storeError(err error) error {
	if core.IsNotFound(err) || core.IsValidation(err) {
		return err
	}
	return core.NewDependencyError("quiz store", err, true)
}

func (svc *Service) Create(ctx context.Context, q Quiz) (Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = svc.nowFunc().UTC()
	q, err := svc.repo.CreateQuiz(ctx, q)
	if err != nil {
		return Quiz{}, storeError(err)
	}
	return q, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, core.CleanString(id))
	if err != nil {
		return Quiz{}, storeError(err)
	}
	return q, nil
}

func (svc *Service) List(ctx context.Context) ([]Quiz, error) {
	quizzes, err := svc.repo.ListQuizzes(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return quizzes, nil
}

func (svc *Service) QueryResults(ctx context.Context, filter ResultFilter) ([]AttemptResult, error) {
	results, err := svc.repo.QueryAttemptResults(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return results, nil
}

// Begin opens a monitored attempt of quizID for the candidate.
// A quiz whose attempt was terminated cannot be taken again by the same candidate.
func (svc *Service) Begin(ctx context.Context, candidateID, quizID string) (proctor.AttemptSession, error) {
	q, err := svc.Get(ctx, quizID)
	if err != nil {
		return proctor.AttemptSession{}, err
	}
	if len(q.Questions) == 0 {
		return proctor.AttemptSession{}, core.NewValidationError(ErrEmptyQuiz)
	}

	results, err := svc.QueryResults(ctx, ResultFilter{CandidateID: candidateID, QuizID: q.ID})
	if err != nil {
		return proctor.AttemptSession{}, err
	}
	for _, res := range results {
		if res.Forced() {
			return proctor.AttemptSession{}, core.NewStateError("attempt was terminated by the integrity monitor")
		}
	}
	return svc.sessions.Begin(candidateID, q.ID)
}

// Finalize records the forced result of the candidate's terminated attempt with every question unanswered.
// It fails with a core.StateError when the attempt is not terminated or already graded.
func (svc *Service) Finalize(ctx context.Context, candidateID string) (AttemptResult, error) {
	sess, ok := svc.sessions.Session(candidateID)
	if !ok {
		return AttemptResult{}, core.NewNotFoundError("session", candidateID)
	}
	if sess.State != proctor.StateTerminated {
		return AttemptResult{}, core.NewStateError("attempt is not terminated")
	}
	if sess.Graded {
		return AttemptResult{}, core.NewStateError("attempt has already been graded")
	}
	return svc.Grade(ctx, Submission{QuizID: sess.QuizID, CandidateID: candidateID})
}

// Grade scores the submission and records exactly one result per attempt.
// A terminated attempt is graded as forced; its answers may be empty, meaning all unanswered.
func (svc *Service) Grade(ctx context.Context, sub Submission) (AttemptResult, error) {
	q, err := svc.Get(ctx, sub.QuizID)
	if err != nil {
		return AttemptResult{}, err
	}
	if len(q.Questions) == 0 {
		return AttemptResult{}, core.NewValidationError(ErrEmptyQuiz)
	}

	sess, ok := svc.sessions.Session(sub.CandidateID)
	if !ok || sess.QuizID != q.ID {
		return AttemptResult{}, core.NewNotFoundError("session", sub.CandidateID)
	}

	answers := sub.Answers
	if len(answers) == 0 && sess.State == proctor.StateTerminated {
		answers = Unanswered(len(q.Questions))
	}
	if len(answers) != len(q.Questions) {
		return AttemptResult{}, answersLengthError(len(q.Questions), len(answers))
	}

	sess, err = svc.sessions.ClaimGrading(sub.CandidateID, q.ID)
	if err != nil {
		return AttemptResult{}, err
	}

	res := Evaluate(q, answers)
	res.ID = uuid.NewString()
	res.CandidateID = sub.CandidateID
	res.WarningCount = sess.WarningCount
	res.SubmittedAt = svc.nowFunc().UTC()
	res.Status = StatusCompleted
	if sess.State == proctor.StateTerminated {
		res.Status = StatusForced
	}

	res, err = svc.repo.SaveAttemptResult(ctx, res)
	if err != nil {
		svc.sessions.ReleaseGrading(sub.CandidateID, false)
		svc.logger.Error("failed to save attempt result", err, map[string]interface{}{
			"candidate": sub.CandidateID,
			"quiz":      q.ID,
		})
		return AttemptResult{}, core.NewDependencyError("quiz store", err, true)
	}
	svc.sessions.ReleaseGrading(sub.CandidateID, true)
	return res, nil
}
