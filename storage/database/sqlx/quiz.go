package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/quiz"
)

type quizRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

type questionRow struct {
	QuizID        string `db:"quiz_id"`
	Position      int    `db:"position"`
	Prompt        string `db:"prompt"`
	Options       string `db:"options"` // JSON array
	CorrectOption int    `db:"correct_option"`
}

type resultRow struct {
	ID             string    `db:"id"`
	CandidateID    string    `db:"candidate_id"`
	QuizID         string    `db:"quiz_id"`
	Score          int       `db:"score"`
	TotalQuestions int       `db:"total_questions"`
	Percentage     float64   `db:"percentage"`
	Passed         bool      `db:"passed"`
	Status         string    `db:"status"`
	WarningCount   int       `db:"warning_count"`
	Outcomes       string    `db:"outcomes"` // JSON array
	SubmittedAt    time.Time `db:"submitted_at"`
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

// dbTime truncates t to the precision kept by every supported engine.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	q.CreatedAt = dbTime(q.CreatedAt)

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO quizzes (id, title, created_by, created_at) VALUES (?, ?, ?, ?)"),
		q.ID, q.Title, q.CreatedBy, q.CreatedAt)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}

	insertQuestion := tx.Rebind("INSERT INTO questions (quiz_id, position, prompt, options, correct_option) VALUES (?, ?, ?, ?, ?)")
	for i, qn := range q.Questions {
		opts, err := json.Marshal(qn.Options)
		if err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "encoding options")
		}
		if _, err = tx.ExecContext(ctx, insertQuestion, q.ID, i, qn.Prompt, string(opts), qn.CorrectOption); err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "inserting question")
		}
	}

	if err = tx.Commit(); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "committing quiz")
	}
	return q, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	var row quizRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT id, title, created_by, created_at FROM quizzes WHERE id = ?"), id)
	if err == sql.ErrNoRows {
		return quiz.Quiz{}, core.NewNotFoundError("quiz", id)
	}
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "finding quiz")
	}

	var rows []questionRow
	err = repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind("SELECT quiz_id, position, prompt, options, correct_option FROM questions WHERE quiz_id = ? ORDER BY position"), id)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "querying questions")
	}

	q := quiz.Quiz{
		ID:        row.ID,
		Title:     row.Title,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt.UTC(),
		Questions: make([]quiz.Question, 0, len(rows)),
	}
	for _, r := range rows {
		qn := quiz.Question{Prompt: r.Prompt, CorrectOption: r.CorrectOption}
		if err = json.Unmarshal([]byte(r.Options), &qn.Options); err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "decoding options")
		}
		q.Questions = append(q.Questions, qn)
	}
	return q, nil
}

func (repo quizRepository) ListQuizzes(ctx context.Context) ([]quiz.Quiz, error) {
	var rows []quizRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT id, title, created_by, created_at FROM quizzes ORDER BY created_at DESC, id")
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}

	quizzes := make([]quiz.Quiz, 0, len(rows))
	if len(rows) == 0 {
		return quizzes, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	query, args, err := sqlx.In("SELECT quiz_id, position, prompt, options, correct_option FROM questions WHERE quiz_id IN (?) ORDER BY quiz_id, position", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building questions query")
	}
	var qRows []questionRow
	if err = repo.db.SelectContext(ctx, &qRows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}

	questions := make(map[string][]quiz.Question, len(rows))
	for _, r := range qRows {
		qn := quiz.Question{Prompt: r.Prompt, CorrectOption: r.CorrectOption}
		if err = json.Unmarshal([]byte(r.Options), &qn.Options); err != nil {
			return nil, errors.Wrap(err, "decoding options")
		}
		questions[r.QuizID] = append(questions[r.QuizID], qn)
	}

	for _, r := range rows {
		quizzes = append(quizzes, quiz.Quiz{
			ID:        r.ID,
			Title:     r.Title,
			CreatedBy: r.CreatedBy,
			CreatedAt: r.CreatedAt.UTC(),
			Questions: questions[r.ID],
		})
	}
	return quizzes, nil
}

func (repo quizRepository) SaveAttemptResult(ctx context.Context, res quiz.AttemptResult) (quiz.AttemptResult, error) {
	res.SubmittedAt = dbTime(res.SubmittedAt)

	outcomes, err := json.Marshal(res.Outcomes)
	if err != nil {
		return quiz.AttemptResult{}, errors.Wrap(err, "encoding outcomes")
	}

	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(`INSERT INTO attempt_results
		(id, candidate_id, quiz_id, score, total_questions, percentage, passed, status, warning_count, outcomes, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		res.ID, res.CandidateID, res.QuizID, res.Score, res.TotalQuestions, res.Percentage,
		res.Passed, res.Status, res.WarningCount, string(outcomes), res.SubmittedAt)
	if err != nil {
		return quiz.AttemptResult{}, errors.Wrap(err, "inserting attempt result")
	}
	return res, nil
}

func (repo quizRepository) QueryAttemptResults(ctx context.Context, filter quiz.ResultFilter) ([]quiz.AttemptResult, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CandidateID != "" {
		where = append(where, "candidate_id = ?")
		args = append(args, filter.CandidateID)
	}
	if filter.QuizID != "" {
		where = append(where, "quiz_id = ?")
		args = append(args, filter.QuizID)
	}

	q := `SELECT id, candidate_id, quiz_id, score, total_questions, percentage, passed, status, warning_count, outcomes, submitted_at
		FROM attempt_results`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY submitted_at DESC, id DESC"

	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying attempt results")
	}

	results := make([]quiz.AttemptResult, 0, len(rows))
	for _, r := range rows {
		res := quiz.AttemptResult{
			ID:             r.ID,
			CandidateID:    r.CandidateID,
			QuizID:         r.QuizID,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			Percentage:     r.Percentage,
			Passed:         r.Passed,
			Status:         r.Status,
			WarningCount:   r.WarningCount,
			SubmittedAt:    r.SubmittedAt.UTC(),
		}
		if err := json.Unmarshal([]byte(r.Outcomes), &res.Outcomes); err != nil {
			return nil, errors.Wrap(err, "decoding outcomes")
		}
		results = append(results, res)
	}
	return results, nil
}
