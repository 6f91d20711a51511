package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/storage/database/inmem"
	"github.com/trezcool/proctor/storage/database/sqlx"
	"github.com/trezcool/proctor/tests"
)

type repos struct {
	quizzes    quiz.Repository
	activities proctor.ActivityRepository
}

func backends(t *testing.T) map[string]repos {
	db := testutil.PrepareDB(t)
	mem := inmemdb.Open()
	return map[string]repos{
		"sqlx": {
			quizzes:    sqlxrepos.NewQuizRepository(db),
			activities: sqlxrepos.NewActivityRepository(db),
		},
		"inmem": {
			quizzes:    inmemdb.NewQuizRepository(mem),
			activities: inmemdb.NewActivityRepository(mem),
		},
	}
}

func TestQuizRepository(t *testing.T) {
	ctx := context.Background()

	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := testutil.CreateQuiz(t, r.quizzes, "Algebra", 0, 3, 1)

			got, err := r.quizzes.GetQuiz(ctx, want.ID)
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Title, got.Title)
			assert.Equal(t, want.CreatedBy, got.CreatedBy)
			assert.Equal(t, want.Questions, got.Questions)
			assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Millisecond)

			_, err = r.quizzes.GetQuiz(ctx, "missing")
			assert.True(t, core.IsNotFound(err))
		})
	}
}

func TestQuizRepository_ListQuizzes(t *testing.T) {
	ctx := context.Background()

	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			quizzes, err := r.quizzes.ListQuizzes(ctx)
			require.NoError(t, err)
			assert.Empty(t, quizzes)

			older := testutil.CreateQuiz(t, r.quizzes, "Algebra", 0, 3, 1)
			time.Sleep(2 * time.Millisecond)
			newer := testutil.CreateQuiz(t, r.quizzes, "Botany", 2)

			quizzes, err = r.quizzes.ListQuizzes(ctx)
			require.NoError(t, err)
			require.Len(t, quizzes, 2)
			for i, want := range []quiz.Quiz{newer, older} {
				assert.Equal(t, want.ID, quizzes[i].ID)
				assert.Equal(t, want.Title, quizzes[i].Title)
				assert.Equal(t, want.Questions, quizzes[i].Questions)
			}
		})
	}
}

func TestQuizRepository_attemptResults(t *testing.T) {
	ctx := context.Background()

	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			q := testutil.CreateQuiz(t, r.quizzes, "Geometry", 0, 1)
			now := time.Now().UTC()

			var saved []quiz.AttemptResult
			for i, cand := range []string{"c1", "c2", "c1"} {
				res := quiz.Evaluate(q, []int{0, i % 2})
				res.ID = fmt.Sprintf("r%d", i)
				res.CandidateID = cand
				res.Status = quiz.StatusCompleted
				if i == 2 {
					res.Status = quiz.StatusForced
					res.WarningCount = 3
				}
				res.SubmittedAt = now.Add(time.Duration(i) * time.Minute)
				res, err := r.quizzes.SaveAttemptResult(ctx, res)
				require.NoError(t, err)
				saved = append(saved, res)
			}

			results, err := r.quizzes.QueryAttemptResults(ctx, quiz.ResultFilter{CandidateID: "c1"})
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "r2", results[0].ID, "newest first")
			assert.Equal(t, "r0", results[1].ID)
			assert.True(t, results[0].Forced())
			assert.Equal(t, 3, results[0].WarningCount)
			assert.Equal(t, saved[2].Outcomes, results[0].Outcomes)
			assert.Equal(t, saved[0].Percentage, results[1].Percentage)
			assert.Equal(t, saved[0].Passed, results[1].Passed)

			results, err = r.quizzes.QueryAttemptResults(ctx, quiz.ResultFilter{QuizID: q.ID})
			require.NoError(t, err)
			assert.Len(t, results, 3)

			results, err = r.quizzes.QueryAttemptResults(ctx, quiz.ResultFilter{CandidateID: "nobody"})
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestActivityRepository(t *testing.T) {
	ctx := context.Background()

	for name, r := range backends(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now().UTC()
			for i := 0; i < 5; i++ {
				_, err := r.activities.LogActivity(ctx, proctor.Activity{
					ID:          fmt.Sprintf("a%d", i),
					Identity:    "c1",
					Kind:        proctor.ActivityWarning,
					Description: fmt.Sprintf("warning %d", i),
					CreatedAt:   now.Add(time.Duration(i) * time.Second),
				})
				require.NoError(t, err)
			}
			_, err := r.activities.LogActivity(ctx, proctor.Activity{ID: "other", Identity: "c2", Kind: proctor.ActivityConnected, CreatedAt: now})
			require.NoError(t, err)

			acts, err := r.activities.QueryActivity(ctx, "c1", 3)
			require.NoError(t, err)
			require.Len(t, acts, 3)
			assert.Equal(t, []string{"a4", "a3", "a2"}, []string{acts[0].ID, acts[1].ID, acts[2].ID})
			assert.Equal(t, proctor.ActivityWarning, acts[0].Kind)

			acts, err = r.activities.QueryActivity(ctx, "nobody", proctor.ActivityLimit)
			require.NoError(t, err)
			assert.Empty(t, acts)
		})
	}
}
