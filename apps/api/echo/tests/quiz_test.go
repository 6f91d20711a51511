package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/core/user"
	"github.com/trezcool/proctor/tests"
)

func Test_quizApi_list(t *testing.T) {
	app := setup(t)
	candToken := getToken(t, app.conf, "cand-1", user.RoleCandidate)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/quizzes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty", path: "/v1/quizzes", token: candToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})

	older := testutil.CreateQuiz(t, app.quizRepo, "Algebra", 0, 1)
	time.Sleep(2 * time.Millisecond)
	newer := testutil.CreateQuiz(t, app.quizRepo, "Botany", 2)

	req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes", candToken)
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correctOption")

	var views []quiz.View
	unmarchallObj(t, rec, &views)
	require.Len(t, views, 2)
	assert.Equal(t, newer.View(), views[0], "newest first")
	assert.Equal(t, older.View(), views[1])
}

func Test_quizApi_retrieve(t *testing.T) {
	app := setup(t)
	q := testutil.CreateQuiz(t, app.quizRepo, "Geography", 0, 1)
	candToken := getToken(t, app.conf, "cand-1", user.RoleCandidate)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/quizzes/" + q.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "unknown", path: "/v1/quizzes/nope", token: candToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: `quiz "nope" not found`}),
		},
		{name: "found (no correct options)", path: "/v1/quizzes/" + q.ID, token: candToken, wantCode: http.StatusOK, wantData: marchallObj(t, q.View())},
	})
}

func Test_quizApi_begin(t *testing.T) {
	app := setup(t)
	q := testutil.CreateQuiz(t, app.quizRepo, "History", 2)
	candToken := getToken(t, app.conf, "cand-1", user.RoleCandidate)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/attempts", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Candidate required", method: http.MethodPost, path: "/v1/attempts",
			token: getToken(t, app.conf, "obs-1", user.RoleObserver), body: marchallObj(t, quiz.NewAttempt{QuizID: q.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "quiz required", method: http.MethodPost, path: "/v1/attempts", token: candToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"quizId":"this field is required"}`),
		},
		{
			name: "unknown quiz", method: http.MethodPost, path: "/v1/attempts", token: candToken,
			body: marchallObj(t, quiz.NewAttempt{QuizID: "nope"}), wantCode: http.StatusNotFound,
		},
		{
			name: "started", method: http.MethodPost, path: "/v1/attempts", token: candToken,
			body: marchallObj(t, quiz.NewAttempt{QuizID: q.ID}), wantCode: http.StatusCreated,
		},
		{
			name: "already active", method: http.MethodPost, path: "/v1/attempts", token: candToken,
			body: marchallObj(t, quiz.NewAttempt{QuizID: q.ID}), wantCode: http.StatusConflict,
		},
	})

	sess, ok := app.hub.Monitor().Session("cand-1")
	require.True(t, ok)
	assert.Equal(t, q.ID, sess.QuizID)
}

func Test_quizApi_submit(t *testing.T) {
	app := setup(t)
	q := testutil.CreateQuiz(t, app.quizRepo, "Maths", 0, 1, 2, 3, 0)
	candToken := getToken(t, app.conf, "cand-1", user.RoleCandidate)

	begin := func() {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attempts", candToken, marchallObj(t, quiz.NewAttempt{QuizID: q.ID}))
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	submit := func(answers []int) (*quiz.AttemptResult, int) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attempts/submit", candToken,
			marchallObj(t, quiz.Submission{QuizID: q.ID, Answers: answers}))
		app.serve(req, rec)
		if rec.Code != http.StatusCreated {
			return nil, rec.Code
		}
		res := new(quiz.AttemptResult)
		unmarchallObj(t, rec, res)
		return res, rec.Code
	}

	t.Run("no session", func(t *testing.T) {
		_, code := submit([]int{0, 1, 2, 3, 0})
		assert.Equal(t, http.StatusNotFound, code)
	})

	begin()

	t.Run("answers length mismatch", func(t *testing.T) {
		_, code := submit([]int{0, 1})
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("graded", func(t *testing.T) {
		res, code := submit([]int{0, 1, 2, 0, 1})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, 3, res.Score)
		assert.Equal(t, 5, res.TotalQuestions)
		assert.Equal(t, 60.0, res.Percentage)
		assert.True(t, res.Passed)
		assert.Equal(t, quiz.StatusCompleted, res.Status)
		assert.Equal(t, "cand-1", res.CandidateID)
	})

	t.Run("graded once", func(t *testing.T) {
		_, code := submit([]int{0, 1, 2, 3, 0})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("terminated attempt is graded at termination", func(t *testing.T) {
		begin()
		for i := 0; i < app.conf.Proctor.WarningThreshold; i++ {
			_, err := app.hub.RecordWarning("cand-1", "tab-hidden")
			require.NoError(t, err)
		}

		_, code := submit([]int{0, 1, 2, 3, 0})
		assert.Equal(t, http.StatusConflict, code, "the forced result is already recorded")
	})

	t.Run("terminated quiz cannot be reopened", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attempts", candToken, marchallObj(t, quiz.NewAttempt{QuizID: q.ID}))
		app.serve(req, rec)
		assert.Equal(t, http.StatusConflict, rec.Code)

		_, code := submit([]int{0, 1, 2, 3, 0})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("results of candidate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/results", candToken)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var results []quiz.AttemptResult
		unmarchallObj(t, rec, &results)
		require.Len(t, results, 2)
		assert.Equal(t, quiz.StatusForced, results[0].Status)
		assert.Equal(t, 0, results[0].Score)
		assert.False(t, results[0].Passed)
		assert.Equal(t, 3, results[0].WarningCount)
		assert.Equal(t, quiz.StatusCompleted, results[1].Status)

		req, rec = newAuthRequest(http.MethodGet, "/v1/results?candidate=someone-else", getToken(t, app.conf, "obs-1", user.RoleObserver))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		results = nil
		unmarchallObj(t, rec, &results)
		assert.Empty(t, results)
	})
}
