package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/core/user"
)

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerQuizAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *quiz.Service,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := quizApi{
		svc:      svc,
		validate: validate,
		logger:   logger,
	}
	candidateOnly := roleMiddleware(validate, user.RoleCandidate)

	qg := g.Group("/quizzes", jwt)
	qg.GET("", api.list)
	qg.GET("/:id", api.retrieve)

	g.POST("/attempts", api.begin, jwt, candidateOnly)
	g.POST("/attempts/submit", api.submit, jwt, candidateOnly)
	g.GET("/results", api.queryResults, jwt)
}

// Handlers

// list serves every quiz without its correct options.
func (api *quizApi) list(ctx echo.Context) error {
	quizzes, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing quizzes")
	}

	views := make([]quiz.View, len(quizzes))
	for i, q := range quizzes {
		views[i] = q.View()
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, q.View())
}

func (api *quizApi) begin(ctx echo.Context) error {
	var data quiz.NewAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := getContextPrincipal(ctx, api.validate)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	sess, err := api.svc.Begin(ctx.Request().Context(), p.ID, data.QuizID)
	if err != nil {
		return errors.Wrap(err, "beginning attempt")
	}
	api.logger.Info("attempt started", p, map[string]interface{}{"quiz": sess.QuizID})
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *quizApi) submit(ctx echo.Context) error {
	var data quiz.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := getContextPrincipal(ctx, api.validate)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	data.CandidateID = p.ID

	res, err := api.svc.Grade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// queryResults lists attempt results. Candidates only see their own.
func (api *quizApi) queryResults(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx, api.validate)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	filter := quiz.ResultFilter{
		CandidateID: core.CleanString(ctx.QueryParam("candidate")),
		QuizID:      core.CleanString(ctx.QueryParam("quiz")),
	}
	if p.IsCandidate() {
		filter.CandidateID = p.ID
	}

	results, err := api.svc.QueryResults(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, results)
}
