package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/relay"
	"github.com/trezcool/proctor/core/user"
)

type (
	proctorApi struct {
		hub        *relay.Hub
		activities proctor.ActivityRepository
		validate   *validator.Validate
		upgrader   websocket.Upgrader
		conf       core.ServerConfig
		logger     core.Logger
	}

	warningRequest struct {
		Reason proctor.Reason `json:"reason" validate:"required,oneof=tab-hidden fullscreen-exit"`
	}

	warningResponse struct {
		Warnings   int    `json:"warnings"`
		Threshold  int    `json:"threshold"`
		Terminated bool   `json:"terminated"`
		Message    string `json:"message"`
	}
)

func registerProctorAPI(g *echo.Group, jwt, wsJWT echo.MiddlewareFunc, deps *Deps) {
	api := proctorApi{
		hub:        deps.Hub,
		activities: deps.Activities,
		validate:   deps.Validate,
		upgrader:   newUpgrader(deps.Conf.Server.AllowedOrigins),
		conf:       deps.Conf.Server,
		logger:     deps.Logger,
	}
	candidateOnly := roleMiddleware(deps.Validate, user.RoleCandidate)
	observerOnly := roleMiddleware(deps.Validate, user.RoleObserver)

	g.GET("/ws", api.connect, wsJWT)
	g.POST("/attempts/warnings", api.warn, jwt, candidateOnly)
	g.GET("/sessions/:identity", api.session, jwt, observerOnly)
	g.GET("/activity/:identity", api.activity, jwt, observerOnly)
}

// Handlers

// connect upgrades the request and serves the real-time channel until the client goes away.
func (api *proctorApi) connect(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx, api.validate)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	ws, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		api.logger.Warn("websocket upgrade failed", err, p)
		return nil
	}

	conn := newWSConnection(ws, api.conf)
	api.hub.Connect(conn, p)
	go conn.writePump()
	conn.readPump(func(data []byte) {
		api.hub.HandleMessage(p, data)
	})
	api.hub.Disconnect(conn)
	return nil
}

// warn records an integrity signal reported over HTTP.
func (api *proctorApi) warn(ctx echo.Context) error {
	var data warningRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to warningRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	p, err := getContextPrincipal(ctx, api.validate)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	out, err := api.hub.RecordWarning(p.ID, data.Reason)
	if err != nil {
		return errors.Wrap(err, "recording warning")
	}
	return ctx.JSON(http.StatusOK, newWarningResponse(out, api.hub.Monitor().Threshold()))
}

func newWarningResponse(out proctor.WarningOutcome, threshold int) warningResponse {
	resp := warningResponse{
		Warnings:   out.Session.WarningCount,
		Threshold:  threshold,
		Terminated: out.Session.State == proctor.StateTerminated,
	}
	switch {
	case !out.Recorded:
		resp.Message = "Attempt is no longer active"
	case resp.Terminated:
		resp.Message = fmt.Sprintf("Attempt terminated after %d warnings", resp.Warnings)
	default:
		resp.Message = fmt.Sprintf("Warning %d of %d", resp.Warnings, threshold)
	}
	return resp
}

func (api *proctorApi) session(ctx echo.Context) error {
	identity := ctx.Param("identity")
	sess, ok := api.hub.Monitor().Session(identity)
	if !ok {
		return core.NewNotFoundError("session", identity)
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *proctorApi) activity(ctx echo.Context) error {
	identity := ctx.Param("identity")
	acts, err := api.activities.QueryActivity(ctx.Request().Context(), identity, proctor.ActivityLimit)
	if err != nil {
		return core.NewDependencyError("activity store", err, true)
	}
	return ctx.JSON(http.StatusOK, acts)
}
