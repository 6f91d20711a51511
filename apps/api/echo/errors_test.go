package echoapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	perrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/proctor/core"
)

type logRecorder struct {
	errors []string
}

func (l *logRecorder) Debug(string, ...interface{}) {}
func (l *logRecorder) Info(string, ...interface{})  {}
func (l *logRecorder) Warn(string, ...interface{})  {}
func (l *logRecorder) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *logRecorder) Fatal(string, ...interface{}) {}

func Test_newAppHTTPErrorHandler(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantBody     string
		wantLogged   bool
		wantShutdown bool
	}{
		{
			name:     "validation",
			err:      perrors.Wrap(core.NewValidationError(errors.New("bad"), core.FieldError{Field: "answers", Error: "expected 5 answers, got 4"}), "grading"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"answers":"expected 5 answers, got 4"}`,
		},
		{
			name:     "not found",
			err:      perrors.Wrap(core.NewNotFoundError("quiz", "q1"), "getting quiz"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"quiz \"q1\" not found"}`,
		},
		{
			name:     "state",
			err:      core.NewStateError("attempt has already been graded"),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"attempt has already been graded"}`,
		},
		{
			name:       "retryable dependency",
			err:        perrors.Wrap(core.NewDependencyError("quiz store", storeErr, true), "grading"),
			wantCode:   http.StatusServiceUnavailable,
			wantBody:   `{"error":"temporarily unavailable, please retry"}`,
			wantLogged: true,
		},
		{
			name:       "permanent dependency",
			err:        core.NewDependencyError("quiz store", storeErr, false),
			wantCode:   http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error"}`,
			wantLogged: true,
		},
		{
			name:     "http error",
			err:      errHttpForbidden,
			wantCode: http.StatusForbidden,
			wantBody: `{"error":"permission denied"}`,
		},
		{
			name:         "shutdown",
			err:          perrors.Wrap(core.NewShutdownError("integrity compromised"), "serving"),
			wantCode:     http.StatusInternalServerError,
			wantBody:     `{"error":"Internal Server Error"}`,
			wantLogged:   true,
			wantShutdown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(logRecorder)
			var shutdown bool
			handler := newAppHTTPErrorHandler(logger, core.NewTranslator(), func() { shutdown = true })

			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantLogged, len(logger.errors) > 0)
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}
