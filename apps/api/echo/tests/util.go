package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	. "github.com/trezcool/proctor/apps/api/echo"
	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/core/relay"
	"github.com/trezcool/proctor/core/user"
	"github.com/trezcool/proctor/services/detector"
	"github.com/trezcool/proctor/services/events"
	"github.com/trezcool/proctor/services/logger"
	"github.com/trezcool/proctor/storage/database/sqlx"
	"github.com/trezcool/proctor/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf     *core.Config
	server   *Server
	hub      *relay.Hub
	quizRepo quiz.Repository
}

func setup(t *testing.T) testApp {
	conf := testutil.Config(t)

	// set up DB & repos
	db := testutil.PrepareDB(t, conf)
	quizRepo := sqlxrepos.NewQuizRepository(db)
	actRepo := sqlxrepos.NewActivityRepository(db)

	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	relay.InitValidators(validate, translator)

	// set up services
	monitor := proctor.NewMonitor(conf.Proctor.WarningThreshold)
	quizSvc := quiz.NewService(quizRepo, monitor, logger)
	hub := relay.NewHub(relay.HubDeps{
		Monitor:         monitor,
		Activities:      actRepo,
		Finalizer:       quizSvc,
		Detector:        detectorsvc.NewConsoleDetector(logger),
		Sink:            eventsvc.NopSink{},
		Validate:        validate,
		Logger:          logger,
		DetectorTimeout: conf.Detector.Timeout,
		StoreTimeout:    conf.Proctor.StoreTimeout,
	})
	t.Cleanup(hub.Close)

	// set up server
	server := NewServer(&Deps{
		Conf:       conf,
		Logger:     logger,
		Hub:        hub,
		QuizSvc:    quizSvc,
		Activities: actRepo,
		Validate:   validate,
		Translator: translator,
	})
	return testApp{conf: conf, server: server, hub: hub, quizRepo: quizRepo}
}

func (app testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	app.server.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // not checked when nil
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, id, role string) string {
	claims := GetPrincipalClaims(conf, user.Principal{ID: id, Username: id, Role: role})
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
