package dig_container

import (
	"fmt"
	"log"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/proctor/apps/api/echo"
	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/core/relay"
	detectorsvc "github.com/trezcool/proctor/services/detector"
	eventsvc "github.com/trezcool/proctor/services/events"
	logsvc "github.com/trezcool/proctor/services/logger"
	"github.com/trezcool/proctor/storage/database"
	inmemdb "github.com/trezcool/proctor/storage/database/inmem"
	sqlxrepos "github.com/trezcool/proctor/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Stores are the repositories of the configured database engine.
type Stores struct {
	dig.Out
	Quizzes    quiz.Repository
	Activities proctor.ActivityRepository
}

// Cleanup collects the release functions of the provided dependencies.
type Cleanup struct {
	mu    sync.Mutex
	funcs []func()
}

func newCleanup() *Cleanup {
	return new(Cleanup)
}

func (c *Cleanup) add(f func()) {
	c.mu.Lock()
	c.funcs = append(c.funcs, f)
	c.mu.Unlock()
}

// Run releases the dependencies in reverse order of creation.
func (c *Cleanup) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.funcs) - 1; i >= 0; i-- {
		c.funcs[i]()
	}
	c.funcs = nil
}

func newLogger(conf *core.Config, cleanup *Cleanup) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewConsole("API", conf.Debug), conf)
	logger.Enable(!conf.Debug)
	cleanup.add(func() { _ = logger.Sync() })
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewConsole("DB", conf.Debug), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStores(conf *core.Config, loggerParam DBLoggerParam, cleanup *Cleanup) Stores {
	dbLogger := loggerParam.Logger

	if conf.Database.Engine == "memory" {
		dbLogger.Warn("using the in-memory database: data is lost on shutdown")
		db := inmemdb.Open()
		return Stores{
			Quizzes:    inmemdb.NewQuizRepository(db),
			Activities: inmemdb.NewActivityRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		dbLogger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		dbLogger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	cleanup.add(func() {
		if err := db.Close(); err != nil {
			dbLogger.Error("failed to close", err)
		}
	})

	return Stores{
		Quizzes:    sqlxrepos.NewQuizRepository(db),
		Activities: sqlxrepos.NewActivityRepository(db),
	}
}

func newDetector(conf *core.Config, logger core.Logger) relay.Detector {
	if conf.Detector.URL == "" {
		return detectorsvc.NewConsoleDetector(logger)
	}
	return detectorsvc.NewHTTPDetector(conf)
}

func newEventSink(conf *core.Config, logger core.Logger, cleanup *Cleanup) relay.EventSink {
	if conf.MQTT.Broker == "" {
		return eventsvc.NopSink{}
	}
	sink, client, err := eventsvc.NewMQTTSink(conf, logger)
	if err != nil {
		// events are best effort
		logger.Error("events will not be published", err)
		return eventsvc.NopSink{}
	}
	cleanup.add(func() { client.Disconnect(250) })
	return sink
}

func newMonitor(conf *core.Config) *proctor.Monitor {
	return proctor.NewMonitor(conf.Proctor.WarningThreshold)
}

func newSessionTracker(m *proctor.Monitor) quiz.SessionTracker {
	return m
}

func newHub(
	conf *core.Config,
	monitor *proctor.Monitor,
	activities proctor.ActivityRepository,
	quizSvc *quiz.Service,
	detector relay.Detector,
	sink relay.EventSink,
	validate *validator.Validate,
	logger core.Logger,
) *relay.Hub {
	return relay.NewHub(relay.HubDeps{
		Monitor:          monitor,
		Activities:       activities,
		Finalizer:        quizSvc,
		Detector:         detector,
		Sink:             sink,
		Validate:         validate,
		Logger:           logger,
		DetectorTimeout:  conf.Detector.Timeout,
		StoreTimeout:     conf.Proctor.StoreTimeout,
		SessionRetention: conf.Proctor.SessionRetention,
	})
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	hub *relay.Hub,
	quizSvc *quiz.Service,
	activities proctor.ActivityRepository,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Deps {
	return &echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		Hub:        hub,
		QuizSvc:    quizSvc,
		Activities: activities,
		Validate:   validate,
		Translator: translator,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newCleanup))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStores))
	must(c.Provide(newDetector))
	must(c.Provide(newEventSink))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newMonitor))
	must(c.Provide(newSessionTracker))
	must(c.Provide(quiz.NewService))
	must(c.Provide(newHub))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
