package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/core/user"
	logsvc "github.com/trezcool/proctor/services/logger"
	"github.com/trezcool/proctor/storage/database"
	sqlxrepos "github.com/trezcool/proctor/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewConsole("ADMIN", conf.Debug), conf)
	logger.Enable(!conf.Debug)
	defer func() { _ = logger.Sync() }()

	if conf.Database.Engine == "memory" {
		logger.Fatal("the admin commands need a persistent database engine")
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		quizSvc:  quiz.NewService(sqlxrepos.NewQuizRepository(db), proctor.NewMonitor(conf.Proctor.WarningThreshold), logger),
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
