package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/quiz"
	"github.com/trezcool/proctor/storage/database"
)

// Config returns a test configuration backed by a sqlite database in a temporary directory.
func Config(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Proctor",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			SendBuffer:         16,
			PingInterval:       time.Minute,
			WriteTimeout:       time.Second,
		},
		Database: core.DatabaseConfig{
			Engine: "sqlite3",
			Name:   filepath.Join(t.TempDir(), "proctor.db"),
		},
		Proctor:  core.ProctorConfig{WarningThreshold: 3, StoreTimeout: time.Second},
		Detector: core.DetectorConfig{Timeout: time.Second},
	}
}

// PrepareDB opens and migrates a fresh database, closed at the end of the test.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	t.Helper()
	var cfg *core.Config
	if len(conf) > 0 {
		cfg = conf[0]
	} else {
		cfg = Config(t)
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, cfg.Database.Engine); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// CreateQuiz stores a quiz with one 4-option question per correct answer.
func CreateQuiz(t *testing.T, repo quiz.Repository, title string, correct ...int) quiz.Quiz {
	t.Helper()
	q := quiz.Quiz{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedBy: "tester",
		CreatedAt: time.Now().UTC(),
	}
	for i, c := range correct {
		q.Questions = append(q.Questions, quiz.Question{
			Prompt:        "question " + string(rune('A'+i)),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: c,
		})
	}
	q, err := repo.CreateQuiz(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}
