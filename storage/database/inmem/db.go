package inmemdb

import (
	"sync"

	"github.com/trezcool/proctor/core/proctor"
	"github.com/trezcool/proctor/core/quiz"
)

type (
	// DB keeps every table in memory. Used for the "memory" database engine and in tests.
	DB struct {
		quiz     *quizTable
		result   *resultTable
		activity *activityTable
	}

	quizTable struct {
		table map[string]quiz.Quiz
		mutex sync.RWMutex
	}

	resultTable struct {
		table []quiz.AttemptResult
		mutex sync.RWMutex
	}

	activityTable struct {
		table map[string][]proctor.Activity // by identity, oldest first
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		quiz:     &quizTable{table: make(map[string]quiz.Quiz)},
		result:   &resultTable{},
		activity: &activityTable{table: make(map[string][]proctor.Activity)},
	}
}
