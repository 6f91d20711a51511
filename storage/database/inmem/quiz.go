package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/quiz"
)

type quizRepository struct {
	quizzes *quizTable
	results *resultTable
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{quizzes: db.quiz, results: db.result}
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.quizzes.mutex.Lock()
	defer repo.quizzes.mutex.Unlock()

	if _, ok := repo.quizzes.table[q.ID]; ok {
		return quiz.Quiz{}, core.NewStateError("quiz " + q.ID + " already exists")
	}
	q.Questions = append([]quiz.Question(nil), q.Questions...)
	repo.quizzes.table[q.ID] = q
	return q, nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	repo.quizzes.mutex.RLock()
	defer repo.quizzes.mutex.RUnlock()

	if q, ok := repo.quizzes.table[id]; ok {
		return q, nil
	}
	return quiz.Quiz{}, core.NewNotFoundError("quiz", id)
}

func (repo *quizRepository) ListQuizzes(_ context.Context) ([]quiz.Quiz, error) {
	repo.quizzes.mutex.RLock()
	defer repo.quizzes.mutex.RUnlock()

	quizzes := make([]quiz.Quiz, 0, len(repo.quizzes.table))
	for _, q := range repo.quizzes.table {
		quizzes = append(quizzes, q)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		if quizzes[i].CreatedAt.Equal(quizzes[j].CreatedAt) {
			return quizzes[i].ID < quizzes[j].ID
		}
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

func (repo *quizRepository) SaveAttemptResult(_ context.Context, res quiz.AttemptResult) (quiz.AttemptResult, error) {
	repo.results.mutex.Lock()
	defer repo.results.mutex.Unlock()

	repo.results.table = append(repo.results.table, res)
	return res, nil
}

func (repo *quizRepository) QueryAttemptResults(_ context.Context, filter quiz.ResultFilter) ([]quiz.AttemptResult, error) {
	repo.results.mutex.RLock()
	defer repo.results.mutex.RUnlock()

	results := make([]quiz.AttemptResult, 0)
	for _, res := range repo.results.table {
		if filter.CandidateID != "" && res.CandidateID != filter.CandidateID {
			continue
		}
		if filter.QuizID != "" && res.QuizID != filter.QuizID {
			continue
		}
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].SubmittedAt.After(results[j].SubmittedAt) })
	return results, nil
}
