package inmemdb

import (
	"context"

	"github.com/trezcool/proctor/core/proctor"
)

type activityRepository struct {
	db *activityTable
}

var _ proctor.ActivityRepository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db.activity}
}

func (repo *activityRepository) LogActivity(_ context.Context, act proctor.Activity) (proctor.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[act.Identity] = append(repo.db.table[act.Identity], act)
	return act, nil
}

func (repo *activityRepository) QueryActivity(_ context.Context, identity string, limit int) ([]proctor.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	all := repo.db.table[identity]
	acts := make([]proctor.Activity, 0)
	for i := len(all) - 1; i >= 0 && len(acts) < limit; i-- {
		acts = append(acts, all[i])
	}
	return acts, nil
}
