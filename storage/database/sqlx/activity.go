package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/proctor/core/proctor"
)

type activityRepository struct {
	db *sqlx.DB
}

var _ proctor.ActivityRepository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo activityRepository) LogActivity(ctx context.Context, act proctor.Activity) (proctor.Activity, error) {
	act.CreatedAt = dbTime(act.CreatedAt)
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("INSERT INTO activity_logs (id, identity, kind, description, created_at) VALUES (?, ?, ?, ?, ?)"),
		act.ID, act.Identity, act.Kind, act.Description, act.CreatedAt)
	if err != nil {
		return proctor.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return act, nil
}

func (repo activityRepository) QueryActivity(ctx context.Context, identity string, limit int) ([]proctor.Activity, error) {
	acts := make([]proctor.Activity, 0)
	err := repo.db.SelectContext(ctx, &acts, repo.db.Rebind(`SELECT id, identity, kind, description, created_at
		FROM activity_logs WHERE identity = ? ORDER BY created_at DESC, id DESC LIMIT ?`), identity, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying activity")
	}
	for i := range acts {
		acts[i].CreatedAt = acts[i].CreatedAt.UTC()
	}
	return acts, nil
}
