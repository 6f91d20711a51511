package proctor

import (
	"context"
	"time"
)

// ActivityLimit is the number of activities returned to observers.
const ActivityLimit = 50

type ActivityKind string

const (
	ActivityConnected    ActivityKind = "connected"
	ActivityDisconnected ActivityKind = "disconnected"
	ActivityWarning      ActivityKind = "warning"
	ActivityAlert        ActivityKind = "alert"
	ActivityTerminated   ActivityKind = "terminated"
)

// Activity is one entry of a candidate's integrity trail.
type Activity struct {
	ID          string       `json:"id" db:"id"`
	Identity    string       `json:"identity" db:"identity"`
	Kind        ActivityKind `json:"kind" db:"kind"`
	Description string       `json:"description" db:"description"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"` // UTC
}

type ActivityRepository interface {
	LogActivity(ctx context.Context, act Activity) (Activity, error)
	// QueryActivity returns the latest activities of identity, newest first.
	QueryActivity(ctx context.Context, identity string, limit int) ([]Activity, error)
}
