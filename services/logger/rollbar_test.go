package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/user"
)

func TestRollbarLogger(t *testing.T) {
	obsCore, logs := observer.New(zap.DebugLevel)
	logger := NewRollbarLogger(zap.New(obsCore), &config)
	logger.Enable(false)

	p := user.Principal{ID: "cand-1", Role: user.RoleCandidate}
	logger.Warn("dropping invalid message", errors.New("boom"), p, p, map[string]interface{}{"type": "frame"})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "dropping invalid message", entries[0].Message)
		assert.Equal(t, "boom", fields["error"])
		assert.Equal(t, "cand-1", fields["identity"])
		assert.Equal(t, "candidate", fields["role"])
		assert.Equal(t, "frame", fields["type"])
	}
}

var config = core.Config{Env: "TEST"}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(zap.NewNop(), &config)
	cand := user.Principal{ID: "cand-1", Username: "ada", Role: user.RoleCandidate}
	obs := user.Principal{ID: "obs-1", Role: user.RoleObserver}
	boom := errors.New("boom")

	tests := []struct {
		name       string
		args       []interface{}
		wantArgs   int
		wantExtras map[string]interface{}
	}{
		{name: "message only", wantArgs: 1},
		{
			name:     "person is attached to the item",
			args:     []interface{}{boom, cand, obs, map[string]interface{}{"quiz": "q1"}},
			wantArgs: 3,
			wantExtras: map[string]interface{}{
				"person": map[string]interface{}{"id": "cand-1", "username": "ada", "role": user.RoleCandidate},
				"quiz":   "q1",
			},
		},
		{
			name:       "other values",
			args:       []interface{}{42},
			wantArgs:   2,
			wantExtras: map[string]interface{}{"extra": "42"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rArgs, _ := logger.prepare("msg", tt.args)
			assert.Len(t, rArgs, tt.wantArgs)
			assert.Equal(t, "msg", rArgs[0])
			if tt.wantExtras != nil {
				assert.Equal(t, tt.wantExtras, rArgs[len(rArgs)-1])
			}
		})
	}
}
