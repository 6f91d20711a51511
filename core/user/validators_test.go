package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/proctor/core"
)

func TestPrincipal_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		p       Principal
		want    Principal
		wantErr bool
	}{
		{name: "candidate", p: Principal{ID: " c-1 ", Role: "Candidate"}, want: Principal{ID: "c-1", Role: RoleCandidate}},
		{name: "observer", p: Principal{ID: "o-1", Username: "Proctor", Role: RoleObserver}, want: Principal{ID: "o-1", Username: "proctor", Role: RoleObserver}},
		{name: "blank id", p: Principal{ID: "   ", Role: RoleCandidate}, wantErr: true},
		{name: "unknown role", p: Principal{ID: "x", Role: "admin"}, wantErr: true},
		{name: "no role", p: Principal{ID: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, tt.p)
		})
	}
}
