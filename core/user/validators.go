package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/proctor/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"
)

// InitValidators registers the user validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// Validate cleans and validates the Principal.
func (p *Principal) Validate(validate *validator.Validate) error {
	p.ID = core.CleanString(p.ID)
	p.Username = core.CleanString(p.Username, true /* lower */)
	p.Role = core.CleanString(p.Role, true /* lower */)
	return validate.Struct(p)
}

// roleValidation checks that the role is one of AllRoles.
func roleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(string); ok {
		return IsValidRole(role)
	}
	return false
}
