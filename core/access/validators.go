package access

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	knownRoleTag  = "knownrole"
	knownRoleText = "unknown role"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(knownRoleTag, knownRoleValidation)
	core.RegisterCustomTranslation(validate, translator, knownRoleTag, knownRoleText)
}

// knownRoleValidation checks that the provided role name is one the contract defines.
func knownRoleValidation(fl validator.FieldLevel) bool {
	_, ok := RoleByName(fl.Field().String())
	return ok
}
