package naming

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator: общий экземпляр с правилами sqlident и sqlorder.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
			return IsIdent(fl.Field().String())
		})
		_ = v.RegisterValidation("sqlorder", func(fl validator.FieldLevel) bool {
			return IsOrder(fl.Field().String())
		})
		validate = v
	})
	return validate
}
