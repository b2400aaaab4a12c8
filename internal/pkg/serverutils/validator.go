package serverutils

import (
	"loan-insights-be/internal/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest checks struct tags and surfaces the first violation as a
// ValidationFailure, before any store interaction happens.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return apperr.Validation("field %s failed on %s", first.Field(), first.Tag())
		}
		return apperr.Validation("%s", err.Error())
	}
	return nil
}
