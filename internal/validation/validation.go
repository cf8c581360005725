// Package validation validates request payloads before they reach a service.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rekberkan/kahade-sub000/internal/errors"
)

var validate = validator.New()

// Struct validates tagged fields on a request struct and folds failures into
// one domain validation error listing the offending fields.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return errors.Validation("invalid request").WithDetails(map[string]interface{}{
		"fields": fields,
	})
}
