package validator

import (
	"fmt"

	"bakery-backoffice/internal/units"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
	// unit accepts any measurement unit symbol, case-insensitive
	validate.RegisterValidation("unit", func(fl validator.FieldLevel) bool {
		return units.Valid(fl.Field().String())
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Message renders the first failure the way handlers report it.
func Message(errs []*ErrorResponse) string {
	if len(errs) == 0 {
		return ""
	}
	first := errs[0]
	if first.Value != "" {
		return fmt.Sprintf("validation failed: field '%s' failed on '%s=%s'", first.FailedField, first.Tag, first.Value)
	}
	return fmt.Sprintf("validation failed: field '%s' failed on '%s'", first.FailedField, first.Tag)
}
