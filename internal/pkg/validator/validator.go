package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/outsource-importer/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// в ошибках имена полей как в JSON запроса
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseProvider(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("feature_type", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseFeatureType(fl.Field().String())
		return err == nil
	})
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}
