package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const minPhoneDigits = 8

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("phone", validatePhone)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Phone number: optional leading '+', digits, spaces, dashes and parentheses; at least 8 digits
func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.TrimPrefix(strings.TrimSpace(fl.Field().String()), "+")

	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}

	return digits >= minPhoneDigits
}
