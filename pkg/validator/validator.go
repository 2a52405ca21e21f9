package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// languageCodePattern accepts ISO 639 codes with up to two BCP 47 subtags (en, vi, pt-BR, zh-Hant-TW)
var languageCodePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8}){0,2}$`)

// MaxLanguageCodeLength matches the width of the stored language columns
const MaxLanguageCodeLength = 16

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance
func New() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return IsLanguageCode(fl.Field().String())
	})
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// Var validates a single value against a tag, e.g. "required,langcode"
func (cv *CustomValidator) Var(field interface{}, tag string) error {
	return cv.v.Var(field, tag)
}

// IsLanguageCode reports whether s looks like a language code
func IsLanguageCode(s string) bool {
	return len(s) <= MaxLanguageCodeLength && languageCodePattern.MatchString(s)
}
