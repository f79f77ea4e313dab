package validator

import (
	"net/url"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagHTTPURL      = "httpurl"      // Absolute http(s) URL with a host
	TagNoWhitespace = "nowhitespace" // No whitespace characters
)

// registerCustomRules registers all custom validation rules.
func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagHTTPURL, validateHTTPURL)
	_ = v.validate.RegisterValidation(TagNoWhitespace, validateNoWhitespace)
}

// validateHTTPURL accepts only http and https URLs that name a host.
func validateHTTPURL(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return IsHTTPURL(value)
}

// IsHTTPURL reports whether raw parses as an http(s) URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateNoWhitespace validates that string contains no whitespace.
func validateNoWhitespace(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	for _, char := range value {
		if unicode.IsSpace(char) {
			return false
		}
	}

	return true
}
