package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// registerCustomTranslations registers translations for custom validation rules.
func (v *Validator) registerCustomTranslations() {
	// Register English translations
	enTrans := v.GetTranslator(LangEN)
	if enTrans != nil {
		v.registerEnglishTranslations(enTrans)
	}

	// Register Chinese translations
	zhTrans := v.GetTranslator(LangZH)
	if zhTrans != nil {
		v.registerChineseTranslations(zhTrans)
	}
}

// registerEnglishTranslations registers English translations for custom rules.
func (v *Validator) registerEnglishTranslations(trans ut.Translator) {
	translations := map[string]string{
		TagHTTPURL:      "{0} must be an http or https URL",
		TagNoWhitespace: "{0} must not contain whitespace characters",
	}

	for tag, message := range translations {
		registerTranslation(v.validate, trans, tag, message)
	}
}

// registerChineseTranslations registers Chinese translations for custom rules.
func (v *Validator) registerChineseTranslations(trans ut.Translator) {
	translations := map[string]string{
		TagHTTPURL:      "{0}必须是 http 或 https 地址",
		TagNoWhitespace: "{0}不能包含空白字符",
	}

	for tag, message := range translations {
		registerTranslation(v.validate, trans, tag, message)
	}
}

// registerTranslation registers a single translation.
func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
