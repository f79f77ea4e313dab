// Package validator wraps go-playground/validator with translated error
// messages and the request rules used by the HTTP handlers.
//
// Field names in errors come from the json tag, then the form tag, so
// messages refer to the names clients actually send.
package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	zhtrans "github.com/go-playground/validator/v10/translations/zh"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator validates structs and variables. It is safe for concurrent use
// once registration is done.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
}

var global = New()

// Global returns the process-wide validator.
func Global() *Validator {
	return global
}

// New creates a validator with English and Chinese translations and the
// custom rules registered.
func New() *Validator {
	enLocale := en.New()
	zhLocale := zh.New()
	uni := ut.New(enLocale, enLocale, zhLocale)

	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		uni:      uni,
		trans:    make(map[string]ut.Translator, 2),
	}
	v.validate.RegisterTagNameFunc(fieldName)

	if t, ok := uni.GetTranslator(LangEN); ok {
		_ = entrans.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangEN] = t
	}
	if t, ok := uni.GetTranslator(LangZH); ok {
		_ = zhtrans.RegisterDefaultTranslations(v.validate, t)
		v.trans[LangZH] = t
	}

	v.registerCustomRules()
	v.registerCustomTranslations()
	return v
}

// fieldName 依次使用 json、form 标签作为字段名。
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// Engine returns the underlying go-playground validator.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// GetTranslator returns the translator for lang, English when unknown.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	if t, ok := v.trans[lang]; ok {
		return t
	}
	return v.trans[LangEN]
}

// Validate validates a struct and returns the raw validator error.
func (v *Validator) Validate(s any) error {
	return v.validate.Struct(s)
}

// ValidateWithLang validates a struct and returns translated errors, nil
// when valid.
func (v *Validator) ValidateWithLang(s any, lang string) *ValidationErrors {
	return v.translate(v.validate.Struct(s), lang)
}

// ValidateVar validates a single value against tag.
func (v *Validator) ValidateVar(field any, tag string) error {
	return v.validate.Var(field, tag)
}

func (v *Validator) translate(err error, lang string) *ValidationErrors {
	if err == nil {
		return nil
	}
	errs := NewValidationErrors()
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Append("", "", err.Error())
		return errs
	}
	trans := v.GetTranslator(lang)
	for _, fe := range fieldErrs {
		msg := fe.Error()
		if trans != nil {
			msg = fe.Translate(trans)
		}
		errs.AppendError(FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: msg,
			Value:   fe.Value(),
		})
	}
	return errs
}

// Struct validates s with the global validator.
func Struct(s any) error {
	return Global().Validate(s)
}

// StructWithLang validates s with the global validator and translates errors.
func StructWithLang(s any, lang string) *ValidationErrors {
	return Global().ValidateWithLang(s, lang)
}
