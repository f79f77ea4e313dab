package validator

import "strings"

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationErrors collects translated field errors.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationErrors returns an empty collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: []FieldError{}}
}

// Append adds an error.
func (e *ValidationErrors) Append(field, tag, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Tag: tag, Message: message})
}

// AppendError adds a prepared FieldError.
func (e *ValidationErrors) AppendError(fe FieldError) {
	e.Errors = append(e.Errors, fe)
}

// Error implements error.
func (e *ValidationErrors) Error() string {
	if e.Count() == 0 {
		return ""
	}
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Count returns the number of errors.
func (e *ValidationErrors) Count() int {
	if e == nil {
		return 0
	}
	return len(e.Errors)
}

// HasErrors reports whether any error was collected. nil 安全。
func (e *ValidationErrors) HasErrors() bool {
	return e.Count() > 0
}

// First returns the first message.
func (e *ValidationErrors) First() string {
	if e.Count() == 0 {
		return ""
	}
	return e.Errors[0].Message
}

// FirstField returns the field of the first error.
func (e *ValidationErrors) FirstField() string {
	if e.Count() == 0 {
		return ""
	}
	return e.Errors[0].Field
}

// FirstTag returns the rule of the first error.
func (e *ValidationErrors) FirstTag() string {
	if e.Count() == 0 {
		return ""
	}
	return e.Errors[0].Tag
}

// Messages returns all messages in order.
func (e *ValidationErrors) Messages() []string {
	if e.Count() == 0 {
		return nil
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return msgs
}

// ForField returns the messages of one field.
func (e *ValidationErrors) ForField(field string) []string {
	if e.Count() == 0 {
		return nil
	}
	var msgs []string
	for _, fe := range e.Errors {
		if fe.Field == field {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}
