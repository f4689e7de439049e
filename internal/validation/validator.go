// Package validation checks inbound payloads against declarative schemas before
// any handler runs. Validate is a pure function and knows nothing about HTTP.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kind is the JSON type a field must carry.
type Kind int

const (
	KindString Kind = iota
	KindDate
)

// Field declares the constraints for one payload key.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Rules is a go-playground/validator tag applied to the normalized value,
	// e.g. "min=1,max=100" or "oneof=low medium high".
	Rules     string
	Trim      bool
	Lowercase bool
	// Default is applied when the key is absent.
	Default any
	// Nullable accepts null and "" and normalizes both to nil.
	Nullable bool
}

// Schema is an ordered set of fields. Unknown keys are dropped unless Strict.
type Schema struct {
	Name   string
	Fields []Field
	Strict bool
}

// FieldError describes one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the list of violations for a payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, ", ")
}

// Payload is a sanitized input. Keys are present only for fields that were
// supplied or defaulted; nullable fields explicitly cleared map to nil.
type Payload map[string]any

// Has reports whether the key was supplied (including an explicit null).
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string value for key.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// NullableString returns (value, present). A cleared field is (nil, true).
func (p Payload) NullableString(key string) (*string, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	s, isString := v.(string)
	if !isString {
		return nil, true
	}
	return &s, true
}

// NullableTime returns (value, present). A cleared field is (nil, true).
func (p Payload) NullableTime(key string) (*time.Time, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	t, isTime := v.(time.Time)
	if !isTime {
		return nil, true
	}
	return &t, true
}

var rules = validator.New()

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Validate checks input against schema. It returns the sanitized payload, or
// the full list of violations when any field fails.
func Validate(schema Schema, input map[string]any) (Payload, Errors) {
	out := Payload{}
	var errs Errors

	known := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		known[field.Name] = struct{}{}

		raw, present := input[field.Name]
		if !present {
			if field.Required {
				errs = append(errs, FieldError{Field: field.Name, Message: fmt.Sprintf("%s is required", field.Name)})
			} else if field.Default != nil {
				out[field.Name] = field.Default
			}
			continue
		}

		value, fe := checkField(field, raw)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		out[field.Name] = value
	}

	if schema.Strict {
		unknown := make([]string, 0)
		for key := range input {
			if _, ok := known[key]; !ok {
				unknown = append(unknown, key)
			}
		}
		sort.Strings(unknown)
		for _, key := range unknown {
			errs = append(errs, FieldError{Field: key, Message: fmt.Sprintf("%s is not allowed", key)})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func checkField(field Field, raw any) (any, *FieldError) {
	if raw == nil {
		if field.Nullable {
			return nil, nil
		}
		return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be a string", field.Name)}
	}

	// JSON numbers on date fields are epoch milliseconds.
	if ms, ok := raw.(float64); ok && field.Kind == KindDate {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be a string", field.Name)}
	}
	if field.Trim {
		s = strings.TrimSpace(s)
	}
	if field.Lowercase {
		s = strings.ToLower(s)
	}
	if s == "" && field.Nullable {
		return nil, nil
	}

	switch field.Kind {
	case KindDate:
		t, err := parseDate(s)
		if err != nil {
			return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be a valid date", field.Name)}
		}
		return t, nil
	default:
		tag := field.Rules
		if field.Required {
			tag = joinTags("required", tag)
		}
		if tag != "" {
			if err := rules.Var(s, tag); err != nil {
				return nil, &FieldError{Field: field.Name, Message: ruleMessage(field.Name, err)}
			}
		}
		return s, nil
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date")
}

func joinTags(a, b string) string {
	if b == "" {
		return a
	}
	return a + "," + b
}

func ruleMessage(name string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", name)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is not allowed to be empty", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", name, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}
