package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps the JSON request bodies DecodeAndValidate will read.
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeAndValidate when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

// jsonName reports a field by its JSON key so error paths match the body the
// client sent.
func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// ValidationError reports the fields of a request that failed their tags.
type ValidationError struct {
	Errors validator.ValidationErrors
}

// Validate checks s against its `validate` struct tags.
func Validate(s any) error {
	err := validate.Struct(s)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: fieldErrs}
	}
	return err
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fieldPath(fe), describe(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failing field path (e.g. "user.email") to a message.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fieldPath(fe)] = describe(fe)
	}
	return fields
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

var messages = map[string]func(param string) string{
	"required": func(string) string { return "is required" },
	"email":    func(string) string { return "must be a valid email address" },
	"uuid":     func(string) string { return "must be a valid UUID" },
	"url":      func(string) string { return "must be a valid URL" },
	"min":      func(p string) string { return "must be at least " + p + " characters" },
	"max":      func(p string) string { return "must be at most " + p + " characters" },
	"gte":      func(p string) string { return "must be greater than or equal to " + p },
	"lte":      func(p string) string { return "must be less than or equal to " + p },
	"excludes": func(p string) string { return fmt.Sprintf("must not contain %q", p) },
	"oneof":    func(p string) string { return "must be one of: " + p },
}

func describe(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg(fe.Param())
	}
	return fmt.Sprintf("failed on '%s' validation", fe.Tag())
}

// DecodeAndValidate decodes a single JSON document from the request body into
// dst and validates it. Bodies over MaxBodyBytes are rejected.
func DecodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("decode request body: unexpected data after JSON object")
	}
	return Validate(dst)
}
