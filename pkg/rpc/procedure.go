package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind distinguishes read-only queries from state-changing mutations.
type Kind int

const (
	// KindQuery procedures are read-only and served over GET.
	KindQuery Kind = iota
	// KindMutation procedures change state and are served over POST.
	KindMutation
)

func (k Kind) String() string {
	if k == KindMutation {
		return "mutation"
	}
	return "query"
}

// Void is the input or output of a procedure that takes or returns nothing.
type Void struct{}

// Procedure is a named operation served by a Server.
type Procedure struct {
	Name   string
	Kind   Kind
	handle func(ctx context.Context, raw json.RawMessage) (any, error)
}

// Query declares a read-only procedure. Input is decoded and validated before fn runs.
func Query[I, O any](name string, fn func(ctx context.Context, in I) (O, error)) Procedure {
	return Procedure{Name: name, Kind: KindQuery, handle: bind(fn)}
}

// Mutation declares a state-changing procedure. Input is decoded and validated before fn runs.
func Mutation[I, O any](name string, fn func(ctx context.Context, in I) (O, error)) Procedure {
	return Procedure{Name: name, Kind: KindMutation, handle: bind(fn)}
}

func bind[I, O any](fn func(ctx context.Context, in I) (O, error)) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in I
		if err := decodeInput(raw, &in); err != nil {
			return nil, err
		}
		if err := validateInput(in); err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

// decodeInput unmarshals raw into dst. Missing input leaves dst at its zero value.
func decodeInput(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return WrapError(CodeParseError, "malformed JSON input", err)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return validationError(map[string]string{typeErr.Field: "must be a " + typeErr.Type.String()})
		}
		return WrapError(CodeBadRequest, "invalid input: "+err.Error(), err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks struct inputs against their validate tags.
func validateInput(in any) error {
	v := reflect.ValueOf(in)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return WrapError(CodeInternal, "input validation failed", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return validationError(fields)
}

// fieldPath strips the struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// describe renders a validation failure as a short phrase.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), "' '", "', '")
	}
	return fmt.Sprintf("failed the %q check", fe.Tag())
}
