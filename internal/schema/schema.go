// Package schema adapts the declarative struct-tag validator into the
// taxonomy error shape. It is the single seam where input payloads and
// documents read back from the store are checked; callers never see a panic
// or a raw validator error from here.
package schema

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"shotlist/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs full validation of v against its validate tags and returns
// the value unchanged on success. Failures are republished as a taxonomy
// validation error with per-field detail; nothing is thrown past this
// function.
func Validate[T any](v T, context string) (T, *shared.Error) {
	if err := safeStruct(func() error { return validate.Struct(v) }); err != nil {
		return v, toError(err, context)
	}
	return v, nil
}

// ValidatePartial validates only the named struct fields of v, used for
// partial-update payloads where absent fields must not fail "required"
// checks.
func ValidatePartial(v any, context string, fields ...string) *shared.Error {
	if len(fields) == 0 {
		return nil
	}
	if err := safeStruct(func() error { return validate.StructPartial(v, fields...) }); err != nil {
		return toError(err, context)
	}
	return nil
}

// safeStruct absorbs validator panics on malformed input types. A panic here
// is a programmer error, but the contract is that validation never escapes
// as control flow.
func safeStruct(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return fn()
}

func toError(err error, context string) *shared.Error {
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); ok {
		fields := make([]shared.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, shared.FieldError{
				Path:    fieldPath(fe),
				Message: failureMessage(fe),
			})
		}
		return shared.FromValidation(fields, context)
	}
	// Non-field failures (invalid input type, panic) still surface as
	// validation errors so the caller's handling stays uniform.
	return shared.New(shared.CodeValidationFailed,
		"validation could not run: "+err.Error(),
		"Some fields are invalid. Please review and try again.",
		context).WithCause(err)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}

// fieldPath converts the validator namespace into a dotted path relative to
// the validated root, e.g. "Config.ID" rather than "List.Config.ID".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func failureMessage(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed %q validation (param %q)", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
