package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

// validation errors are keyed by the json name, not the Go field name
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return v
}()

// fixed wording per tag; tags with a parameter append it
var tagMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least",
	"max":      "must be at most",
	"oneof":    "must be one of",
	"email":    "must be a valid email",
	"uuid":     "must be a valid uuid",
	"url":      "must be a valid url",
}

// DecodeJSONBody reads one JSON object into dest, rejecting unknown fields,
// then applies dest's validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}
	body := io.LimitReader(r.Body, maxBodyBytes)
	defer io.Copy(io.Discard, body) //nolint:errcheck

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func fieldErrors(err error) *pkgerrors.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	switch {
	case !ok:
		return "is invalid"
	case fe.Param() != "":
		return fmt.Sprintf("%s %s", msg, fe.Param())
	default:
		return msg
	}
}
