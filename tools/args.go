package tools

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names, as the model knows them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseArgs decodes the raw JSON arguments of a tool call.
// Empty input is decoded as an empty object.
func ParseArgs(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(llmutils.CleanJSON(raw), &args); err != nil {
		return nil, errors.Mark(errors.Newf("invalid arguments: malformed JSON: %s", err.Error()), ErrInvalidArguments)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// DecodeArgs decodes the arguments into the request type,
// and validates it with the `validate` struct tags.
func DecodeArgs[I any](args map[string]any) (*I, error) {
	if args == nil {
		args = map[string]any{}
	}
	js, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid arguments"), ErrInvalidArguments)
	}

	req := new(I)
	if err = json.Unmarshal(js, req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, errors.Mark(errors.Newf("invalid arguments: %s must be %s", typeErr.Field, kindName(typeErr.Type)), ErrInvalidArguments)
		}
		return nil, errors.Mark(errors.Wrap(err, "invalid arguments"), ErrInvalidArguments)
	}

	if err = validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return req, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Mark(errors.Wrap(err, "invalid arguments"), ErrInvalidArguments)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the struct name
		_, field, ok := strings.Cut(fe.Namespace(), ".")
		if !ok {
			field = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			if fe.Kind() == reflect.Slice {
				msgs = append(msgs, field+" must have at least "+fe.Param()+" items")
			} else {
				msgs = append(msgs, field+" must be at least "+fe.Param()+" characters")
			}
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		case "url", "http_url":
			msgs = append(msgs, field+" must be a valid URL")
		default:
			msgs = append(msgs, field+" failed on the '"+fe.Tag()+"' rule")
		}
	}
	return errors.Mark(errors.Newf("invalid arguments: %s", strings.Join(msgs, "; ")), ErrInvalidArguments)
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	default:
		return "a " + t.String()
	}
}
