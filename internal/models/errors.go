package models

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrMalformedInput   = errors.New("malformed input")
	ErrInvalidSoilType  = errors.New("invalid soil type")
	ErrUnknownClassCode = errors.New("unknown class code")
	ErrArtifactLoad     = errors.New("model artifact load failed")
	ErrPersistence      = errors.New("history persistence failed")
)

// PredictionError is the typed failure returned by the serving pipeline.
// Kind is one of the sentinels above; Field and Value name the offending
// input when there is one.
type PredictionError struct {
	Kind  error
	Field string
	Value string
	Err   error
}

func (e *PredictionError) Error() string {
	msg := e.Kind.Error()
	switch {
	case e.Field != "" && e.Value != "":
		msg = fmt.Sprintf("%s: %s %q", msg, e.Field, e.Value)
	case e.Field != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	case e.Value != "":
		msg = fmt.Sprintf("%s %q", msg, e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PredictionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRequestError reports whether err is a request-scoped validation or
// decoding failure rather than an infrastructure one.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrMalformedInput) || errors.Is(err, ErrInvalidSoilType)
}

func MalformedInput(field, value string, err error) error {
	return &PredictionError{Kind: ErrMalformedInput, Field: field, Value: value, Err: err}
}

func InvalidSoilType(value string) error {
	return &PredictionError{Kind: ErrInvalidSoilType, Field: "soil_type", Value: value}
}

func UnknownClassCode(code int) error {
	return &PredictionError{Kind: ErrUnknownClassCode, Value: fmt.Sprint(code)}
}

func ArtifactLoad(path string, err error) error {
	return &PredictionError{Kind: ErrArtifactLoad, Field: path, Err: err}
}

func Persistence(op string, err error) error {
	return &PredictionError{Kind: ErrPersistence, Field: op, Err: err}
}
