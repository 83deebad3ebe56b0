package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Keep these values stable; the HTTP layer maps
// them onto response codes.
type Kind string

const (
	KindSchedule      Kind = "schedule"
	KindDateRange     Kind = "date_range"
	KindConfiguration Kind = "configuration"
	KindShape         Kind = "shape"
	KindStageContract Kind = "stage_contract"
)

// Error is the typed error returned by the on-level and pipeline packages.
type Error struct {
	Kind    Kind
	Stage   string // pipeline step name, when known
	Field   string // offending column, origin label or option
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind) + " error"
	if e.Stage != "" {
		msg += " [" + e.Stage + "]"
	}
	if e.Field != "" {
		msg += " " + e.Field
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or context.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Stage == "" && t.Field == "" && t.Kind == e.Kind
}

var (
	ErrSchedule      = &Error{Kind: KindSchedule}
	ErrDateRange     = &Error{Kind: KindDateRange}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrShape         = &Error{Kind: KindShape}
	ErrStageContract = &Error{Kind: KindStageContract}
)

func newError(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func ScheduleError(field, format string, args ...any) *Error {
	return newError(KindSchedule, field, format, args...)
}

func DateRangeError(field, format string, args ...any) *Error {
	return newError(KindDateRange, field, format, args...)
}

func ConfigurationError(field, format string, args ...any) *Error {
	return newError(KindConfiguration, field, format, args...)
}

func ShapeError(field, format string, args ...any) *Error {
	return newError(KindShape, field, format, args...)
}

// StageContractError reports a pipeline misconfiguration for the named step.
func StageContractError(stage, format string, args ...any) *Error {
	e := newError(KindStageContract, "", format, args...)
	e.Stage = stage
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
