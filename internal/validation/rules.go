package validation

import (
	"fmt"

	"kiosk-ingest/internal/domain/event"
)

type Field string

const (
	FieldAt   Field = "at"
	FieldSite Field = "site"
	FieldVal  Field = "val"
	FieldType Field = "type"
)

// Reason tags why a field failed. ReasonNone means the field is valid.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissing
	ReasonNotInteger
	ReasonOutOfRange
	ReasonOutsideWindow
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "valid"
	case ReasonMissing:
		return "missing"
	case ReasonNotInteger:
		return "not_integer"
	case ReasonOutOfRange:
		return "out_of_range"
	case ReasonOutsideWindow:
		return "outside_window"
	default:
		return "unknown"
	}
}

// Outcome is the result of checking one field of one message.
type Outcome struct {
	Field  Field
	Reason Reason
}

func (o Outcome) Valid() bool { return o.Reason == ReasonNone }

// Message renders the failure the way it is logged, e.g. "missing 'at' key".
func (o Outcome) Message() string {
	switch o.Reason {
	case ReasonNone:
		return ""
	case ReasonMissing:
		return fmt.Sprintf("missing '%s' key", o.Field)
	case ReasonNotInteger:
		return fmt.Sprintf("'%s' must be an integer", o.Field)
	case ReasonOutOfRange:
		return fmt.Sprintf("'%s' is out of range", o.Field)
	case ReasonOutsideWindow:
		return fmt.Sprintf("'%s' is outside the valid time range", o.Field)
	default:
		return fmt.Sprintf("'%s' is invalid", o.Field)
	}
}

// Rule bounds an integer field. RequiredWhen nil means the field is always checked.
type Rule struct {
	Field        Field
	Min, Max     int
	RequiredWhen func(event.Raw) bool
}

func (r Rule) required(raw event.Raw) bool {
	return r.RequiredWhen == nil || r.RequiredWhen(raw)
}

// IntRules is the schema of the integer fields, in check order.
var IntRules = []Rule{
	{Field: FieldSite, Min: 0, Max: 5},
	{Field: FieldVal, Min: -1, Max: 4},
	{Field: FieldType, Min: 0, Max: 1, RequiredWhen: isRequest},
}

// isRequest reports whether "val" coerces to the request marker.
// An unusable "val" fails on its own and does not pull "type" in.
func isRequest(raw event.Raw) bool {
	v, reason := coerceInt(raw.Val)
	return reason == ReasonNone && v == event.RequestVal
}
