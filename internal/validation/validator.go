package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"kiosk-ingest/internal/domain/event"
)

// timestampLayout covers the leading "YYYY-MM-DDTHH:MM:SS" of "at";
// fractions and offsets after it are ignored for the window check.
const timestampLayout = "2006-01-02T15:04:05"

// Validator checks kiosk messages against the field rules and the operating window.
// It is stateless and safe for concurrent use.
type Validator struct {
	window Window
	rules  []Rule
}

func New(window Window) *Validator {
	return &Validator{window: window, rules: IntRules}
}

// Result holds every failing field, or the typed event when there are none.
type Result struct {
	Event    event.Event
	Failures []Outcome
}

func (r Result) Valid() bool { return len(r.Failures) == 0 }

// Fields lists the fields that must be checked for raw: at, site, val,
// and type only when val marks a request.
func (v *Validator) Fields(raw event.Raw) []Field {
	fields := []Field{FieldAt}
	for _, rule := range v.rules {
		if rule.required(raw) {
			fields = append(fields, rule.Field)
		}
	}
	return fields
}

// Check validates a single field. Every field is checked independently of the others.
func (v *Validator) Check(raw event.Raw, field Field) Outcome {
	if field == FieldAt {
		_, reason := v.checkAt(raw.At)
		return Outcome{Field: field, Reason: reason}
	}
	for _, rule := range v.rules {
		if rule.Field == field {
			_, reason := checkInt(fieldValue(raw, field), rule)
			return Outcome{Field: field, Reason: reason}
		}
	}
	return Outcome{Field: field, Reason: ReasonMissing}
}

// Validate runs every required check without short-circuiting.
func (v *Validator) Validate(raw event.Raw) Result {
	var (
		res    Result
		values = make(map[Field]int, len(v.rules))
	)

	at, reason := v.checkAt(raw.At)
	if reason != ReasonNone {
		res.Failures = append(res.Failures, Outcome{Field: FieldAt, Reason: reason})
	}

	for _, rule := range v.rules {
		if !rule.required(raw) {
			continue
		}
		n, reason := checkInt(fieldValue(raw, rule.Field), rule)
		if reason != ReasonNone {
			res.Failures = append(res.Failures, Outcome{Field: rule.Field, Reason: reason})
			continue
		}
		values[rule.Field] = n
	}

	if res.Valid() {
		res.Event = event.Event{
			At:   at,
			Site: values[FieldSite],
			Val:  values[FieldVal],
			Type: values[FieldType],
		}
	}
	return res
}

func (v *Validator) checkAt(raw json.RawMessage) (time.Time, Reason) {
	if isMissing(raw) {
		return time.Time{}, ReasonMissing
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, ReasonOutsideWindow
	}

	head := s
	if len(head) > len(timestampLayout) {
		head = head[:len(timestampLayout)]
	}
	local, err := time.Parse(timestampLayout, head)
	if err != nil {
		return time.Time{}, ReasonOutsideWindow
	}
	if !v.window.Contains(local) {
		return time.Time{}, ReasonOutsideWindow
	}

	// Keep the offset for storage when the full value is RFC 3339.
	if full, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return full, ReasonNone
	}
	return local, ReasonNone
}

func checkInt(raw json.RawMessage, rule Rule) (int, Reason) {
	n, reason := coerceInt(raw)
	if reason != ReasonNone {
		return 0, reason
	}
	if n < rule.Min || n > rule.Max {
		return 0, ReasonOutOfRange
	}
	return n, ReasonNone
}

// coerceInt accepts JSON integers, integral floats and strings holding
// a base-10 integer. Integers beyond int are out of range.
func coerceInt(raw json.RawMessage) (int, Reason) {
	if isMissing(raw) {
		return 0, ReasonMissing
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, ReasonNotInteger
	}

	switch t := v.(type) {
	case json.Number:
		return numberInt(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		switch {
		case err == nil:
			return n, ReasonNone
		case errors.Is(err, strconv.ErrRange):
			return 0, ReasonOutOfRange
		default:
			return 0, ReasonNotInteger
		}
	default:
		return 0, ReasonNotInteger
	}
}

// numberInt accepts integers and integral floats. A number too large for
// int is still an integer, so it fails the range check instead.
func numberInt(num json.Number) (int, Reason) {
	n, err := strconv.Atoi(num.String())
	if err == nil {
		return n, ReasonNone
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, ReasonOutOfRange
	}

	f, err := strconv.ParseFloat(num.String(), 64)
	switch {
	case math.IsInf(f, 0):
		return 0, ReasonOutOfRange
	case err != nil, f != math.Trunc(f):
		return 0, ReasonNotInteger
	case math.Abs(f) > math.MaxInt32:
		return 0, ReasonOutOfRange
	default:
		return int(f), ReasonNone
	}
}

func isMissing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fieldValue(raw event.Raw, field Field) json.RawMessage {
	switch field {
	case FieldAt:
		return raw.At
	case FieldSite:
		return raw.Site
	case FieldVal:
		return raw.Val
	case FieldType:
		return raw.Type
	default:
		return nil
	}
}
