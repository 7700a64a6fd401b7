package shared

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hrleave/internal/transport/http/api"
)

// FieldIssue is one rejected payload field.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects payload issues before a request reaches the engine. The
// engine repeats its own checks; this layer only rejects malformed input.
type Validator struct {
	issues []FieldIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	reason = strings.TrimSpace(reason)
	if v == nil || reason == "" {
		return
	}
	v.issues = append(v.issues, FieldIssue{Field: strings.TrimSpace(field), Reason: reason})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// OneOf accepts an empty value or a case-insensitive match of allowed.
func (v *Validator) OneOf(field, value string, allowed []string, reason string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !slices.ContainsFunc(allowed, func(candidate string) bool { return strings.EqualFold(candidate, value) }) {
		v.Add(field, reason)
	}
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(raw)
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

// OptionalDate returns nil for a blank value.
func (v *Validator) OptionalDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if parsed, ok := v.Date(field, raw); ok {
		return &parsed
	}
	return nil
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() || !end.Before(start) {
		return
	}
	v.Add(startField, "must be on or before "+endField)
	v.Add(endField, "must be on or after "+startField)
}

// Decimal parses a day count such as "1.5". Zero is rejected when nonZero is set.
func (v *Validator) Decimal(field, raw string, nonZero bool) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.Add(field, "required")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v.Add(field, "must be a decimal number")
		return decimal.Zero
	}
	if nonZero && d.IsZero() {
		v.Add(field, "must not be zero")
	}
	return d
}

func (v *Validator) Year(field, raw string) int {
	year, ok := ParseYear(raw)
	if !ok {
		v.Add(field, "must be a four digit year")
	}
	return year
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

// Issues returns a copy ordered by field, then reason.
func (v *Validator) Issues() []FieldIssue {
	if !v.HasIssues() {
		return nil
	}
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b FieldIssue) int {
		if c := cmp.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return out
}

// Reject writes a 400 listing every issue and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": v.Issues()}, requestID)
	return true
}
