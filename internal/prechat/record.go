// Package prechat normalizes and validates the intake record that gates
// chat availability: machine serial number, operating hours, and fault codes.
// All functions are pure; persistence lives in the store package.
package prechat

import (
	"math"
	"strconv"
	"strings"
)

// Field error messages shown inline in the intake form.
const (
	ErrSerialRequired = "Serienummer is verplicht."
	ErrHoursRequired  = "Urenstand is verplicht."
	ErrHoursInvalid   = "Gebruik een getal groter of gelijk aan 0. Gebruik een punt voor decimalen."
)

// NormalizeSerial trims and uppercases a serial number or fault code token.
// Charset filtering for session-id contexts is done separately by the
// domain package.
func NormalizeSerial(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// NormalizeHours canonicalizes free-form operating-hours input. Comma and
// dot both act as decimal separator, at most one decimal point and one
// leading minus sign survive, and insignificant leading zeros are dropped.
// The function is idempotent.
func NormalizeHours(value string) string {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range trimmed {
		if r == '-' || r == '.' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	filtered := b.String()

	sign := ""
	rest := filtered
	if strings.HasPrefix(rest, "-") {
		sign = "-"
		rest = rest[1:]
	}
	rest = strings.ReplaceAll(rest, "-", "")

	parts := strings.Split(rest, ".")
	integerPart := strings.TrimLeft(parts[0], "0")
	if integerPart == "" && parts[0] != "" {
		integerPart = "0"
	}
	decimalPart := strings.Join(parts[1:], "")

	if integerPart == "" && decimalPart == "" {
		return sign
	}

	integer := integerPart
	if integer == "" {
		integer = "0"
	}
	base := integer
	if decimalPart != "" {
		base = integer + "." + decimalPart
	}
	return sign + base
}

// Hours is the parsed form of an operating-hours input.
type Hours struct {
	Text  string
	Value float64 // NaN when Text is empty or unparsable
}

// ParseHours normalizes the input and parses it to a number.
func ParseHours(value string) Hours {
	normalized := NormalizeHours(value)
	if normalized == "" {
		return Hours{Text: "", Value: math.NaN()}
	}
	numeric, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(numeric, 0) {
		return Hours{Text: normalized, Value: math.NaN()}
	}
	return Hours{Text: normalized, Value: numeric}
}

// EnsureFaultCodeList normalizes each code, drops empty tokens, and
// deduplicates preserving first-occurrence order.
func EnsureFaultCodeList(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := NormalizeSerial(code)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// SplitFaultCodes tokenizes a comma- or whitespace-delimited fault-code
// string and normalizes the result like EnsureFaultCodeList.
func SplitFaultCodes(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return EnsureFaultCodeList(tokens)
}

// FormatFaultCodes renders a canonical fault-code list as display text.
func FormatFaultCodes(list []string) string {
	return strings.Join(list, ", ")
}

// Payload is raw intake input, straight from a form or a stored record.
type Payload struct {
	SerialNumber  string
	Hours         string
	HoursValue    *float64
	FaultCodes    string
	FaultCodeList []string
}

// State is the normalized intake state used for validation.
type State struct {
	SerialNumber  string
	Hours         string
	HoursValue    float64 // NaN when invalid
	FaultCodes    string
	FaultCodeList []string
}

// BuildState normalizes a payload into intake state. The hours text takes
// precedence over the numeric value when both are present.
func BuildState(payload Payload) State {
	serial := NormalizeSerial(payload.SerialNumber)

	hoursSource := payload.Hours
	if strings.TrimSpace(hoursSource) == "" && payload.HoursValue != nil {
		hoursSource = strconv.FormatFloat(*payload.HoursValue, 'f', -1, 64)
	}
	hours := ParseHours(hoursSource)

	var list []string
	if payload.FaultCodeList != nil {
		list = EnsureFaultCodeList(payload.FaultCodeList)
	} else {
		list = SplitFaultCodes(payload.FaultCodes)
	}

	return State{
		SerialNumber:  serial,
		Hours:         hours.Text,
		HoursValue:    hours.Value,
		FaultCodes:    FormatFaultCodes(list),
		FaultCodeList: list,
	}
}

// FieldErrors holds per-field validation messages; empty string means valid.
type FieldErrors struct {
	SerialNumber string
	Hours        string
}

// Validation is the outcome of Validate.
type Validation struct {
	Errors FieldErrors
	Valid  bool
}

// Validate checks intake state. Serial number and a non-negative hours
// value are required; fault codes are always optional.
func Validate(state State) Validation {
	var errs FieldErrors

	serialValid := strings.TrimSpace(state.SerialNumber) != ""
	if !serialValid {
		errs.SerialNumber = ErrSerialRequired
	}

	hasHours := strings.TrimSpace(state.Hours) != ""
	hoursValid := hasHours && !math.IsNaN(state.HoursValue) && state.HoursValue >= 0
	if !hasHours {
		errs.Hours = ErrHoursRequired
	} else if !hoursValid {
		errs.Hours = ErrHoursInvalid
	}

	return Validation{Errors: errs, Valid: serialValid && hoursValid}
}

// Record is the canonical, JSON-serializable intake record. HoursValue is
// nil rather than NaN when the hours input is missing or invalid.
type Record struct {
	SerialNumber  string   `json:"serialNumber"`
	Hours         string   `json:"hours"`
	HoursValue    *float64 `json:"hoursValue"`
	FaultCodes    string   `json:"faultCodes"`
	FaultCodeList []string `json:"faultCodeList"`
}

// NewRecord composes normalization and parsing into the canonical record.
func NewRecord(payload Payload) Record {
	state := BuildState(payload)

	var hoursValue *float64
	if !math.IsNaN(state.HoursValue) && state.HoursValue >= 0 {
		v := state.HoursValue
		hoursValue = &v
	}

	return Record{
		SerialNumber:  state.SerialNumber,
		Hours:         state.Hours,
		HoursValue:    hoursValue,
		FaultCodes:    state.FaultCodes,
		FaultCodeList: state.FaultCodeList,
	}
}

// Ready reports whether the record satisfies the chat gate: a serial number
// plus an hours value that parsed to a non-negative number.
func (r Record) Ready() bool {
	return r.SerialNumber != "" && r.HoursValue != nil
}
