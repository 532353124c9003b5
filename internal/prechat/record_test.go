package prechat

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- NormalizeSerial tests ---

func TestNormalizeSerial(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" ab-12 ", "AB-12"},
		{"xyz", "XYZ"},
		{"  ", ""},
		{"", ""},
		{"l1234-h", "L1234-H"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSerial(tt.in))
	}
}

// --- NormalizeHours tests ---

func TestNormalizeHours(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"plain integer", "1500", "1500"},
		{"comma decimal", "3,5", "3.5"},
		{"dot decimal", "3.5", "3.5"},
		{"leading zeros", "007", "7"},
		{"all zeros", "000", "0"},
		{"zero point five", "0.5", "0.5"},
		{"bare decimals", ".5", "0.5"},
		{"double dot collapses", "1.2.3", "1.23"},
		{"internal minus stripped", "1-2", "12"},
		{"leading minus kept", "-12", "-12"},
		{"double minus", "--12", "-12"},
		{"letters stripped", "12a4u", "124"},
		{"bare sign", "-", "-"},
		{"sign and letters", "-abc", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHours(tt.in))
		})
	}
}

func TestNormalizeHoursIdempotent(t *testing.T) {
	inputs := []string{"", "3,5", "007", "-0,25", "1.2.3", "12a4u", "-", "000", ".5", "99999.125"}
	for _, in := range inputs {
		once := NormalizeHours(in)
		twice := NormalizeHours(once)
		assert.Equal(t, once, twice, "NormalizeHours not idempotent for %q", in)
	}
}

func TestNormalizeHoursSingleSeparators(t *testing.T) {
	inputs := []string{"1.2.3.4", "--5--5", "-1,2,3", "0.0.0", ",,,", "..-.."}
	for _, in := range inputs {
		got := NormalizeHours(in)
		assert.LessOrEqual(t, strings.Count(got, "."), 1, "two decimal points in %q -> %q", in, got)
		assert.LessOrEqual(t, strings.Count(got, "-"), 1, "two minus signs in %q -> %q", in, got)
	}
}

// --- ParseHours tests ---

func TestParseHours(t *testing.T) {
	got := ParseHours("3,5")
	assert.Equal(t, "3.5", got.Text)
	assert.Equal(t, 3.5, got.Value)

	empty := ParseHours("  ")
	assert.Equal(t, "", empty.Text)
	assert.True(t, math.IsNaN(empty.Value))

	sign := ParseHours("-")
	assert.Equal(t, "-", sign.Text)
	assert.True(t, math.IsNaN(sign.Value))
}

// --- Fault code tests ---

func TestEnsureFaultCodeListDeduplicates(t *testing.T) {
	got := EnsureFaultCodeList([]string{"a", "A", " a "})
	assert.Equal(t, []string{"A"}, got)
}

func TestEnsureFaultCodeListPreservesOrder(t *testing.T) {
	got := EnsureFaultCodeList([]string{"z9", "a1", "Z9", "", "b2"})
	assert.Equal(t, []string{"Z9", "A1", "B2"}, got)
}

func TestSplitFaultCodes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"x, y, x", []string{"X", "Y"}},
		{"224-01 113-02", []string{"224-01", "113-02"}},
		{"a,,b", []string{"A", "B"}},
		{"  ", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitFaultCodes(tt.in))
	}
}

func TestFormatFaultCodes(t *testing.T) {
	assert.Equal(t, "X, Y", FormatFaultCodes([]string{"X", "Y"}))
	assert.Equal(t, "", FormatFaultCodes(nil))
}

// --- Validate tests ---

func TestValidateMissingSerial(t *testing.T) {
	state := BuildState(Payload{Hours: "10"})
	v := Validate(state)
	assert.False(t, v.Valid)
	assert.Equal(t, ErrSerialRequired, v.Errors.SerialNumber)
	assert.Empty(t, v.Errors.Hours)
}

func TestValidateMissingHours(t *testing.T) {
	state := BuildState(Payload{SerialNumber: "AB-12"})
	v := Validate(state)
	assert.False(t, v.Valid)
	assert.Equal(t, ErrHoursRequired, v.Errors.Hours)
}

func TestValidateNegativeHours(t *testing.T) {
	state := BuildState(Payload{SerialNumber: "AB-12", Hours: "-5"})
	v := Validate(state)
	assert.False(t, v.Valid)
	assert.Equal(t, ErrHoursInvalid, v.Errors.Hours)
}

func TestValidateOK(t *testing.T) {
	state := BuildState(Payload{SerialNumber: "AB-12", Hours: "0"})
	v := Validate(state)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors.SerialNumber)
	assert.Empty(t, v.Errors.Hours)
}

// --- NewRecord tests ---

func TestNewRecordCanonicalizes(t *testing.T) {
	rec := NewRecord(Payload{SerialNumber: " ab-12 ", Hours: "3,5", FaultCodes: "x, y, x"})

	assert.Equal(t, "AB-12", rec.SerialNumber)
	assert.Equal(t, "3.5", rec.Hours)
	require.NotNil(t, rec.HoursValue)
	assert.Equal(t, 3.5, *rec.HoursValue)
	assert.Equal(t, []string{"X", "Y"}, rec.FaultCodeList)
	assert.Equal(t, "X, Y", rec.FaultCodes)
	assert.True(t, rec.Ready())
}

func TestNewRecordInvalidHoursYieldsNil(t *testing.T) {
	rec := NewRecord(Payload{SerialNumber: "AB-12", Hours: "abc"})
	assert.Nil(t, rec.HoursValue)
	assert.False(t, rec.Ready())

	negative := NewRecord(Payload{SerialNumber: "AB-12", Hours: "-3"})
	assert.Nil(t, negative.HoursValue)
	assert.False(t, negative.Ready())
}

func TestNewRecordHoursValueFallback(t *testing.T) {
	v := 12.5
	rec := NewRecord(Payload{SerialNumber: "AB-12", HoursValue: &v})
	assert.Equal(t, "12.5", rec.Hours)
	require.NotNil(t, rec.HoursValue)
	assert.Equal(t, 12.5, *rec.HoursValue)
}

func TestNewRecordFaultCodeListWins(t *testing.T) {
	rec := NewRecord(Payload{
		SerialNumber:  "AB-12",
		Hours:         "1",
		FaultCodes:    "ignored",
		FaultCodeList: []string{"e1", "E1", "e2"},
	})
	assert.Equal(t, []string{"E1", "E2"}, rec.FaultCodeList)
	assert.Equal(t, "E1, E2", rec.FaultCodes)
}
