package money

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type fieldState uint8

const (
	stateEmpty fieldState = iota
	stateValid
	stateInvalid
)

// Field holds a numeric value typed by a user. The zero value is the empty
// sentinel used while an input is cleared mid-edit.
type Field struct {
	raw   string
	value decimal.Decimal
	state fieldState
}

// Empty returns the empty sentinel.
func Empty() Field { return Field{} }

// Of wraps an already-typed amount. Negative amounts are marked invalid.
func Of(d decimal.Decimal) Field {
	if d.IsNegative() {
		return Field{raw: d.String(), state: stateInvalid}
	}
	return Field{raw: d.String(), value: d, state: stateValid}
}

// OfInt wraps an integer amount.
func OfInt(n int64) Field { return Of(decimal.NewFromInt(n)) }

// Parse interprets user text as a non-negative decimal. A leading numeric
// prefix is accepted ("12abc" is 12). Blank text yields the empty sentinel.
func Parse(raw string) Field {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Field{}
	}
	prefix := numericPrefix(trimmed)
	if prefix == "" {
		return Field{raw: raw, state: stateInvalid}
	}
	d, err := decimal.NewFromString(prefix)
	if err != nil || d.IsNegative() {
		return Field{raw: raw, state: stateInvalid}
	}
	return Field{raw: raw, value: d, state: stateValid}
}

// ParseQuantity is Parse for whole units; fractions are truncated toward zero.
func ParseQuantity(raw string) Field {
	f := Parse(raw)
	if f.state == stateValid {
		f.value = f.value.Truncate(0)
	}
	return f
}

// Coerce returns the numeric value of raw, or zero when raw is empty or not a number.
func Coerce(raw string) decimal.Decimal { return Parse(raw).Value() }

// Value returns the amount, treating empty and invalid input as zero.
func (f Field) Value() decimal.Decimal {
	if f.state != stateValid {
		return decimal.Zero
	}
	return f.value
}

// IsEmpty reports whether the field holds the empty sentinel.
func (f Field) IsEmpty() bool { return f.state == stateEmpty }

// IsValid reports whether the field holds a parsed, non-negative number.
func (f Field) IsValid() bool { return f.state == stateValid }

// Raw returns the text the field was parsed from.
func (f Field) Raw() string { return f.raw }

// String renders the field for redisplay in an input.
func (f Field) String() string {
	switch f.state {
	case stateValid:
		return f.value.String()
	case stateInvalid:
		return f.raw
	default:
		return ""
	}
}

// MarshalJSON writes valid values as JSON numbers and everything else as strings.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.state == stateValid {
		return []byte(f.value.String()), nil
	}
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (f *Field) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*f = Field{}
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		s, err := strconv.Unquote(text)
		if err != nil {
			return err
		}
		*f = Parse(s)
		return nil
	}
	*f = Parse(text)
	return nil
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Float returns d as a float64 for wire payloads.
func Float(d decimal.Decimal) float64 { return d.InexactFloat64() }

func numericPrefix(s string) string {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		fracStart := end + 1
		j := fracStart
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > fracStart {
			digits += j - fracStart
			end = j
		} else if digits > 0 {
			end = fracStart
		}
	}
	if digits == 0 {
		return ""
	}
	out := strings.TrimSuffix(strings.TrimPrefix(s[:end], "+"), ".")
	switch {
	case strings.HasPrefix(out, "-."):
		out = "-0" + out[1:]
	case strings.HasPrefix(out, "."):
		out = "0" + out
	}
	return out
}
