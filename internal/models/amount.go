package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a fixed-point currency value with three decimal places,
// stored as a count of thousandths. It maps to NUMERIC(15,3) columns.
type Amount int64

// AmountFromString parses a decimal string such as "10000" or "10000.500".
func AmountFromString(raw string) (Amount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty amount")
	}
	negative := false
	if strings.HasPrefix(raw, "-") {
		negative = true
		raw = raw[1:]
	}
	whole := raw
	frac := ""
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		whole = raw[:idx]
		frac = raw[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	for len(frac) < 3 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	value := w*1000 + f
	if negative {
		value = -value
	}
	return Amount(value), nil
}

// String renders the amount with exactly three decimal places.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%03d", sign, v/1000, v%1000)
}

// Percent returns the given whole percentage of the amount, truncating
// toward zero at the third decimal.
func (a Amount) Percent(pct int64) Amount {
	return Amount(int64(a) * pct / 100)
}

// MarshalJSON renders the amount as a decimal string to avoid float drift.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := AmountFromString(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer, emitting the decimal text form.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case []byte:
		parsed, err := AmountFromString(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case string:
		parsed, err := AmountFromString(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		*a = Amount(v * 1000)
		return nil
	case float64:
		*a = Amount(int64(v*1000 + 0.5))
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}
