package dto

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date carried as "2006-01-02" in JSON, the format the
// clearance workflow uses for ETA and step dates.
type Date struct {
	time.Time
}

// DateLayout is the wire format for Date values.
const DateLayout = "2006-01-02"

// NewDate wraps a timestamp, truncated to its UTC date.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON parses "2006-01-02" strings.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	d.Time = parsed
	return nil
}

// MarshalJSON renders "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}
