package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for share expiry.
const DateLayout = "2006-01-02"

// Date is a calendar date stored in its canonical YYYY-MM-DD form. The zero
// value means "no date". Because the form is canonical, lexicographic string
// comparison orders dates correctly.
type Date string

// ParseDate validates s and returns it in canonical form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return string(d) > string(other) }

func (d Date) String() string { return string(d) }

// Value stores the date as text; an unset date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return string(d), nil
}

// Scan accepts NULL, text, or a time value from the driver.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case string:
		*d = Date(v)
	case []byte:
		*d = Date(string(v))
	case time.Time:
		*d = DateOf(v)
	default:
		return fmt.Errorf("cannot scan %T into timex.Date", src)
	}
	return nil
}
