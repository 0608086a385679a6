package models

import (
	"strconv"
	"time"
)

// DateLayout is the canonical string form of calendar dates.
const DateLayout = "2006-01-02"

// FormatDate stringifies a nullable date.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// FormatInt stringifies a nullable integer in base 10.
func FormatInt(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}

// FormatBool stringifies a boolean as true|false.
func FormatBool(v bool) *string {
	s := strconv.FormatBool(v)
	return &s
}

// FormatDecimal stringifies a number without trailing zeros.
func FormatDecimal(v float64) *string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return &s
}

// FormatText copies a nullable string.
func FormatText(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// Text wraps a non-null string.
func Text(v string) *string {
	return &v
}
