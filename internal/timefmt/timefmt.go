// Package timefmt parses and normalizes target finish times entered by
// users and coaches ("1:05:09", "45:30", "19:58.5").
package timefmt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var ErrBadFormat = errors.New("bad time format")

var timeRe = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?(?:\.(\d{1,2}))?$`)

// Time is a parsed target time. When the input had no hours component,
// Hours is 0 and HasHours is false so formatting can keep the short form.
type Time struct {
	Hours    int
	Minutes  int
	Seconds  int
	Fraction string // "" when absent, otherwise 2 digits
	HasHours bool
}

// Parse accepts H:MM:SS or MM:SS, each component 1-2 digits, with an
// optional fractional-seconds suffix of 1-2 digits. Minutes and seconds
// must be below 60. Anything else returns ErrBadFormat.
func Parse(s string) (Time, error) {
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return Time{}, ErrBadFormat
	}

	var t Time
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	if m[3] != "" {
		c, _ := strconv.Atoi(m[3])
		t.Hours, t.Minutes, t.Seconds = a, b, c
		t.HasHours = true
	} else {
		t.Minutes, t.Seconds = a, b
	}
	if t.Minutes > 59 || t.Seconds > 59 {
		return Time{}, ErrBadFormat
	}
	if m[4] != "" {
		f := m[4]
		for len(f) < 2 {
			f += "0"
		}
		t.Fraction = f
	}
	return t, nil
}

// String renders the canonical form: leading component unpadded, the rest
// zero-padded to two digits. A zero hours component collapses to M:SS.
func (t Time) String() string {
	out := ""
	if t.HasHours && t.Hours > 0 {
		out = fmt.Sprintf("%d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
	} else {
		out = fmt.Sprintf("%d:%02d", t.Minutes, t.Seconds)
	}
	if t.Fraction != "" {
		out += "." + t.Fraction
	}
	return out
}

// Normalize parses and re-renders in canonical form.
func Normalize(s string) (string, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// Valid reports whether s is an acceptable target time.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}
