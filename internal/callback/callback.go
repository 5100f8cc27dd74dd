// Package callback encodes and decodes the callback-query payloads that
// carry coach-proposal decisions. Telegram limits callback data to 64
// bytes, so the tokens stay compact and positional.
package callback

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	acceptPrefix = "accept_coach_dist:"
	rejectPrefix = "reject_coach_dist:"
)

// Decision is a student's verdict on one proposed distance. The token
// carries only the numeric distance; the label is recovered server-side.
type Decision struct {
	Accept        bool
	CompetitionID int64
	CoachID       int64
	Distance      float64
}

func (d Decision) Token() string {
	p := rejectPrefix
	if d.Accept {
		p = acceptPrefix
	}
	return p + strconv.FormatInt(d.CompetitionID, 10) +
		":" + strconv.FormatInt(d.CoachID, 10) +
		":" + strconv.FormatFloat(d.Distance, 'f', -1, 64)
}

// IsDecision reports whether data looks like a decision token at all.
func IsDecision(data string) bool {
	return strings.HasPrefix(data, acceptPrefix) || strings.HasPrefix(data, rejectPrefix)
}

// ParseDecision validates and decodes a decision token. Malformed or
// out-of-range payloads return an error; the caller answers the user
// instead of crashing.
func ParseDecision(data string) (Decision, error) {
	var d Decision
	rest := ""
	switch {
	case strings.HasPrefix(data, acceptPrefix):
		d.Accept = true
		rest = strings.TrimPrefix(data, acceptPrefix)
	case strings.HasPrefix(data, rejectPrefix):
		rest = strings.TrimPrefix(data, rejectPrefix)
	default:
		return d, fmt.Errorf("not a decision token: %q", data)
	}

	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return d, fmt.Errorf("decision token has %d fields, want 3", len(parts))
	}
	compID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || compID <= 0 {
		return d, fmt.Errorf("bad competition id %q", parts[0])
	}
	coachID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || coachID <= 0 {
		return d, fmt.Errorf("bad coach id %q", parts[1])
	}
	dist, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || dist < 0 {
		return d, fmt.Errorf("bad distance %q", parts[2])
	}
	d.CompetitionID = compID
	d.CoachID = coachID
	d.Distance = dist
	return d, nil
}

// ParseIndex decodes the numeric tail of a prefixed token such as
// "sel:toggle:2" and bounds-checks it against the given length.
func ParseIndex(data, prefix string, n int) (int, error) {
	raw := strings.TrimPrefix(data, prefix)
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", raw)
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range 0..%d", i, n-1)
	}
	return i, nil
}

// ParseID decodes the numeric tail of a prefixed token such as
// "comp:view:17".
func ParseID(data, prefix string) (int64, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad id %q", raw)
	}
	return id, nil
}
