package timefmt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"01:05:09", "1:05:09"},
		{"0:5:9", "5:09"},
		{"5:9", "5:09"},
		{"45:30", "45:30"},
		{"1:00:00", "1:00:00"},
		{"0:45:30", "45:30"},
		{"19:58.5", "19:58.50"},
		{"19:58.50", "19:58.50"},
		{"1:05:09.7", "1:05:09.70"},
		{"2:03", "2:03"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"1:05:09", "5:09", "45:30", "19:58.50"} {
		got, err := Normalize(in)
		require.NoError(t, err)
		require.Equal(t, in, got)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"marathon",
		"123:00",
		"1:60",
		"1:05:60",
		"1:5:9.123",
		"1.05.09",
		"-5:09",
		"5:09:",
		":05:09",
		"1:05:09 ",
	} {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrBadFormat, in)
	}
}
