package callback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecisionRoundTrip(t *testing.T) {
	d := Decision{Accept: true, CompetitionID: 42, CoachID: 777, Distance: 21.1}
	require.Equal(t, "accept_coach_dist:42:777:21.1", d.Token())

	got, err := ParseDecision(d.Token())
	require.NoError(t, err)
	require.Equal(t, d, got)

	d.Accept = false
	require.Equal(t, "reject_coach_dist:42:777:21.1", d.Token())
	got, err = ParseDecision(d.Token())
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestDecisionWholeKilometres(t *testing.T) {
	d := Decision{Accept: true, CompetitionID: 1, CoachID: 2, Distance: 10}
	require.Equal(t, "accept_coach_dist:1:2:10", d.Token())
}

func TestParseDecisionRejectsMalformed(t *testing.T) {
	for _, data := range []string{
		"accept_coach_dist:",
		"accept_coach_dist:1:2",
		"accept_coach_dist:1:2:3:4",
		"accept_coach_dist:x:2:10",
		"accept_coach_dist:1:y:10",
		"accept_coach_dist:1:2:ten",
		"accept_coach_dist:0:2:10",
		"accept_coach_dist:1:2:-5",
		"unrelated:1:2:10",
	} {
		_, err := ParseDecision(data)
		require.Error(t, err, data)
	}
}

func TestParseIndex(t *testing.T) {
	i, err := ParseIndex("sel:toggle:2", "sel:toggle:", 3)
	require.NoError(t, err)
	require.Equal(t, 2, i)

	_, err = ParseIndex("sel:toggle:3", "sel:toggle:", 3)
	require.Error(t, err)
	_, err = ParseIndex("sel:toggle:-1", "sel:toggle:", 3)
	require.Error(t, err)
	_, err = ParseIndex("sel:toggle:abc", "sel:toggle:", 3)
	require.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("comp:view:17", "comp:view:")
	require.NoError(t, err)
	require.Equal(t, int64(17), id)

	_, err = ParseID("comp:view:0", "comp:view:")
	require.Error(t, err)
	_, err = ParseID("comp:view:nan", "comp:view:")
	require.Error(t, err)
}
