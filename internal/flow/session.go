// Package flow holds the registration dialogs: distance selection,
// per-distance target-time negotiation, and the student's decision on a
// coach proposal. Session state is serialized and stored, so a dialog
// picks up where it left off after a restart.
package flow

import (
	"encoding/json"
	"math"

	"running-bot/internal/models"
)

const (
	KindSelf  = "self"
	KindCoach = "coach"

	StageSelect = "select"
	StageTime   = "time"
	StageDone   = "done"
)

// ValueTolerance is how far two distance values may drift (km) and still
// mean the same catalog entry. Covers float round-trips through wire
// tokens and feeds.
const ValueTolerance = 0.01

// Session is one in-flight registration dialog. For KindCoach the actor
// is the student the coach is proposing to.
type Session struct {
	Kind          string            `json:"kind"`
	ActorID       int64             `json:"actor_id"`
	CoachID       int64             `json:"coach_id,omitempty"`
	CompetitionID int64             `json:"competition_id"`
	Distances     []models.Distance `json:"distances"`
	Locked        []bool            `json:"locked"`
	Selected      []bool            `json:"selected"`
	Order         []int             `json:"order,omitempty"`
	Times         []*string         `json:"times,omitempty"`
	Cursor        int               `json:"cursor"`
	Stage         string            `json:"stage"`
}

// NewSession snapshots the competition's distance catalog and marks as
// locked every entry the actor already holds a non-pending registration
// for. Competitions without distances get one implied entry.
func NewSession(kind string, actorID, coachID int64, comp *models.Competition, existing []models.Registration) *Session {
	distances := comp.Distances
	if len(distances) == 0 {
		distances = []models.Distance{{Value: 0, Label: ""}}
	}

	s := &Session{
		Kind:          kind,
		ActorID:       actorID,
		CoachID:       coachID,
		CompetitionID: comp.ID,
		Distances:     distances,
		Locked:        make([]bool, len(distances)),
		Selected:      make([]bool, len(distances)),
		Times:         make([]*string, len(distances)),
		Stage:         StageSelect,
	}
	for i, d := range distances {
		for _, r := range existing {
			if r.Pending() {
				continue
			}
			if math.Abs(r.Distance-d.Value) <= ValueTolerance {
				s.Locked[i] = true
				break
			}
		}
	}
	return s
}

// MatchCatalog finds the catalog entry whose value is within tolerance
// of v. This is how a decision token's bare number gets its label back.
func MatchCatalog(distances []models.Distance, v float64) (models.Distance, bool) {
	for _, d := range distances {
		if math.Abs(d.Value-v) <= ValueTolerance {
			return d, true
		}
	}
	return models.Distance{}, false
}

func (s *Session) Marshal() []byte {
	b, _ := json.Marshal(s)
	return b
}

func UnmarshalSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
