package flow

import (
	"errors"
	"fmt"
	"log"
	"time"

	"running-bot/internal/callback"
	"running-bot/internal/models"
	"running-bot/internal/store"
	"running-bot/internal/timefmt"
	"running-bot/internal/util"
)

// ErrProposalNotFound covers both a token that matches nothing and a
// decision that lost the race to an earlier one.
var ErrProposalNotFound = errors.New("proposal not found")

// Notifier delivers messages outside the current dialog. Delivery is
// best effort: the engine logs failures and keeps going, so a blocked
// bot or deleted chat never rolls back a write.
type Notifier interface {
	Send(userID int64, text string) error
	SendProposal(userID int64, text string, acceptToken, rejectToken string) error
}

type Engine struct {
	store  *store.Store
	notify Notifier
}

func NewEngine(st *store.Store, n Notifier) *Engine {
	return &Engine{store: st, notify: n}
}

// Finalize writes one registration per selected distance. Self flows
// produce plain registrations; coach flows produce pending proposals and
// dispatch one decision message per distance to the student.
func (e *Engine) Finalize(s *Session, comp *models.Competition) (int, error) {
	if !s.Done() {
		return 0, fmt.Errorf("dialog not finished")
	}

	count := 0
	for _, i := range s.Order {
		d := s.Distances[i]
		reg := models.Registration{
			UserID:        s.ActorID,
			CompetitionID: s.CompetitionID,
			Distance:      d.Value,
			DistanceLabel: d.Label,
			TargetTime:    s.Times[i],
			Status:        models.StatusRegistered,
		}
		if s.Kind == KindCoach {
			pending := models.ProposalPending
			reg.ProposalStatus = &pending
			reg.ProposedBy = &s.CoachID
		}
		if _, err := e.store.UpsertRegistration(reg); err != nil {
			return count, err
		}
		count++

		if s.Kind == KindCoach {
			e.dispatchProposal(s, comp, d, s.Times[i])
		}
	}
	return count, nil
}

func (e *Engine) dispatchProposal(s *Session, comp *models.Competition, d models.Distance, target *string) {
	text := fmt.Sprintf("🏃 Тренер предлагает вам участие: %s\nДистанция: %s",
		comp.Name, DescribeDistance(d))
	if target != nil {
		text += "\nЦелевое время: " + *target
	}

	accept := callback.Decision{Accept: true, CompetitionID: s.CompetitionID, CoachID: s.CoachID, Distance: d.Value}
	reject := callback.Decision{Accept: false, CompetitionID: s.CompetitionID, CoachID: s.CoachID, Distance: d.Value}
	if err := e.notify.SendProposal(s.ActorID, text, accept.Token(), reject.Token()); err != nil {
		log.Printf("dispatch proposal to %d: %v", s.ActorID, err)
	}
}

// Resolve maps a decision token back onto the pending row it refers to.
// The catalog recovers the label when the value matches an entry within
// tolerance; otherwise the newest pending row near the value is taken.
func (e *Engine) Resolve(studentID int64, d callback.Decision) (*models.Registration, *models.Competition, error) {
	comp, err := e.store.GetCompetition(d.CompetitionID)
	if err != nil {
		return nil, nil, err
	}
	if comp == nil {
		return nil, nil, ErrProposalNotFound
	}

	if entry, ok := MatchCatalog(comp.Distances, d.Distance); ok {
		reg, err := e.store.FindPendingByKey(studentID, d.CompetitionID, d.CoachID, entry.Value, entry.Label)
		if err != nil {
			return nil, nil, err
		}
		if reg != nil {
			return reg, comp, nil
		}
	}

	reg, err := e.store.FindPendingNearValue(studentID, d.CompetitionID, d.CoachID, d.Distance)
	if err != nil {
		return nil, nil, err
	}
	if reg == nil {
		return nil, nil, ErrProposalNotFound
	}
	return reg, comp, nil
}

// Accept confirms a pending proposal. needsTime is true when the coach
// proposed no target time; the caller then opens the follow-up dialog.
func (e *Engine) Accept(studentID int64, d callback.Decision) (reg *models.Registration, needsTime bool, err error) {
	reg, comp, err := e.Resolve(studentID, d)
	if err != nil {
		return nil, false, err
	}
	ok, err := e.store.AcceptProposal(reg.ID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrProposalNotFound
	}

	text := fmt.Sprintf("✅ Спортсмен принял предложение: %s, %s",
		comp.Name, DescribeDistance(models.Distance{Value: reg.Distance, Label: reg.DistanceLabel}))
	if reg.TargetTime != nil {
		text += ", целевое время " + *reg.TargetTime
	}
	if err := e.notify.Send(d.CoachID, text); err != nil {
		log.Printf("notify coach %d: %v", d.CoachID, err)
	}

	return reg, reg.TargetTime == nil, nil
}

// Reject removes a pending proposal entirely and tells the coach.
func (e *Engine) Reject(studentID int64, d callback.Decision) (*models.Registration, error) {
	reg, comp, err := e.Resolve(studentID, d)
	if err != nil {
		return nil, err
	}
	ok, err := e.store.RejectProposal(reg.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}

	text := fmt.Sprintf("❌ Спортсмен отклонил предложение: %s, %s",
		comp.Name, DescribeDistance(models.Distance{Value: reg.Distance, Label: reg.DistanceLabel}))
	if err := e.notify.Send(d.CoachID, text); err != nil {
		log.Printf("notify coach %d: %v", d.CoachID, err)
	}
	return reg, nil
}

// FollowupEnter sets the target time on a just-accepted registration.
func (e *Engine) FollowupEnter(regID int64, raw string) (string, error) {
	norm, err := timefmt.Normalize(raw)
	if err != nil {
		return "", err
	}
	ok, err := e.store.UpdateTargetTime(regID, &norm)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrProposalNotFound
	}
	return norm, nil
}

// FollowupCancel undoes the acceptance the follow-up belongs to: the
// registration row is removed as if the proposal had been rejected.
func (e *Engine) FollowupCancel(regID int64) error {
	_, err := e.store.DeleteRegistrationByID(regID)
	return err
}

// ExpireStale drops pending proposals older than ttl.
func (e *Engine) ExpireStale(ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	return e.store.ExpireStaleProposals(cutoff)
}

// DescribeDistance is the user-facing form of a catalog entry.
func DescribeDistance(d models.Distance) string {
	if d.Label != "" {
		return fmt.Sprintf("%s (%s км)", d.Label, util.FormatKm(d.Value))
	}
	return util.FormatKm(d.Value) + " км"
}
