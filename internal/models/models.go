package models

// Distance is one entry of a competition's distance catalog.
// Value is kilometres; Label is the organizer's display name ("Марафон").
type Distance struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type Competition struct {
	ID        int64
	SourceKey string
	Name      string
	Date      string
	City      string
	Distances []Distance
	CreatedAt string
}

// RawListing is a competition as it arrives from an external feed,
// before distance normalization.
type RawListing struct {
	SourceKey string `json:"source_key"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	City      string `json:"city"`
	Distances []any  `json:"distances"`
}

const (
	StatusRegistered = "registered"

	ProposalPending = "pending"
)

type Registration struct {
	ID             int64
	UserID         int64
	CompetitionID  int64
	Distance       float64
	DistanceLabel  string
	TargetTime     *string
	Status         string
	ProposalStatus *string
	ProposedBy     *int64
	RegisteredAt   string
}

// Pending reports whether the row is a coach proposal awaiting a decision.
func (r Registration) Pending() bool {
	return r.ProposalStatus != nil && *r.ProposalStatus == ProposalPending
}

type Student struct {
	TgID     int64
	Name     string
	LinkedAt string
}
