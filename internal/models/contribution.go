package models

import "time"

// DataStatus tags a contribution's position in the review workflow.
type DataStatus string

const (
	StatusPending  DataStatus = "PENDING"
	StatusAccepted DataStatus = "ACCEPTED"
	StatusRejected DataStatus = "REJECTED"
)

// Terminal reports whether the status permits no further transition.
func (s DataStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// VerificationDecision is the reviewer's input on a pending contribution.
type VerificationDecision string

const (
	DecisionAccept VerificationDecision = "ACCEPT"
	DecisionReject VerificationDecision = "REJECT"
)

// decisionOutcome is the total mapping from reviewer decision to persisted
// status. Static data, deliberately not behaviour on the decision type.
var decisionOutcome = map[VerificationDecision]DataStatus{
	DecisionAccept: StatusAccepted,
	DecisionReject: StatusRejected,
}

// Outcome resolves the status a decision leads to. ok is false for a
// decision outside the known set.
func (d VerificationDecision) Outcome() (DataStatus, bool) {
	status, ok := decisionOutcome[d]
	return status, ok
}

// Contribution is a proposed single-field edit to a movie record. The target
// movie and field never change after creation; only status and the
// verification metadata mutate, exactly once. Rows are never deleted so the
// table doubles as the review audit trail.
type Contribution struct {
	ID          string     `db:"id" json:"id"`
	MovieID     string     `db:"movie_id" json:"movie_id"`
	Field       MovieField `db:"field" json:"field"`
	NewValue    string     `db:"new_value" json:"new_value"`
	SubmittedBy string     `db:"submitted_by" json:"submitted_by"`
	Status      DataStatus `db:"status" json:"status"`
	SubmittedAt time.Time  `db:"submitted_at" json:"submitted_at"`
	VerifiedBy  *string    `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt  *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

// ContributionFilter constrains listing queries. Every criterion is optional;
// the zero value matches all contributions.
type ContributionFilter struct {
	MovieID string
	Field   MovieField
	Status  DataStatus
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

// Matches evaluates the filter as a predicate: the conjunction of every
// present criterion. Date bounds are inclusive; From after To matches
// nothing rather than erroring. Paging fields are ignored here, they only
// shape the storage scan.
func (f ContributionFilter) Matches(c *Contribution) bool {
	if c == nil {
		return false
	}
	if f.MovieID != "" && c.MovieID != f.MovieID {
		return false
	}
	if f.Field != "" && c.Field != f.Field {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.From != nil && c.SubmittedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && c.SubmittedAt.After(*f.To) {
		return false
	}
	return true
}
