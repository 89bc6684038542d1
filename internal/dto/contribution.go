package dto

import (
	"time"

	"github.com/JonkiPro/popcorn-sub004/internal/models"
)

// SubmitContributionRequest payload for proposing a single-field movie edit.
type SubmitContributionRequest struct {
	MovieID  string            `json:"movie_id" validate:"required"`
	Field    models.MovieField `json:"field" validate:"required"`
	NewValue string            `json:"new_value" validate:"required"`
}

// VerifyContributionRequest captures the reviewer decision.
type VerifyContributionRequest struct {
	Decision models.VerificationDecision `json:"decision" validate:"required"`
}

// ContributionQuery mirrors supported listing filters. All criteria are
// optional and combine as a conjunction.
type ContributionQuery struct {
	MovieID string
	Field   models.MovieField
	Status  models.DataStatus
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}
