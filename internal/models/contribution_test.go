package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContributions() []*Contribution {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*Contribution{
		{ID: "c-1", MovieID: "m-1", Field: FieldTitle, Status: StatusPending, SubmittedAt: base},
		{ID: "c-2", MovieID: "m-1", Field: FieldGenre, Status: StatusAccepted, SubmittedAt: base.Add(24 * time.Hour)},
		{ID: "c-3", MovieID: "m-2", Field: FieldTitle, Status: StatusRejected, SubmittedAt: base.Add(48 * time.Hour)},
	}
}

func TestContributionFilterEmptyMatchesAll(t *testing.T) {
	filter := ContributionFilter{}
	for _, c := range sampleContributions() {
		assert.True(t, filter.Matches(c), "empty filter must match %s", c.ID)
	}
}

func TestContributionFilterConjunction(t *testing.T) {
	contributions := sampleContributions()
	from := contributions[0].SubmittedAt
	to := contributions[1].SubmittedAt
	filter := ContributionFilter{
		MovieID: "m-1",
		Field:   FieldGenre,
		Status:  StatusAccepted,
		From:    &from,
		To:      &to,
	}

	var matched []string
	for _, c := range contributions {
		if filter.Matches(c) {
			matched = append(matched, c.ID)
		}
	}
	require.Equal(t, []string{"c-2"}, matched)

	// The conjunction equals the intersection of single-criterion filters.
	for _, c := range contributions {
		single := filter.Matches(c)
		intersected := ContributionFilter{MovieID: filter.MovieID}.Matches(c) &&
			ContributionFilter{Field: filter.Field}.Matches(c) &&
			ContributionFilter{Status: filter.Status}.Matches(c) &&
			ContributionFilter{From: filter.From}.Matches(c) &&
			ContributionFilter{To: filter.To}.Matches(c)
		assert.Equal(t, intersected, single, "contribution %s", c.ID)
	}
}

func TestContributionFilterDateBoundsInclusive(t *testing.T) {
	c := sampleContributions()[0]
	exact := c.SubmittedAt
	assert.True(t, ContributionFilter{From: &exact}.Matches(c))
	assert.True(t, ContributionFilter{To: &exact}.Matches(c))
}

func TestContributionFilterInvertedRangeMatchesNothing(t *testing.T) {
	contributions := sampleContributions()
	from := contributions[2].SubmittedAt
	to := contributions[0].SubmittedAt
	filter := ContributionFilter{From: &from, To: &to}
	for _, c := range contributions {
		assert.False(t, filter.Matches(c))
	}
}

func TestVerificationDecisionOutcome(t *testing.T) {
	status, ok := DecisionAccept.Outcome()
	require.True(t, ok)
	require.Equal(t, StatusAccepted, status)

	status, ok = DecisionReject.Outcome()
	require.True(t, ok)
	require.Equal(t, StatusRejected, status)

	_, ok = VerificationDecision("DEFER").Outcome()
	require.False(t, ok)
}

func TestDataStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestMovieFieldColumns(t *testing.T) {
	for _, field := range MovieFields() {
		col, ok := field.Column()
		require.True(t, ok)
		require.NotEmpty(t, col)
	}
	_, ok := MovieField("RUNTIME").Column()
	require.False(t, ok)
}
