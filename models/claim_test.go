package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusfind/lostfound-api/models"
)

func TestClaimStatus_IsTerminal(t *testing.T) {
	assert.False(t, models.ClaimStatusPending.IsTerminal())
	assert.True(t, models.ClaimStatusApproved.IsTerminal())
	assert.True(t, models.ClaimStatusRejected.IsTerminal())
}

func TestClaimStatus_IsValid(t *testing.T) {
	assert.True(t, models.ClaimStatusPending.IsValid())
	assert.False(t, models.ClaimStatus("cancelled").IsValid())
}

func TestClaim_IsParticipant(t *testing.T) {
	claim := models.Claim{FinderID: "finder-1", ClaimerID: "claimer-1"}

	assert.True(t, claim.IsParticipant("finder-1"))
	assert.True(t, claim.IsParticipant("claimer-1"))
	assert.False(t, claim.IsParticipant("stranger-1"))
	assert.False(t, claim.IsParticipant(""))
}
