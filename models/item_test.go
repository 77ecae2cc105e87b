package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusfind/lostfound-api/models"
)

func TestItemType_IsValid(t *testing.T) {
	assert.True(t, models.ItemTypeLost.IsValid())
	assert.True(t, models.ItemTypeFound.IsValid())
	assert.False(t, models.ItemType("stolen").IsValid())
	assert.False(t, models.ItemType("").IsValid())
}

func TestItemStatus_IsValid(t *testing.T) {
	assert.True(t, models.ItemStatusActive.IsValid())
	assert.True(t, models.ItemStatusPendingClaim.IsValid())
	assert.True(t, models.ItemStatusReturned.IsValid())
	assert.False(t, models.ItemStatus("archived").IsValid())
}

func TestItem_Redacted(t *testing.T) {
	item := models.Item{
		Title:          "Keys",
		SecretQuestion: "What is on the keychain?",
		SecretAnswer:   "a red carabiner",
	}

	redacted := item.Redacted()

	assert.Empty(t, redacted.SecretQuestion)
	assert.Empty(t, redacted.SecretAnswer)
	assert.Equal(t, "Keys", redacted.Title)

	// the original is untouched
	assert.Equal(t, "a red carabiner", item.SecretAnswer)
}
