package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ClaimStatus tracks the negotiation state of a claim
type ClaimStatus string

// Predefined ClaimStatus values
const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// IsValid checks if the ClaimStatus value is one of the predefined constants
func (s ClaimStatus) IsValid() bool {
	return s == ClaimStatusPending || s == ClaimStatusApproved || s == ClaimStatusRejected
}

// IsTerminal reports whether the claim can no longer change state. Chat is
// disabled once a claim is terminal.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// String returns the string representation of the ClaimStatus
func (s ClaimStatus) String() string {
	return string(s)
}

// Claim holds the structure for the claims collection in mongo. Item title and
// image are denormalized at creation time for display in claim lists.
type Claim struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	ItemID       primitive.ObjectID `json:"itemId" bson:"itemId"`
	ItemTitle    string             `json:"itemTitle" bson:"itemTitle"`
	ItemImageURL string             `json:"itemImageUrl" bson:"itemImageUrl"`
	FinderID     string             `json:"finderId" bson:"finderId"`
	ClaimerID    string             `json:"claimerId" bson:"claimerId"`
	Status       ClaimStatus        `json:"status" bson:"status"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	ResolvedAt   primitive.DateTime `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// IsParticipant reports whether the given user is the finder or the claimer.
// Only participants may view a claim or post to its chat.
func (c Claim) IsParticipant(userID string) bool {
	return userID == c.FinderID || userID == c.ClaimerID
}
