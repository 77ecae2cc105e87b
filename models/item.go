package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ItemType marks a report as a lost item or a found item
type ItemType string

// Predefined ItemType values
const (
	ItemTypeLost  ItemType = "lost"
	ItemTypeFound ItemType = "found"
)

// IsValid checks if the ItemType value is one of the predefined constants
func (t ItemType) IsValid() bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// String returns the string representation of the ItemType
func (t ItemType) String() string {
	return string(t)
}

// ItemStatus tracks where an item is in the claim lifecycle
type ItemStatus string

// Predefined ItemStatus values
const (
	ItemStatusActive       ItemStatus = "active"
	ItemStatusPendingClaim ItemStatus = "pending_claim"
	ItemStatusReturned     ItemStatus = "returned"
)

// ValidItemStatuses returns all valid ItemStatus values
func ValidItemStatuses() []ItemStatus {
	return []ItemStatus{ItemStatusActive, ItemStatusPendingClaim, ItemStatusReturned}
}

// IsValid checks if the ItemStatus value is one of the predefined constants
func (s ItemStatus) IsValid() bool {
	for _, valid := range ValidItemStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// Location holds the pinned map coordinates for an item
type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Item holds the structure for the items collection in mongo
type Item struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id"`
	UserID         string             `json:"userId" bson:"userId"`
	UserName       string             `json:"userName" bson:"userName"`
	ItemType       ItemType           `json:"itemType" bson:"itemType"`
	Title          string             `json:"title" bson:"title"`
	Description    string             `json:"description" bson:"description"`
	Category       string             `json:"category" bson:"category"`
	ImageURL       string             `json:"imageUrl" bson:"imageUrl"`
	Location       Location           `json:"location" bson:"location"`
	Status         ItemStatus         `json:"status" bson:"status"`
	SecretQuestion string             `json:"secretQuestion,omitempty" bson:"secretQuestion,omitempty"`
	SecretAnswer   string             `json:"secretAnswer,omitempty" bson:"secretAnswer,omitempty"`
	CreatedAt      primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Redacted returns a copy of the item with the secret ownership-proof fields
// removed. The secret question and answer are only shown to the reporter.
func (i Item) Redacted() Item {
	i.SecretQuestion = ""
	i.SecretAnswer = ""
	return i
}

// ItemCategories lists the report categories offered by the client
var ItemCategories = []string{
	"Electronics", "ID Card", "Wallet/Purse", "Keys", "Apparel",
	"Books", "Bags", "Jewelry", "Water Bottle", "Other",
}
