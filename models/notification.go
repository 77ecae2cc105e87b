package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification holds the structure for the notifications collection in mongo.
// Notifications are written only by the matching engine and addressed to the
// user who reported the lost item; itemId references the matched found item.
type Notification struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	UserID    string             `json:"userId" bson:"userId"`
	Message   string             `json:"message" bson:"message"`
	ItemID    primitive.ObjectID `json:"itemId" bson:"itemId"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
