package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ClaimMessage holds the structure for the claimMessages collection in mongo.
// Messages are append-only and ordered by createdAt ascending.
type ClaimMessage struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	ClaimID   primitive.ObjectID `json:"claimId" bson:"claimId"`
	UID       string             `json:"uid" bson:"uid"`
	UserName  string             `json:"userName" bson:"userName"`
	PhotoURL  string             `json:"photoURL" bson:"photoURL"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
