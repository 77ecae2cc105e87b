package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Reaction is a single emoji reaction on a community message
type Reaction struct {
	Emoji    string `json:"emoji" bson:"emoji"`
	UserID   string `json:"userId" bson:"userId"`
	UserName string `json:"userName" bson:"userName"`
}

// CommunityMessage holds the structure for the communityMessages collection in
// mongo. Messages are append-only; reactions are appended with $addToSet so a
// duplicate same-user same-emoji reaction is a no-op.
type CommunityMessage struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	UserID     string             `json:"userId" bson:"userId"`
	UserName   string             `json:"userName" bson:"userName"`
	UserAvatar string             `json:"userAvatar" bson:"userAvatar"`
	Text       string             `json:"text" bson:"text"`
	ImageURL   string             `json:"imageUrl" bson:"imageUrl"`
	Reactions  []Reaction         `json:"reactions" bson:"reactions"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
