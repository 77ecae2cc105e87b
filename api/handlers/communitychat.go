package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/models"
)

// CommunityChat exported for testing purposes
type CommunityChat struct {
	DB  databases.CommunityMessageDatabase
	UDB databases.UserDatabase
	Hub *ChatHub
}

// CommunityMessagesHandler returns community messages oldest first. The limit
// query param caps the page size, defaulting to 50.
func (c CommunityChat) CommunityMessagesHandler(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.ParseInt(l, 10, 64)
		if err != nil || parsed < 1 {
			config.ErrorStatus("limit must be a positive integer", http.StatusBadRequest, w, err)
			return
		}
		limit = parsed
	}

	sort := bson.D{{Key: "createdAt", Value: 1}}
	dbResp, err := c.DB.Find(context.TODO(), bson.M{}, &options.FindOptions{
		Sort:  sort,
		Limit: &limit,
	})
	if err != nil {
		config.ErrorStatus("failed to get community messages", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.CommunityMessage{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type postCommunityMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
}

// PostCommunityMessageHandler appends a message to the community feed. A
// message needs text, an image, or both.
func (c CommunityChat) PostCommunityMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req postCommunityMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Text == "" && req.ImageURL == "" {
		config.ErrorStatus("message needs text or an image", http.StatusBadRequest, w, fmt.Errorf("empty message"))
		return
	}

	userID := api.UserIDFromContext(r.Context())
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	author, err := c.UDB.FindOne(r.Context(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get message author", http.StatusNotFound, w, err)
		return
	}
	authorName := author.Name
	if authorName == "" {
		authorName = author.Email
	}

	message := models.CommunityMessage{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		UserName:   authorName,
		UserAvatar: author.PhotoURL,
		Text:       req.Text,
		ImageURL:   req.ImageURL,
		Reactions:  []models.Reaction{},
		CreatedAt:  primitive.NewDateTimeFromTime(time.Now()),
	}

	if _, err := c.DB.InsertOne(context.TODO(), message); err != nil {
		config.ErrorStatus("failed to save message", http.StatusInternalServerError, w, err)
		return
	}

	if c.Hub != nil {
		c.Hub.Broadcast(communityRoom, map[string]interface{}{
			"event": "new_message",
			"data":  message,
		})
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

type addReactionRequest struct {
	Emoji string `json:"emoji"`
}

// AddReactionHandler appends an emoji reaction to a community message. The
// same user reacting with the same emoji twice is a no-op.
func (c CommunityChat) AddReactionHandler(w http.ResponseWriter, r *http.Request) {
	messageID := mux.Vars(r)["message_id"]

	mID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req addReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Emoji == "" {
		config.ErrorStatus("emoji is required", http.StatusBadRequest, w, fmt.Errorf("empty emoji"))
		return
	}

	userID := api.UserIDFromContext(r.Context())
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	author, err := c.UDB.FindOne(r.Context(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get reacting user", http.StatusNotFound, w, err)
		return
	}
	authorName := author.Name
	if authorName == "" {
		authorName = author.Email
	}

	reaction := models.Reaction{
		Emoji:    req.Emoji,
		UserID:   userID,
		UserName: authorName,
	}
	err = c.DB.UpdateOne(context.TODO(),
		bson.M{"_id": mID},
		bson.M{"$addToSet": bson.M{"reactions": reaction}},
	)
	if err != nil {
		config.ErrorStatus("failed to add reaction", http.StatusInternalServerError, w, err)
		return
	}

	if c.Hub != nil {
		c.Hub.Broadcast(communityRoom, map[string]interface{}{
			"event": "reaction_added",
			"data": map[string]interface{}{
				"messageId": messageID,
				"reaction":  reaction,
			},
		})
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "reaction added"}`))
}
