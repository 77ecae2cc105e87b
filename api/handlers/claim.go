package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/models"
)

// Claim exported for testing purposes
type Claim struct {
	DB  databases.ClaimDatabase
	IDB databases.ItemDatabase
	MDB databases.ClaimMessageDatabase
	UDB databases.UserDatabase
	Hub *ChatHub
}

// writeClaimUnauthorized tells the client to leave the claim view. A
// non-participant opening a claim gets a redirect hint, not an error page.
func writeClaimUnauthorized(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error": "unauthorized", "redirect": "/"}`))
}

// InitiateClaimHandler creates a claim on a found, active, non-owned item and
// flips the item to pending_claim. The item flip is compensated by deleting
// the claim if it fails, so a half-applied claim never survives.
func (c Claim) InitiateClaimHandler(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["item_id"]

	iID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	item, err := c.IDB.FindOne(r.Context(), bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to find item", http.StatusNotFound, w, err)
		return
	}

	claimerID := api.UserIDFromContext(r.Context())
	if item.ItemType != models.ItemTypeFound {
		config.ErrorStatus("only found items can be claimed", http.StatusBadRequest, w,
			fmt.Errorf("item %s is a %s report", itemID, item.ItemType))
		return
	}
	if item.Status != models.ItemStatusActive {
		config.ErrorStatus("item is not available for claiming", http.StatusConflict, w,
			fmt.Errorf("item %s has status %s", itemID, item.Status))
		return
	}
	if claimerID == item.UserID {
		config.ErrorStatus("cannot claim your own item", http.StatusBadRequest, w,
			fmt.Errorf("user %s reported item %s", claimerID, itemID))
		return
	}

	newClaim := models.Claim{
		ID:           primitive.NewObjectID(),
		ItemID:       item.ID,
		ItemTitle:    item.Title,
		ItemImageURL: item.ImageURL,
		FinderID:     item.UserID,
		ClaimerID:    claimerID,
		Status:       models.ClaimStatusPending,
		CreatedAt:    primitive.NewDateTimeFromTime(time.Now()),
	}

	if _, err := c.DB.InsertOne(context.TODO(), newClaim); err != nil {
		config.ErrorStatus("failed to create claim", http.StatusInternalServerError, w, err)
		return
	}

	// flip the item only if it is still active; compensate on failure or
	// when a concurrent claimer flipped it first
	matched, err := c.IDB.UpdateOne(context.TODO(),
		bson.M{"_id": item.ID, "status": models.ItemStatusActive},
		bson.M{"$set": bson.M{"status": models.ItemStatusPendingClaim, "updatedAt": primitive.NewDateTimeFromTime(time.Now())}},
	)
	if err != nil || matched == 0 {
		if delErr := c.DB.DeleteOne(context.TODO(), bson.M{"_id": newClaim.ID}); delErr != nil {
			zap.S().Errorw("failed to roll back orphaned claim",
				"claimId", newClaim.ID.Hex(),
				"error", delErr)
		}
		if err != nil {
			config.ErrorStatus("failed to update item status", http.StatusInternalServerError, w, err)
			return
		}
		config.ErrorStatus("item is not available for claiming", http.StatusConflict, w,
			fmt.Errorf("item %s was claimed by someone else", itemID))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "claim created successfully",
		"id":      newClaim.ID.Hex(),
	})
}

// ClaimByIDHandler returns a claim to its participants only
func (c Claim) ClaimByIDHandler(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claim_id"]

	cID, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	claim, err := c.DB.FindOne(context.Background(), bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to find claim", http.StatusNotFound, w, err)
		return
	}

	if !claim.IsParticipant(api.UserIDFromContext(r.Context())) {
		writeClaimUnauthorized(w)
		return
	}

	b, err := json.Marshal(claim)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ClaimsByUserIDHandler returns the claims where the user is finder or
// claimer, newest first
func (c Claim) ClaimsByUserIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if api.UserIDFromContext(r.Context()) != userID {
		config.ErrorStatus("cannot read another user's claims", http.StatusForbidden, w, errNotOwner)
		return
	}

	filter := bson.M{
		"$or": []bson.M{
			{"finderId": userID},
			{"claimerId": userID},
		},
	}
	sort := bson.D{{Key: "createdAt", Value: -1}}
	dbResp, err := c.DB.Find(context.TODO(), filter, &options.FindOptions{Sort: sort})
	if err != nil {
		config.ErrorStatus("failed to get claims", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Claim{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type resolveClaimRequest struct {
	Decision models.ClaimStatus `json:"decision"`
}

// ResolveClaimHandler lets the finder approve or reject a pending claim.
// Approval returns the item; rejection puts it back on the feed. The item
// write is compensated by reverting the claim if it fails.
func (c Claim) ResolveClaimHandler(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claim_id"]

	cID, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req resolveClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Decision != models.ClaimStatusApproved && req.Decision != models.ClaimStatusRejected {
		config.ErrorStatus("decision must be approved or rejected", http.StatusBadRequest, w,
			fmt.Errorf("got decision %q", req.Decision))
		return
	}

	claim, err := c.DB.FindOne(r.Context(), bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to find claim", http.StatusNotFound, w, err)
		return
	}

	if api.UserIDFromContext(r.Context()) != claim.FinderID {
		config.ErrorStatus("only the finder can resolve a claim", http.StatusForbidden, w, errNotParticipant)
		return
	}
	if claim.Status.IsTerminal() {
		config.ErrorStatus("claim is already resolved", http.StatusConflict, w,
			fmt.Errorf("claim %s has status %s", claimID, claim.Status))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	matched, err := c.DB.UpdateOne(context.TODO(),
		bson.M{"_id": cID, "status": models.ClaimStatusPending},
		bson.M{"$set": bson.M{"status": req.Decision, "resolvedAt": now}},
	)
	if err != nil {
		config.ErrorStatus("failed to update claim status", http.StatusInternalServerError, w, err)
		return
	}
	if matched == 0 {
		// a concurrent resolve won the pending guard
		config.ErrorStatus("claim is already resolved", http.StatusConflict, w,
			fmt.Errorf("claim %s is no longer pending", claimID))
		return
	}

	itemStatus := models.ItemStatusReturned
	if req.Decision == models.ClaimStatusRejected {
		itemStatus = models.ItemStatusActive
	}
	_, err = c.IDB.UpdateOne(context.TODO(),
		bson.M{"_id": claim.ItemID},
		bson.M{"$set": bson.M{"status": itemStatus, "updatedAt": now}},
	)
	if err != nil {
		// revert so the claim stays resolvable
		if _, revErr := c.DB.UpdateOne(context.TODO(),
			bson.M{"_id": cID},
			bson.M{"$set": bson.M{"status": models.ClaimStatusPending}, "$unset": bson.M{"resolvedAt": ""}},
		); revErr != nil {
			zap.S().Errorw("failed to revert claim after item update failure",
				"claimId", claimID,
				"error", revErr)
		}
		config.ErrorStatus("failed to update item status", http.StatusInternalServerError, w, err)
		return
	}

	if c.Hub != nil {
		c.Hub.Broadcast(claimRoom(claimID), map[string]interface{}{
			"event": "claim_resolved",
			"data":  map[string]string{"claimId": claimID, "status": req.Decision.String()},
		})
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"message": "claim %s"}`, req.Decision)))
}

// ClaimMessagesHandler returns the chat history of a claim, oldest first,
// to its participants only
func (c Claim) ClaimMessagesHandler(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claim_id"]

	cID, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	claim, err := c.DB.FindOne(r.Context(), bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to find claim", http.StatusNotFound, w, err)
		return
	}
	if !claim.IsParticipant(api.UserIDFromContext(r.Context())) {
		writeClaimUnauthorized(w)
		return
	}

	sort := bson.D{{Key: "createdAt", Value: 1}}
	dbResp, err := c.MDB.Find(context.TODO(), bson.M{"claimId": cID}, &options.FindOptions{Sort: sort})
	if err != nil {
		config.ErrorStatus("failed to get claim messages", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.ClaimMessage{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// PostClaimMessageHandler appends a chat message to a claim. Participants
// only; resolved claims are read-only.
func (c Claim) PostClaimMessageHandler(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claim_id"]

	cID, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Text == "" {
		config.ErrorStatus("message text is required", http.StatusBadRequest, w, fmt.Errorf("empty message"))
		return
	}

	claim, err := c.DB.FindOne(r.Context(), bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to find claim", http.StatusNotFound, w, err)
		return
	}

	userID := api.UserIDFromContext(r.Context())
	if !claim.IsParticipant(userID) {
		writeClaimUnauthorized(w)
		return
	}
	if claim.Status.IsTerminal() {
		config.ErrorStatus("claim is resolved, chat is disabled", http.StatusConflict, w,
			fmt.Errorf("claim %s has status %s", claimID, claim.Status))
		return
	}

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

	message := models.ClaimMessage{
		ID:        primitive.NewObjectID(),
		ClaimID:   cID,
		UID:       userID,
		UserName:  authorName,
		PhotoURL:  author.PhotoURL,
		Text:      req.Text,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
	}

	if _, err := c.MDB.InsertOne(context.TODO(), message); err != nil {
		config.ErrorStatus("failed to save message", http.StatusInternalServerError, w, err)
		return
	}

	if c.Hub != nil {
		c.Hub.Broadcast(claimRoom(claimID), map[string]interface{}{
			"event": "new_message",
			"data":  message,
		})
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}
