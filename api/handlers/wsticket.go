package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
)

// WSTicket exported for testing purposes
type WSTicket struct {
	DB        databases.UserDatabase
	JWTSecret []byte
}

// IssueTicketHandler mints a short-lived ticket the authenticated user passes
// in the query string when dialing a websocket
func (t WSTicket) IssueTicketHandler(w http.ResponseWriter, r *http.Request) {
	userID := api.UserIDFromContext(r.Context())

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	user, err := t.DB.FindOne(r.Context(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
		return
	}
	userName := user.Name
	if userName == "" {
		userName = user.Email
	}

	ticket, err := api.IssueWSTicket(t.JWTSecret, userID, userName)
	if err != nil {
		config.ErrorStatus("failed to issue ticket", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"ticket": ticket})
}
