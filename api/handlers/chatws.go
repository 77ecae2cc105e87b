package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/databases"
)

const communityRoom = "community"

func claimRoom(claimID string) string {
	return "claim:" + claimID
}

// ChatHub fans chat events out to websocket subscribers grouped by room.
// The community feed is one shared room; each claim chat is its own room.
type ChatHub struct {
	rooms map[string]map[*websocket.Conn]bool
	mutex sync.Mutex
}

// NewChatHub creates an empty hub
func NewChatHub() *ChatHub {
	return &ChatHub{rooms: make(map[string]map[*websocket.Conn]bool)}
}

// Join adds a connection to a room
func (h *ChatHub) Join(room string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]bool)
	}
	h.rooms[room][conn] = true
}

// Leave removes a connection from a room and drops the room when empty
func (h *ChatHub) Leave(room string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.rooms[room], conn)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast sends a JSON payload to every subscriber of a room. Connections
// that fail to write are dropped from the room.
func (h *ChatHub) Broadcast(room string, payload interface{}) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.rooms[room] {
		if err := conn.WriteJSON(payload); err != nil {
			zap.S().Debugw("dropping chat subscriber", "room", room, "error", err)
			conn.Close()
			delete(h.rooms[room], conn)
		}
	}
}

// ChatSocket exported for testing purposes
type ChatSocket struct {
	Hub       *ChatHub
	CDB       databases.ClaimDatabase
	JWTSecret []byte
}

// CommunityChatWebSocketHandler subscribes a client to the community room.
// Authentication is a short-lived ticket in the query string because browsers
// cannot set headers on a websocket dial.
func (s ChatSocket) CommunityChatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	_, _, err := api.ParseWSTicket(s.JWTSecret, r.URL.Query().Get("ticket"))
	if err != nil {
		http.Error(w, "invalid ticket", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("failed to upgrade websocket", "error", err)
		return
	}

	s.Hub.Join(communityRoom, conn)
	defer func() {
		s.Hub.Leave(communityRoom, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}

// ClaimChatWebSocketHandler subscribes a claim participant to that claim's
// room. Non-participants are rejected before the upgrade.
func (s ChatSocket) ClaimChatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	claimID := mux.Vars(r)["claim_id"]

	userID, _, err := api.ParseWSTicket(s.JWTSecret, r.URL.Query().Get("ticket"))
	if err != nil {
		http.Error(w, "invalid ticket", http.StatusUnauthorized)
		return
	}

	cID, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		http.Error(w, "invalid claim id", http.StatusBadRequest)
		return
	}
	claim, err := s.CDB.FindOne(r.Context(), bson.M{"_id": cID})
	if err != nil {
		http.Error(w, "claim not found", http.StatusNotFound)
		return
	}
	if !claim.IsParticipant(userID) {
		http.Error(w, "not a claim participant", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("failed to upgrade websocket", "error", err)
		return
	}

	room := claimRoom(claimID)
	s.Hub.Join(room, conn)
	defer func() {
		s.Hub.Leave(room, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}
