package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/models"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHub stores connected users (userId -> *websocket.Conn)
type NotificationHub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

// NewNotificationHub creates an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]*websocket.Conn),
	}
}

// NotifyUser pushes a notification to the user's open connection, if any.
// Best effort; a write failure drops the connection.
func (h *NotificationHub) NotifyUser(userID string, notification models.Notification) {
	h.mutex.Lock()
	conn, exists := h.clients[userID]
	h.mutex.Unlock()

	if !exists {
		return
	}

	err := conn.WriteJSON(map[string]interface{}{
		"event": "new_notification",
		"data":  notification,
	})
	if err != nil {
		zap.S().Warnw("failed to push notification, dropping connection",
			"userId", userID,
			"error", err)
		h.mutex.Lock()
		delete(h.clients, userID)
		h.mutex.Unlock()
		conn.Close()
	}
}

// Notification exported for testing purposes
type Notification struct {
	DB        databases.NotificationDatabase
	Hub       *NotificationHub
	JWTSecret []byte
}

// NotificationsWebSocketHandler upgrades the connection and registers the
// user for live match notifications. The connection is released when the
// client goes away.
func (n Notification) NotificationsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, err := api.ParseWSTicket(n.JWTSecret, r.URL.Query().Get("ticket"))
	if err != nil {
		config.ErrorStatus("invalid websocket ticket", http.StatusUnauthorized, w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	n.Hub.mutex.Lock()
	n.Hub.clients[userID] = conn
	n.Hub.mutex.Unlock()
	zap.S().Debugw("user connected to notifications socket", "userId", userID)

	defer func() {
		n.Hub.mutex.Lock()
		delete(n.Hub.clients, userID)
		n.Hub.mutex.Unlock()
		conn.Close()
		zap.S().Debugw("user disconnected from notifications socket", "userId", userID)
	}()

	// drain until the client closes
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}

// GetUserNotificationsHandler returns the notifications addressed to a user,
// newest first
func (n Notification) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if api.UserIDFromContext(r.Context()) != userID {
		config.ErrorStatus("cannot read another user's notifications", http.StatusForbidden, w, errNotOwner)
		return
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	dbResp, err := n.DB.Find(context.TODO(), bson.M{"userId": userID}, &options.FindOptions{Sort: sort})
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Notification{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkNotificationAsReadHandler flags a notification as read
func (n Notification) MarkNotificationAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	notificationID := mux.Vars(r)["notification_id"]

	if api.UserIDFromContext(r.Context()) != userID {
		config.ErrorStatus("cannot modify another user's notifications", http.StatusForbidden, w, errNotOwner)
		return
	}

	nID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	filter := bson.M{"_id": nID, "userId": userID}
	err = n.DB.UpdateOne(context.Background(), filter, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		config.ErrorStatus("failed to mark notification as read", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "notification marked as read"}`))
}

// DeleteNotificationHandler deletes a notification
func (n Notification) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	notificationID := mux.Vars(r)["notification_id"]

	if api.UserIDFromContext(r.Context()) != userID {
		config.ErrorStatus("cannot modify another user's notifications", http.StatusForbidden, w, errNotOwner)
		return
	}

	nID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	err = n.DB.DeleteOne(context.Background(), bson.M{"_id": nID, "userId": userID})
	if err != nil {
		config.ErrorStatus("failed to delete notification", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "notification deleted"}`))
}
