package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/api/handlers"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/databases/mocks"
	"github.com/campusfind/lostfound-api/models"
)

func userDatabaseReturning(user models.User) databases.UserDatabase {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		**arg = user
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "users").Return(conn)

	return databases.NewUserDatabase(db)
}

func TestCommunityChat_PostCommunityMessageHandlerEmpty(t *testing.T) {
	body := strings.NewReader(`{"text": "", "imageUrl": ""}`)
	req, err := http.NewRequest("POST", "/api/v1/community-chat/messages", body)
	if err != nil {
		t.Fatal(err)
	}

	cc := handlers.CommunityChat{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(cc.PostCommunityMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "message needs text or an image")
}

func TestCommunityChat_PostCommunityMessageHandlerFallsBackToEmail(t *testing.T) {
	userID := primitive.NewObjectID()
	user := models.User{ID: userID, Email: "student@campus.edu"}

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var insertOneResult databases.InsertOneResultHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	insertOneResult = &mocks.InsertOneResultHelper{}

	conn.(*mocks.CollectionHelper).On("InsertOne", mock.Anything, mock.Anything).Return(insertOneResult, nil)
	db.(*MockDatabaseHelper).On("Collection", "communityMessages").Return(conn)

	body := strings.NewReader(`{"text": "anyone seen a blue backpack?"}`)
	req, err := http.NewRequest("POST", "/api/v1/community-chat/messages", body)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.WithUserID(req.Context(), userID.Hex()))

	cc := handlers.CommunityChat{
		DB:  databases.NewCommunityMessageDatabase(db),
		UDB: userDatabaseReturning(user),
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(cc.PostCommunityMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "student@campus.edu")
}

func TestCommunityChat_AddReactionHandlerMissingEmoji(t *testing.T) {
	messageID := primitive.NewObjectID()
	body := strings.NewReader(`{"emoji": ""}`)
	req, err := http.NewRequest("POST", "/api/v1/community-chat/messages/"+messageID.Hex()+"/reactions", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"message_id": messageID.Hex()})

	cc := handlers.CommunityChat{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(cc.AddReactionHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "emoji is required")
}

func TestCommunityChat_AddReactionHandlerInvalidHex(t *testing.T) {
	body := strings.NewReader(`{"emoji": "👍"}`)
	req, err := http.NewRequest("POST", "/api/v1/community-chat/messages/asdf/reactions", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"message_id": "asdf"})

	cc := handlers.CommunityChat{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(cc.AddReactionHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
