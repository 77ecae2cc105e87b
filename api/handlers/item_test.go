package handlers_test

import (
	"encoding/json"
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

func TestItem_CreateItemHandlerInvalidType(t *testing.T) {
	body := strings.NewReader(`{"itemType": "stolen", "title": "Wallet", "description": "Brown wallet", "category": "Accessories", "imageUrl": "https://img", "location": {"lat": 1, "lng": 2}}`)
	req, err := http.NewRequest("POST", "/api/v1/item", body)
	if err != nil {
		t.Fatal(err)
	}

	i := handlers.Item{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.CreateItemHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid item report")
}

func TestItem_CreateItemHandlerMissingLocation(t *testing.T) {
	body := strings.NewReader(`{"itemType": "lost", "title": "Wallet", "description": "Brown wallet", "category": "Accessories", "imageUrl": "https://img"}`)
	req, err := http.NewRequest("POST", "/api/v1/item", body)
	if err != nil {
		t.Fatal(err)
	}

	i := handlers.Item{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.CreateItemHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "a pinned location is required")
}

func TestItem_CreateItemHandlerFoundWithoutSecret(t *testing.T) {
	body := strings.NewReader(`{"itemType": "found", "title": "Keys", "description": "Dorm keys", "category": "Keys", "imageUrl": "https://img", "location": {"lat": 1, "lng": 2}}`)
	req, err := http.NewRequest("POST", "/api/v1/item", body)
	if err != nil {
		t.Fatal(err)
	}

	i := handlers.Item{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.CreateItemHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "found items require a secret question and answer")
}

func TestItem_ItemByIDHandlerInvalidHex(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/item/asdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": "asdf"})

	i := handlers.Item{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.ItemByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestItem_ItemByIDHandlerRedactsSecretsForNonOwner(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:             itemID,
		UserID:         "finder-1",
		ItemType:       models.ItemTypeFound,
		Status:         models.ItemStatusActive,
		Title:          "Keys",
		SecretQuestion: "What is on the keychain?",
		SecretAnswer:   "a red carabiner",
	}

	req, err := http.NewRequest("GET", "/api/v1/item/"+itemID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "someone-else"))

	i := handlers.Item{DB: itemDatabaseReturning(item)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.ItemByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "red carabiner")
	assert.NotContains(t, rr.Body.String(), "keychain")
}

func TestItem_ItemByIDHandlerKeepsSecretsForOwner(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:             itemID,
		UserID:         "finder-1",
		ItemType:       models.ItemTypeFound,
		Status:         models.ItemStatusActive,
		Title:          "Keys",
		SecretQuestion: "What is on the keychain?",
		SecretAnswer:   "a red carabiner",
	}

	req, err := http.NewRequest("GET", "/api/v1/item/"+itemID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	i := handlers.Item{DB: itemDatabaseReturning(item)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.ItemByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "red carabiner")
}

func TestItem_ItemsMapHandlerMissingBounds(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/items/map?minLat=1&maxLat=2", nil)
	if err != nil {
		t.Fatal(err)
	}

	i := handlers.Item{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.ItemsMapHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestItem_ItemsHandlerEmptyResult(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/items", nil)
	if err != nil {
		t.Fatal(err)
	}

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).On("Decode", mock.Anything).Return(nil)
	conn.(*mocks.CollectionHelper).On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursorHelper)
	db.(*MockDatabaseHelper).On("Collection", "items").Return(conn)

	i := handlers.Item{DB: databases.NewItemDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(i.ItemsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.PaginatedItemsResponse
	err = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), resp.TotalCount)
	assert.NotNil(t, resp.Data)
}
