package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/api/handlers"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/databases/mocks"
	"github.com/campusfind/lostfound-api/models"
)

// itemDatabaseReturning builds an ItemDatabase whose FindOne decodes the
// given item into the caller's pointer
func itemDatabaseReturning(item models.Item) databases.ItemDatabase {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Item)
		**arg = item
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "items").Return(conn)

	return databases.NewItemDatabase(db)
}

// claimDatabaseReturning builds a ClaimDatabase whose FindOne decodes the
// given claim into the caller's pointer
func claimDatabaseReturning(claim models.Claim) databases.ClaimDatabase {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Claim)
		**arg = claim
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "claims").Return(conn)

	return databases.NewClaimDatabase(db)
}

func TestClaim_InitiateClaimHandlerSelfClaim(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:       itemID,
		UserID:   "finder-1",
		ItemType: models.ItemTypeFound,
		Status:   models.ItemStatusActive,
	}

	req, err := http.NewRequest("POST", "/api/v1/item/"+itemID.Hex()+"/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	c := handlers.Claim{IDB: itemDatabaseReturning(item)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "cannot claim your own item")
}

func TestClaim_InitiateClaimHandlerLostItem(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:       itemID,
		UserID:   "reporter-1",
		ItemType: models.ItemTypeLost,
		Status:   models.ItemStatusActive,
	}

	req, err := http.NewRequest("POST", "/api/v1/item/"+itemID.Hex()+"/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-1"))

	c := handlers.Claim{IDB: itemDatabaseReturning(item)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "only found items can be claimed")
}

func TestClaim_InitiateClaimHandlerItemNotActive(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:       itemID,
		UserID:   "finder-1",
		ItemType: models.ItemTypeFound,
		Status:   models.ItemStatusPendingClaim,
	}

	req, err := http.NewRequest("POST", "/api/v1/item/"+itemID.Hex()+"/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-1"))

	c := handlers.Claim{IDB: itemDatabaseReturning(item)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "item is not available for claiming")
}

func TestClaim_InitiateClaimHandlerInvalidHex(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/item/asdf/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": "asdf"})

	c := handlers.Claim{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get objectID from Hex", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	assert.Equal(t, string(b), rr.Body.String())
}

func TestClaim_ClaimByIDHandlerNonParticipant(t *testing.T) {
	claimID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	req, err := http.NewRequest("GET", "/api/v1/claim/"+claimID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "stranger-1"))

	c := handlers.Claim{DB: claimDatabaseReturning(claim)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ClaimByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error": "unauthorized", "redirect": "/"}`, rr.Body.String())
}

func TestClaim_ResolveClaimHandlerNotFinder(t *testing.T) {
	claimID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	body := strings.NewReader(`{"decision": "approved"}`)
	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-1"))

	c := handlers.Claim{DB: claimDatabaseReturning(claim)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "only the finder can resolve a claim")
}

func TestClaim_ResolveClaimHandlerAlreadyResolved(t *testing.T) {
	claimID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusApproved,
	}

	body := strings.NewReader(`{"decision": "rejected"}`)
	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	c := handlers.Claim{DB: claimDatabaseReturning(claim)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "claim is already resolved")
}

func TestClaim_ResolveClaimHandlerBadDecision(t *testing.T) {
	claimID := primitive.NewObjectID()

	body := strings.NewReader(`{"decision": "maybe"}`)
	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})

	c := handlers.Claim{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "decision must be approved or rejected")
}

func TestClaim_PostClaimMessageHandlerResolvedClaim(t *testing.T) {
	claimID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusRejected,
	}

	body := strings.NewReader(`{"text": "hello"}`)
	req, err := http.NewRequest("POST", "/api/v1/claim/"+claimID.Hex()+"/messages", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-1"))

	c := handlers.Claim{DB: claimDatabaseReturning(claim)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.PostClaimMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "claim is resolved, chat is disabled")
}

func TestClaim_PostClaimMessageHandlerNonParticipant(t *testing.T) {
	claimID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	body := strings.NewReader(`{"text": "hello"}`)
	req, err := http.NewRequest("POST", "/api/v1/claim/"+claimID.Hex()+"/messages", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "stranger-1"))

	c := handlers.Claim{DB: claimDatabaseReturning(claim)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.PostClaimMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error": "unauthorized", "redirect": "/"}`, rr.Body.String())
}

func TestClaim_PostClaimMessageHandlerEmptyText(t *testing.T) {
	claimID := primitive.NewObjectID()

	body := strings.NewReader(`{"text": ""}`)
	req, err := http.NewRequest("POST", "/api/v1/claim/"+claimID.Hex()+"/messages", body)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})

	c := handlers.Claim{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.PostClaimMessageHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "message text is required")
}

// claimCollectionReturning is like claimDatabaseReturning but also hands back
// the raw collection mock so tests can pin write payloads
func claimCollectionReturning(claim models.Claim) (databases.ClaimDatabase, *mocks.CollectionHelper) {
	db := &MockDatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Claim)
		**arg = claim
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "claims").Return(conn)

	return databases.NewClaimDatabase(db), conn
}

// itemCollectionReturning is like itemDatabaseReturning but also hands back
// the raw collection mock so tests can pin write payloads
func itemCollectionReturning(item models.Item) (databases.ItemDatabase, *mocks.CollectionHelper) {
	db := &MockDatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResultHelper := &mocks.SingleResultHelper{}

	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Item)
		**arg = item
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.On("Collection", "items").Return(conn)

	return databases.NewItemDatabase(db), conn
}

// updateCalls collects the (filter, update) pairs recorded for UpdateOne
func updateCalls(conn *mocks.CollectionHelper) []struct{ Filter, Update bson.M } {
	var calls []struct{ Filter, Update bson.M }
	for _, call := range conn.Calls {
		if call.Method != "UpdateOne" {
			continue
		}
		calls = append(calls, struct{ Filter, Update bson.M }{
			Filter: call.Arguments.Get(1).(bson.M),
			Update: call.Arguments.Get(2).(bson.M),
		})
	}
	return calls
}

func TestClaim_InitiateClaimHandlerSuccess(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:       itemID,
		UserID:   "finder-1",
		ItemType: models.ItemTypeFound,
		Status:   models.ItemStatusActive,
		Title:    "Blue backpack",
		ImageURL: "https://res.cloudinary.com/demo/backpack.jpg",
	}

	itemDB, itemConn := itemCollectionReturning(item)
	itemConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	claimDB, claimConn := claimCollectionReturning(models.Claim{})
	claimConn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	req, err := http.NewRequest("POST", "/api/v1/item/"+itemID.Hex()+"/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-1"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "claim created successfully")

	var inserted models.Claim
	for _, call := range claimConn.Calls {
		if call.Method == "InsertOne" {
			inserted = call.Arguments.Get(1).(models.Claim)
		}
	}
	assert.Equal(t, itemID, inserted.ItemID)
	assert.Equal(t, "Blue backpack", inserted.ItemTitle)
	assert.Equal(t, item.ImageURL, inserted.ItemImageURL)
	assert.Equal(t, "finder-1", inserted.FinderID)
	assert.Equal(t, "claimer-1", inserted.ClaimerID)
	assert.Equal(t, models.ClaimStatusPending, inserted.Status)

	flips := updateCalls(itemConn)
	assert.Len(t, flips, 1)
	assert.Equal(t, bson.M{"_id": itemID, "status": models.ItemStatusActive}, flips[0].Filter)
	assert.Equal(t, models.ItemStatusPendingClaim, flips[0].Update["$set"].(bson.M)["status"])
}

func TestClaim_InitiateClaimHandlerConcurrentClaimer(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:       itemID,
		UserID:   "finder-1",
		ItemType: models.ItemTypeFound,
		Status:   models.ItemStatusActive,
	}

	itemDB, itemConn := itemCollectionReturning(item)
	// another claimer flipped the item between the read and the write
	itemConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)

	claimDB, claimConn := claimCollectionReturning(models.Claim{})
	claimConn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	claimConn.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)

	req, err := http.NewRequest("POST", "/api/v1/item/"+itemID.Hex()+"/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-2"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "item is not available for claiming")

	var inserted models.Claim
	var deleteFilter bson.M
	for _, call := range claimConn.Calls {
		switch call.Method {
		case "InsertOne":
			inserted = call.Arguments.Get(1).(models.Claim)
		case "DeleteOne":
			deleteFilter = call.Arguments.Get(1).(bson.M)
		}
	}
	assert.Equal(t, bson.M{"_id": inserted.ID}, deleteFilter, "losing claim should be rolled back")
}

func TestClaim_InitiateClaimHandlerRollsBackOnFlipError(t *testing.T) {
	itemID := primitive.NewObjectID()
	item := models.Item{
		ID:       itemID,
		UserID:   "finder-1",
		ItemType: models.ItemTypeFound,
		Status:   models.ItemStatusActive,
	}

	itemDB, itemConn := itemCollectionReturning(item)
	itemConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("connection reset"))

	claimDB, claimConn := claimCollectionReturning(models.Claim{})
	claimConn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	claimConn.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)

	req, err := http.NewRequest("POST", "/api/v1/item/"+itemID.Hex()+"/claim", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"item_id": itemID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "claimer-1"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.InitiateClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to update item status")
	claimConn.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestClaim_ResolveClaimHandlerApproved(t *testing.T) {
	claimID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		ItemID:    itemID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	claimDB, claimConn := claimCollectionReturning(claim)
	claimConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	itemDB, itemConn := itemCollectionReturning(models.Item{})
	itemConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve",
		strings.NewReader(`{"decision": "approved"}`))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "claim approved")

	claimWrites := updateCalls(claimConn)
	assert.Len(t, claimWrites, 1)
	assert.Equal(t, bson.M{"_id": claimID, "status": models.ClaimStatusPending}, claimWrites[0].Filter)
	assert.Equal(t, models.ClaimStatusApproved, claimWrites[0].Update["$set"].(bson.M)["status"])
	assert.Contains(t, claimWrites[0].Update["$set"].(bson.M), "resolvedAt")

	itemWrites := updateCalls(itemConn)
	assert.Len(t, itemWrites, 1)
	assert.Equal(t, bson.M{"_id": itemID}, itemWrites[0].Filter)
	assert.Equal(t, models.ItemStatusReturned, itemWrites[0].Update["$set"].(bson.M)["status"])
}

func TestClaim_ResolveClaimHandlerRejected(t *testing.T) {
	claimID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		ItemID:    itemID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	claimDB, claimConn := claimCollectionReturning(claim)
	claimConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	itemDB, itemConn := itemCollectionReturning(models.Item{})
	itemConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve",
		strings.NewReader(`{"decision": "rejected"}`))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "claim rejected")

	claimWrites := updateCalls(claimConn)
	assert.Len(t, claimWrites, 1)
	assert.Equal(t, models.ClaimStatusRejected, claimWrites[0].Update["$set"].(bson.M)["status"])

	// a rejected claim puts the item back on the feed
	itemWrites := updateCalls(itemConn)
	assert.Len(t, itemWrites, 1)
	assert.Equal(t, models.ItemStatusActive, itemWrites[0].Update["$set"].(bson.M)["status"])
}

func TestClaim_ResolveClaimHandlerConcurrentResolve(t *testing.T) {
	claimID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		ItemID:    primitive.NewObjectID(),
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	claimDB, claimConn := claimCollectionReturning(claim)
	// the pending guard matched nothing, someone else resolved first
	claimConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)

	itemDB, itemConn := itemCollectionReturning(models.Item{})

	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve",
		strings.NewReader(`{"decision": "approved"}`))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "claim is already resolved")
	itemConn.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestClaim_ResolveClaimHandlerRevertsOnItemError(t *testing.T) {
	claimID := primitive.NewObjectID()
	itemID := primitive.NewObjectID()
	claim := models.Claim{
		ID:        claimID,
		ItemID:    itemID,
		FinderID:  "finder-1",
		ClaimerID: "claimer-1",
		Status:    models.ClaimStatusPending,
	}

	claimDB, claimConn := claimCollectionReturning(claim)
	claimConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	itemDB, itemConn := itemCollectionReturning(models.Item{})
	itemConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("connection reset"))

	req, err := http.NewRequest("PUT", "/api/v1/claim/"+claimID.Hex()+"/resolve",
		strings.NewReader(`{"decision": "approved"}`))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"claim_id": claimID.Hex()})
	req = req.WithContext(api.WithUserID(req.Context(), "finder-1"))

	c := handlers.Claim{DB: claimDB, IDB: itemDB}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ResolveClaimHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "failed to update item status")

	claimWrites := updateCalls(claimConn)
	assert.Len(t, claimWrites, 2, "claim should be reverted after the item write fails")
	revert := claimWrites[1]
	assert.Equal(t, bson.M{"_id": claimID}, revert.Filter)
	assert.Equal(t, models.ClaimStatusPending, revert.Update["$set"].(bson.M)["status"])
	assert.Contains(t, revert.Update["$unset"].(bson.M), "resolvedAt")
}
