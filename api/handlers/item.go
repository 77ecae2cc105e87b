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
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/matcher"
	"github.com/campusfind/lostfound-api/models"
)

// Item exported for testing purposes
type Item struct {
	DB      databases.ItemDatabase
	UDB     databases.UserDatabase
	Matcher *matcher.Engine
}

// PaginatedItemsResponse holds the structure for paginated item responses
type PaginatedItemsResponse struct {
	Page       int           `json:"page"`
	TotalCount int64         `json:"totalCount"`
	Data       []models.Item `json:"data"`
}

type itemCreateRequest struct {
	ItemType       models.ItemType  `json:"itemType"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	ImageURL       string           `json:"imageUrl"`
	Location       *models.Location `json:"location"`
	SecretQuestion string           `json:"secretQuestion"`
	SecretAnswer   string           `json:"secretAnswer"`
}

func (req itemCreateRequest) validate() error {
	if !req.ItemType.IsValid() {
		return fmt.Errorf("itemType must be %q or %q", models.ItemTypeLost, models.ItemTypeFound)
	}
	if req.Title == "" || req.Description == "" || req.Category == "" {
		return fmt.Errorf("title, description and category are required")
	}
	if req.ImageURL == "" {
		return fmt.Errorf("an item image is required")
	}
	if req.Location == nil {
		return fmt.Errorf("a pinned location is required")
	}
	if req.ItemType == models.ItemTypeFound && (req.SecretQuestion == "" || req.SecretAnswer == "") {
		return fmt.Errorf("found items require a secret question and answer")
	}
	return nil
}

// CreateItemHandler persists a new lost or found report. Lost reports kick
// off the matching engine in the background; the submission is acknowledged
// before matching completes and is never failed by it.
func (i Item) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	var req itemCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if err := req.validate(); err != nil {
		config.ErrorStatus("invalid item report", http.StatusBadRequest, w, err)
		return
	}

	userID := api.UserIDFromContext(r.Context())
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	reporter, err := i.UDB.FindOne(r.Context(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get reporting user", http.StatusNotFound, w, err)
		return
	}
	reporterName := reporter.Name
	if reporterName == "" {
		reporterName = reporter.Email
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	newItem := models.Item{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		UserName:    reporterName,
		ItemType:    req.ItemType,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Location:    *req.Location,
		Status:      models.ItemStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.ItemType == models.ItemTypeFound {
		newItem.SecretQuestion = req.SecretQuestion
		newItem.SecretAnswer = req.SecretAnswer
	}

	if _, err := i.DB.InsertOne(context.TODO(), newItem); err != nil {
		config.ErrorStatus("failed to create item report", http.StatusInternalServerError, w, err)
		return
	}

	if newItem.ItemType == models.ItemTypeLost && i.Matcher != nil {
		go func(lost models.Item) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := i.Matcher.Run(ctx, lost); err != nil {
				zap.S().Errorw("background matching failed",
					"error", err,
					"lostItemId", lost.ID.Hex())
			}
		}(newItem)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "item reported successfully",
		"id":      newItem.ID.Hex(),
	})
}

// ItemByIDHandler retrieves an item by its ID. The secret ownership-proof
// fields are only included for the reporting user.
func (i Item) ItemByIDHandler(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["item_id"]

	iID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	item, err := i.DB.FindOne(context.Background(), bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to find item", http.StatusNotFound, w, err)
		return
	}

	resp := *item
	if api.UserIDFromContext(r.Context()) != item.UserID {
		resp = item.Redacted()
	}

	b, err := json.Marshal(resp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ItemsHandler returns the item feed, newest first, paginated and optionally
// filtered by itemType, status and category
func (i Item) ItemsHandler(w http.ResponseWriter, r *http.Request) {
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Debugf("limit not set, using default of 20")
		Limit = 20
	}
	limit64 := int64(Limit)
	Page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		Page = 0
	}
	skip64 := int64(Page * Limit)

	filter := bson.M{}
	if v := r.URL.Query().Get("itemType"); v != "" {
		filter["itemType"] = v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter["status"] = v
	}
	if v := r.URL.Query().Get("category"); v != "" {
		filter["category"] = v
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	totalCount, err := i.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get total count of items", http.StatusInternalServerError, w, err)
		return
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	dbResp, err := i.DB.Find(ctx, filter, &options.FindOptions{Limit: &limit64, Skip: &skip64, Sort: sort})
	if err != nil {
		config.ErrorStatus("failed to get items", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Item{}
	}

	requester := api.UserIDFromContext(r.Context())
	for idx := range dbResp {
		if dbResp[idx].UserID != requester {
			dbResp[idx] = dbResp[idx].Redacted()
		}
	}

	paginatedResponse := PaginatedItemsResponse{
		Page:       Page,
		TotalCount: totalCount,
		Data:       dbResp,
	}

	respB, err := json.Marshal(paginatedResponse)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(respB)
}

// ItemsMapHandler returns items inside a bounding box for the map explorer
func (i Item) ItemsMapHandler(w http.ResponseWriter, r *http.Request) {
	minLat, err1 := strconv.ParseFloat(r.URL.Query().Get("minLat"), 64)
	maxLat, err2 := strconv.ParseFloat(r.URL.Query().Get("maxLat"), 64)
	minLng, err3 := strconv.ParseFloat(r.URL.Query().Get("minLng"), 64)
	maxLng, err4 := strconv.ParseFloat(r.URL.Query().Get("maxLng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		config.ErrorStatus("minLat, maxLat, minLng and maxLng are required", http.StatusBadRequest, w,
			fmt.Errorf("invalid bounding box"))
		return
	}

	filter := bson.M{
		"location.lat": bson.M{"$gte": minLat, "$lte": maxLat},
		"location.lng": bson.M{"$gte": minLng, "$lte": maxLng},
	}
	if v := r.URL.Query().Get("itemType"); v != "" {
		filter["itemType"] = v
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := i.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get items for map", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Item{}
	}

	requester := api.UserIDFromContext(r.Context())
	for idx := range dbResp {
		if dbResp[idx].UserID != requester {
			dbResp[idx] = dbResp[idx].Redacted()
		}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ItemsByUserIDHandler returns the items reported by a user, newest first
func (i Item) ItemsByUserIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	sort := bson.D{{Key: "createdAt", Value: -1}}
	dbResp, err := i.DB.Find(context.TODO(), bson.M{"userId": userID}, &options.FindOptions{Sort: sort})
	if err != nil {
		config.ErrorStatus("failed to get items by user ID", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Item{}
	}

	if api.UserIDFromContext(r.Context()) != userID {
		for idx := range dbResp {
			dbResp[idx] = dbResp[idx].Redacted()
		}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
