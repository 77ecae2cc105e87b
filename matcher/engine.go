package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/models"
)

// Notifier pushes a freshly written notification to the user's live
// connection, if one is open. Delivery is best effort.
type Notifier interface {
	NotifyUser(userID string, notification models.Notification)
}

// Engine correlates a newly reported lost item against the active found items
// by asking Gemini for matches, and writes one notification per match for the
// reporting user. Runs fire-and-forget relative to the report submission; no
// failure in here ever reaches the submitting user.
type Engine struct {
	ItemDB         databases.ItemDatabase
	NotificationDB databases.NotificationDatabase
	LLM            LLM
	Notifier       Notifier
}

// NewEngine creates a matching engine
func NewEngine(itemDB databases.ItemDatabase, notificationDB databases.NotificationDatabase, llm LLM, notifier Notifier) *Engine {
	return &Engine{
		ItemDB:         itemDB,
		NotificationDB: notificationDB,
		LLM:            llm,
		Notifier:       notifier,
	}
}

// Run finds matches for the given lost item and records notifications for the
// reporting user. Returns the number of notifications written.
func (e *Engine) Run(ctx context.Context, lost models.Item) (int, error) {
	candidates, err := e.ItemDB.Find(ctx, bson.M{
		"itemType": models.ItemTypeFound,
		"status":   models.ItemStatusActive,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query found items: %w", err)
	}
	if len(candidates) == 0 {
		zap.S().Debugw("no active found items to compare against", "lostItemId", lost.ID.Hex())
		return 0, nil
	}

	prompt := buildPrompt(lost, candidates)

	raw, err := e.LLM.GenerateText(ctx, prompt)
	if err != nil {
		return 0, fmt.Errorf("match generation failed: %w", err)
	}

	matchedIDs, err := parseMatchResponse(raw)
	if err != nil {
		return 0, fmt.Errorf("unusable match response: %w", err)
	}

	// only trust IDs that were actually offered as candidates
	candidateIDs := make(map[string]primitive.ObjectID, len(candidates))
	for _, c := range candidates {
		candidateIDs[c.ID.Hex()] = c.ID
	}

	written := 0
	for _, id := range matchedIDs {
		matchedID, ok := candidateIDs[id]
		if !ok {
			zap.S().Warnw("model returned an id outside the candidate set, dropping",
				"id", id,
				"lostItemId", lost.ID.Hex())
			continue
		}

		notification := models.Notification{
			ID:        primitive.NewObjectID(),
			UserID:    lost.UserID,
			Message:   fmt.Sprintf("AI found a potential match for your item: %q", lost.Title),
			ItemID:    matchedID,
			IsRead:    false,
			CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
		}

		if _, err := e.NotificationDB.InsertOne(ctx, notification); err != nil {
			zap.S().Errorw("failed to save match notification",
				"error", err,
				"lostItemId", lost.ID.Hex(),
				"matchedItemId", id)
			continue
		}
		written++

		if e.Notifier != nil {
			e.Notifier.NotifyUser(lost.UserID, notification)
		}
	}

	zap.S().Infow("matching run complete",
		"lostItemId", lost.ID.Hex(),
		"candidates", len(candidates),
		"matches", written)
	return written, nil
}

// buildPrompt embeds the lost item and the candidate found items in the
// instruction sent to the model
func buildPrompt(lost models.Item, candidates []models.Item) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant for a campus lost and found app. ")
	b.WriteString("Your task is to find potential matches for a 'lost' item from a provided list of 'found' items. ")
	b.WriteString("Based on the lost item's title and description, analyze the list of found items. ")
	b.WriteString("Return a JSON array containing ONLY the string IDs of the found items that are a strong potential match. ")
	b.WriteString("If there are no strong matches, return an empty array [].\n")
	b.WriteString("---\nLOST ITEM:\n")
	fmt.Fprintf(&b, "Title: %q, Description: %q\n", lost.Title, lost.Description)
	b.WriteString("---\nLIST OF FOUND ITEMS (with their IDs):\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- ID: %q, Title: %q, Description: %q\n", c.ID.Hex(), c.Title, c.Description)
	}
	b.WriteString("---\nJSON Array of matching IDs:\n")
	return b.String()
}

// parseMatchResponse strips markdown code fences from the raw model output
// and parses it as a JSON array of string IDs
func parseMatchResponse(raw string) ([]string, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var ids []string
	if err := json.Unmarshal([]byte(cleaned), &ids); err != nil {
		return nil, fmt.Errorf("expected a JSON array of string ids: %w", err)
	}
	return ids, nil
}
