package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/models"
)

// stalePendingClaimAge is how long a claim may sit unresolved before the
// reconciler rejects it and releases the item back to the feed.
const stalePendingClaimAge = 14 * 24 * time.Hour

// Scheduler handles periodic background jobs for claim reconciliation
type Scheduler struct {
	cron       *cron.Cron
	IDB        databases.ItemDatabase
	CDB        databases.ClaimDatabase
	LockDB     databases.JobLockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	iDB databases.ItemDatabase,
	cDB databases.ClaimDatabase,
	lockDB databases.JobLockDatabase,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		IDB:        iDB,
		CDB:        cDB,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Reconcile claim/item state hourly. Claim creation and resolution each
	// touch two documents without a transaction, so a crash between writes
	// can leave an item stuck in pending_claim.
	_, err := s.cron.AddFunc("0 * * * *", s.ReconcileClaims)
	if err != nil {
		zap.S().Errorw("failed to register claim reconciler job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("claim reconciler scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("claim reconciler scheduler stopped")
}

// ReconcileClaims repairs items stuck in pending_claim with no live claim and
// rejects claims that have sat unresolved past the stale cutoff
func (s *Scheduler) ReconcileClaims() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (10 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "claim_reconciler_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for claim reconciler job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("claim reconciler already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "claim_reconciler_job", s.instanceID)

	zap.S().Infow("running claim reconciler job", "instance", s.instanceID)

	released := s.releaseOrphanedItems(ctx)
	rejected := s.rejectStaleClaims(ctx)

	zap.S().Infow("claim reconciliation complete",
		"itemsReleased", released,
		"claimsRejected", rejected,
	)
}

// releaseOrphanedItems returns items to active when no pending claim holds
// them anymore
func (s *Scheduler) releaseOrphanedItems(ctx context.Context) int {
	items, err := s.IDB.Find(ctx, bson.M{"status": models.ItemStatusPendingClaim})
	if err != nil {
		zap.S().Errorw("failed to find pending_claim items", "error", err)
		return 0
	}

	released := 0
	for _, item := range items {
		count, err := s.CDB.CountDocuments(ctx, bson.M{
			"itemId": item.ID,
			"status": models.ClaimStatusPending,
		})
		if err != nil {
			zap.S().Errorw("failed to count pending claims", "itemId", item.ID.Hex(), "error", err)
			continue
		}
		if count > 0 {
			continue
		}

		_, err = s.IDB.UpdateOne(ctx,
			bson.M{"_id": item.ID, "status": models.ItemStatusPendingClaim},
			bson.M{"$set": bson.M{"status": models.ItemStatusActive, "updatedAt": primitive.NewDateTimeFromTime(time.Now())}},
		)
		if err != nil {
			zap.S().Errorw("failed to release orphaned item", "itemId", item.ID.Hex(), "error", err)
			continue
		}
		released++
	}
	return released
}

// rejectStaleClaims rejects claims pending past the cutoff and puts their
// items back on the feed
func (s *Scheduler) rejectStaleClaims(ctx context.Context) int {
	cutoff := time.Now().Add(-stalePendingClaimAge)
	claims, err := s.CDB.Find(ctx, bson.M{
		"status":    models.ClaimStatusPending,
		"createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	})
	if err != nil {
		zap.S().Errorw("failed to find stale claims", "error", err)
		return 0
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	rejected := 0
	for _, claim := range claims {
		_, err = s.CDB.UpdateOne(ctx,
			bson.M{"_id": claim.ID, "status": models.ClaimStatusPending},
			bson.M{"$set": bson.M{"status": models.ClaimStatusRejected, "resolvedAt": now}},
		)
		if err != nil {
			zap.S().Errorw("failed to reject stale claim", "claimId", claim.ID.Hex(), "error", err)
			continue
		}

		_, err = s.IDB.UpdateOne(ctx,
			bson.M{"_id": claim.ItemID, "status": models.ItemStatusPendingClaim},
			bson.M{"$set": bson.M{"status": models.ItemStatusActive, "updatedAt": now}},
		)
		if err != nil {
			zap.S().Errorw("failed to release item for stale claim", "claimId", claim.ID.Hex(), "error", err)
		}
		rejected++
	}
	return rejected
}
