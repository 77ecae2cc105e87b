package databases

// go generate: mockery --name JobLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const jobLockName = "jobLocks"

// JobLockDatabase provides a mongo-backed lock so scheduled jobs run on a
// single instance at a time
type JobLockDatabase interface {
	TryAcquireLock(ctx context.Context, jobName, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, jobName, instanceID string) error
}

type jobLockDatabase struct {
	db DatabaseHelper
}

// NewJobLockDatabase initializes a new instance of job lock database with the provided db connection
func NewJobLockDatabase(db DatabaseHelper) JobLockDatabase {
	return &jobLockDatabase{
		db: db,
	}
}

type jobLock struct {
	JobName    string    `bson:"_id"`
	InstanceID string    `bson:"instanceId"`
	ExpiresAt  time.Time `bson:"expiresAt"`
}

func (c *jobLockDatabase) TryAcquireLock(ctx context.Context, jobName, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	var existing jobLock
	err := c.db.Collection(jobLockName).FindOne(ctx, bson.M{"_id": jobName}).Decode(&existing)
	if err == nil && existing.ExpiresAt.After(now) && existing.InstanceID != instanceID {
		// held by another live instance
		return false, nil
	}
	if err != nil && err != mongo.ErrNoDocuments {
		return false, err
	}

	upsert := true
	_, err = c.db.Collection(jobLockName).UpdateOne(ctx,
		bson.M{"_id": jobName},
		bson.M{"$set": bson.M{"instanceId": instanceID, "expiresAt": now.Add(ttl)}},
		&options.UpdateOptions{Upsert: &upsert},
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *jobLockDatabase) ReleaseLock(ctx context.Context, jobName, instanceID string) error {
	return c.db.Collection(jobLockName).DeleteOne(ctx, bson.M{"_id": jobName, "instanceId": instanceID})
}
