package databases

// go generate: mockery --name CommunityMessageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusfind/lostfound-api/models"
)

const communityMessageName = "communityMessages"

// CommunityMessageDatabase contains the methods to use with the community message database
type CommunityMessageDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.CommunityMessage, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.CommunityMessage, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, message models.CommunityMessage, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
}

type communityMessageDatabase struct {
	db DatabaseHelper
}

// NewCommunityMessageDatabase initializes a new instance of community message database with the provided db connection
func NewCommunityMessageDatabase(db DatabaseHelper) CommunityMessageDatabase {
	return &communityMessageDatabase{
		db: db,
	}
}

func (c *communityMessageDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.CommunityMessage, error) {
	message := &models.CommunityMessage{}
	err := c.db.Collection(communityMessageName).FindOne(ctx, filter, opts...).Decode(&message)
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (c *communityMessageDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.CommunityMessage, error) {
	var messages []models.CommunityMessage
	cr := c.db.Collection(communityMessageName).Find(ctx, filter, opts...)
	err := cr.Decode(&messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *communityMessageDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	count, err := c.db.Collection(communityMessageName).CountDocuments(ctx, filter, opts...)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *communityMessageDatabase) InsertOne(ctx context.Context, message models.CommunityMessage, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(communityMessageName).InsertOne(ctx, message, opts...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *communityMessageDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(communityMessageName).UpdateOne(ctx, filter, update, opts...)
	return err
}
