package databases

// go generate: mockery --name ClaimMessageDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusfind/lostfound-api/models"
)

const claimMessageName = "claimMessages"

// ClaimMessageDatabase contains the methods to use with the claim message database
type ClaimMessageDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ClaimMessage, error)
	InsertOne(ctx context.Context, message models.ClaimMessage, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
}

type claimMessageDatabase struct {
	db DatabaseHelper
}

// NewClaimMessageDatabase initializes a new instance of claim message database with the provided db connection
func NewClaimMessageDatabase(db DatabaseHelper) ClaimMessageDatabase {
	return &claimMessageDatabase{
		db: db,
	}
}

func (c *claimMessageDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ClaimMessage, error) {
	var messages []models.ClaimMessage
	cr := c.db.Collection(claimMessageName).Find(ctx, filter, opts...)
	err := cr.Decode(&messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *claimMessageDatabase) InsertOne(ctx context.Context, message models.ClaimMessage, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(claimMessageName).InsertOne(ctx, message, opts...)
	if err != nil {
		return nil, err
	}
	return res, nil
}
