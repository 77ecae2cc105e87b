package databases

// go generate: mockery --name ClaimDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusfind/lostfound-api/models"
)

const claimName = "claims"

// ClaimDatabase contains the methods to use with the claim database
type ClaimDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Claim, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Claim, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, claim models.Claim, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type claimDatabase struct {
	db DatabaseHelper
}

// NewClaimDatabase initializes a new instance of claim database with the provided db connection
func NewClaimDatabase(db DatabaseHelper) ClaimDatabase {
	return &claimDatabase{
		db: db,
	}
}

func (c *claimDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Claim, error) {
	claim := &models.Claim{}
	err := c.db.Collection(claimName).FindOne(ctx, filter, opts...).Decode(&claim)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (c *claimDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Claim, error) {
	var claims []models.Claim
	cr := c.db.Collection(claimName).Find(ctx, filter, opts...)
	err := cr.Decode(&claims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *claimDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	count, err := c.db.Collection(claimName).CountDocuments(ctx, filter, opts...)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *claimDatabase) InsertOne(ctx context.Context, claim models.Claim, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(claimName).InsertOne(ctx, claim, opts...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *claimDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error) {
	return c.db.Collection(claimName).UpdateOne(ctx, filter, update, opts...)
}

func (c *claimDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(claimName).DeleteOne(ctx, filter, opts...)
}
