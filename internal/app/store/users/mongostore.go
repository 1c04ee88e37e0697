// internal/app/store/users/mongostore.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps users in the "users" collection.
type MongoStore struct {
	c *mongo.Collection
}

// NewMongoStore creates a user store over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{c: db.Collection("users")}
}

// EnsureSchema creates the unique user-name index.
func (s *MongoStore) EnsureSchema(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "normalized_user_name", Value: 1}},
			Options: options.Index().SetName("ux_users_normalized_user_name").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "normalized_email", Value: 1}},
			Options: options.Index().SetName("idx_users_normalized_email"),
		},
	}
	if _, err := s.c.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}
	return nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *MongoStore) Create(ctx context.Context, u models.User) (models.User, error) {
	u, err := prepareNew(u)
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUserName
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetByID loads a user by id.
func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUserName looks up a user by folded user name.
func (s *MongoStore) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"normalized_user_name": NormalizeUserName(userName)})
}

// UpdatePassword replaces the password hash and security stamp.
func (s *MongoStore) UpdatePassword(ctx context.Context, id, passwordHash, securityStamp string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash":  passwordHash,
		"security_stamp": securityStamp,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of users.
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Ping verifies the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.c.Database().Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
