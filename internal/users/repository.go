package users

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yangjihun/FM-COMMIT/internal/models"
)

// errDuplicateEmail is returned by repositories when the unique email index
// rejects an insert. The service translates it to ErrAlreadyExists.
var errDuplicateEmail = errors.New("duplicate email")

// Repository defines persistence operations for users and the block list.
// Lookups return (nil, nil) when nothing matches.
type Repository interface {
	Insert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetPassword(ctx context.Context, id, hash string) error

	UpsertBlock(ctx context.Context, email, reason string) (*models.BlockedUser, error)
	DeleteBlock(ctx context.Context, email string) (bool, error)
	GetBlock(ctx context.Context, email string) (*models.BlockedUser, error)
	ListBlocks(ctx context.Context) ([]models.BlockedUser, error)
}

// MongoRepository implements Repository using two collections: users and
// blocked_users. Both carry a unique index on email (see database.EnsureIndexes).
type MongoRepository struct {
	users   *mongo.Collection
	blocked *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collections
func NewMongoRepository(users, blocked *mongo.Collection) *MongoRepository {
	return &MongoRepository{users: users, blocked: blocked}
}

func (r *MongoRepository) Insert(ctx context.Context, u *models.User) error {
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.M{"password": 0})
	cur, err := r.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func roleUpdate(role models.Role, now time.Time) bson.M {
	return bson.M{"$set": bson.M{"level": role, "updatedAt": now}}
}

// blockUpdate keeps the original createdAt when an email is blocked again.
func blockUpdate(email, reason string, now time.Time) bson.M {
	return bson.M{
		"$set":         bson.M{"reason": reason, "updatedAt": now},
		"$setOnInsert": bson.M{"email": email, "createdAt": now},
	}
}

func (r *MongoRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	update := roleUpdate(role, time.Now().UTC())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) SetPassword(ctx context.Context, id, hash string) error {
	_, err := r.users.UpdateByID(ctx, id, bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()}})
	return err
}

func (r *MongoRepository) UpsertBlock(ctx context.Context, email, reason string) (*models.BlockedUser, error) {
	update := blockUpdate(email, reason, time.Now().UTC())
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var b models.BlockedUser
	if err := r.blocked.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *MongoRepository) DeleteBlock(ctx context.Context, email string) (bool, error) {
	res, err := r.blocked.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) GetBlock(ctx context.Context, email string) (*models.BlockedUser, error) {
	var b models.BlockedUser
	if err := r.blocked.FindOne(ctx, bson.M{"email": email}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *MongoRepository) ListBlocks(ctx context.Context) ([]models.BlockedUser, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.blocked.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.BlockedUser{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
