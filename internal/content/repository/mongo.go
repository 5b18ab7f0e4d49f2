package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yangjihun/FM-COMMIT/internal/content"
	"github.com/yangjihun/FM-COMMIT/pkg/logger"
)

// MongoRepo implements a MongoDB-backed list collection.
// Items are addressed by their "id" string field (unique index, see
// database.EnsureIndexes); _id is left to the server and gives insertion order.
type MongoRepo[T any, PT content.Record[T]] struct {
	col *mongo.Collection
}

func NewMongoRepo[T any, PT content.Record[T]](col *mongo.Collection) *MongoRepo[T, PT] {
	return &MongoRepo[T, PT]{col: col}
}

func (m *MongoRepo[T, PT]) List(ctx context.Context) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []T{}
	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		PT(&item).Normalize()
		out = append(out, item)
	}
	return out, cur.Err()
}

func (m *MongoRepo[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, content.ErrNotFound
		}
		return nil, err
	}
	PT(&item).Normalize()
	return &item, nil
}

func (m *MongoRepo[T, PT]) Insert(ctx context.Context, item *T) error {
	if _, err := m.col.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return content.ErrDuplicateID
		}
		return err
	}
	return nil
}

// setFields builds the $set document for the named fields plus updatedAt.
// A field that does not exist in the stored form is an error, never a
// silently skipped write.
func setFields(item interface{}, fields []string) (bson.M, error) {
	raw, err := bson.Marshal(item)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": doc["updatedAt"]}
	for _, f := range fields {
		v, ok := doc[f]
		if !ok {
			return nil, fmt.Errorf("update: no stored field %q", f)
		}
		set[f] = v
	}
	return set, nil
}

// Update issues a single $set of the named fields plus updatedAt.
func (m *MongoRepo[T, PT]) Update(ctx context.Context, item *T, fields []string) error {
	set, err := setFields(item, fields)
	if err != nil {
		return err
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"id": PT(item).GetID()}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (m *MongoRepo[T, PT]) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return content.ErrNotFound
	}
	return nil
}

// ReplaceAll clears and refills the collection inside a transaction. On a
// standalone server, which has no transactions, it falls back to a plain
// delete-then-insert and readers may briefly see a partial collection.
func (m *MongoRepo[T, PT]) ReplaceAll(ctx context.Context, items []T) error {
	docs := make([]interface{}, len(items))
	for i := range items {
		docs[i] = &items[i]
	}
	sess, err := m.col.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, m.replace(sc, docs)
	})
	if transactionsUnsupported(err) {
		logger.Warnf("collection %s: transactions unavailable, replacing without one", m.col.Name())
		return m.replace(ctx, docs)
	}
	return err
}

func (m *MongoRepo[T, PT]) replace(ctx context.Context, docs []interface{}) error {
	if _, err := m.col.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.col.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return content.ErrDuplicateID
		}
		return err
	}
	return nil
}

// IllegalOperation (20) is what a standalone mongod answers to a
// transaction; older servers only say so in the message.
func transactionsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

const studyKey = "study"

// MongoStudyRepo stores the singleton under a fixed _id.
type MongoStudyRepo struct {
	col *mongo.Collection
}

func NewMongoStudyRepo(col *mongo.Collection) *MongoStudyRepo {
	return &MongoStudyRepo{col: col}
}

func (m *MongoStudyRepo) Get(ctx context.Context) (*content.Study, error) {
	var s content.Study
	if err := m.col.FindOne(ctx, bson.M{"_id": studyKey}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (m *MongoStudyRepo) Put(ctx context.Context, s *content.Study) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": studyKey}, s, options.Replace().SetUpsert(true))
	return err
}
