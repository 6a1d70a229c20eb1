package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/couplediary/diary/internal/diary"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoIndexID = "diary-index"

// mongoIndexDoc is the single document holding the whole Index.
type mongoIndexDoc struct {
	ID       string      `bson:"_id"`
	Revision int64       `bson:"revision"`
	Entries  diary.Index `bson:"entries"`
}

// MongoIndex implements IndexStore on one MongoDB document. The revision
// check is a conditional update on the "revision" field, so concurrent
// writers in different processes cannot overwrite each other.
//
// The whole Index lives in that one document, so it is bound by MongoDB's
// 16 MiB document limit (on the order of 100k entries). Past it every
// WriteIndex fails and creates report ErrUnavailable.
type MongoIndex struct {
	col *mongo.Collection
}

func NewMongoIndex(col *mongo.Collection) *MongoIndex {
	return &MongoIndex{col: col}
}

func (m *MongoIndex) FetchIndex(ctx context.Context) (diary.Index, string, error) {
	var d mongoIndexDoc
	err := m.col.FindOne(ctx, bson.M{"_id": mongoIndexID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return diary.Index{}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("find index: %w", err)
	}
	if d.Entries == nil {
		d.Entries = diary.Index{}
	}
	return d.Entries, formatRevision(d.Revision), nil
}

func (m *MongoIndex) WriteIndex(ctx context.Context, idx diary.Index, prevRevision string) (string, error) {
	prev, err := parseRevision(prevRevision)
	if err != nil {
		return "", err
	}
	next := prev + 1
	if prev == 0 {
		// first write: the unique _id turns a concurrent first write into a conflict
		_, err := m.col.InsertOne(ctx, mongoIndexDoc{ID: mongoIndexID, Revision: next, Entries: idx})
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConflict
		}
		if err != nil {
			return "", fmt.Errorf("insert index: %w", err)
		}
		return formatRevision(next), nil
	}
	filter := bson.M{"_id": mongoIndexID, "revision": prev}
	update := bson.M{"$set": bson.M{"entries": idx, "revision": next}}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return "", fmt.Errorf("update index: %w", err)
	}
	if res.MatchedCount == 0 {
		return "", ErrConflict
	}
	return formatRevision(next), nil
}
