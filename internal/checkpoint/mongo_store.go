package checkpoint

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tvahtera/claimflow/pkg/api"
)

// MongoStore is a Store backed by MongoDB.
//
// Collection schema:
//
//	{
//	  _id:        string,   // thread ID
//	  payload:    []byte,   // JSON-encoded checkpoint
//	  done:       bool,
//	  updated_at: int64,    // unix nanoseconds
//	}
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

type mongoCheckpointDoc struct {
	ThreadID  string `bson:"_id"`
	Payload   []byte `bson:"payload"`
	Done      bool   `bson:"done"`
	UpdatedAt int64  `bson:"updated_at"`
}

// NewMongoStore creates a Mongo-backed checkpoint store.
// dbName defaults to "claimflow", collName to "checkpoints".
func NewMongoStore(client *mongo.Client, dbName, collName string) *MongoStore {
	if dbName == "" {
		dbName = "claimflow"
	}
	if collName == "" {
		collName = "checkpoints"
	}
	return &MongoStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

func (s *MongoStore) Save(ctx context.Context, cp api.Checkpoint) error {
	payload, err := EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	doc := mongoCheckpointDoc{
		ThreadID:  cp.ThreadID,
		Payload:   payload,
		Done:      cp.Done,
		UpdatedAt: cp.UpdatedAt.UnixNano(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": cp.ThreadID}, doc, opts)
	return err
}

func (s *MongoStore) Load(ctx context.Context, threadID string) (api.Checkpoint, error) {
	var doc mongoCheckpointDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": threadID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return api.Checkpoint{}, ErrCheckpointNotFound
		}
		return api.Checkpoint{}, err
	}
	return DecodeCheckpoint(doc.Payload)
}

func (s *MongoStore) Clear(ctx context.Context, threadID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": threadID})
	return err
}

func (s *MongoStore) List(ctx context.Context) ([]api.Checkpoint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []api.Checkpoint
	for cur.Next(ctx) {
		var doc mongoCheckpointDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		cp, err := DecodeCheckpoint(doc.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}

	return out, cur.Err()
}
