package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/scribetree/pkg/errors"
)

const mongoCollection = "documents"

// Mongo stores documents in a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and ensures the collection indexes exist.
// An empty database name defaults to "scribe".
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo store needs a connection URI")
	}
	if database == "" {
		database = "scribe"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping mongo: %w", err)
	}

	m := NewMongoFromCollection(client, client.Database(database).Collection(mongoCollection))
	_, err = m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "transcript_hash", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: create indexes: %w", err)
	}
	return m, nil
}

// NewMongoFromCollection wraps an existing collection. Close disconnects
// client when it is non-nil.
func NewMongoFromCollection(client *mongo.Client, coll *mongo.Collection) *Mongo {
	return &Mongo{client: client, coll: coll}
}

func (m *Mongo) Save(ctx context.Context, doc *Document) error {
	if err := prepareNew(doc); err != nil {
		return err
	}
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New(errors.ErrCodeInvalidInput, "document %q already exists", doc.ID)
		}
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return &doc, nil
}

func (m *Mongo) List(ctx context.Context, limit int) ([]Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(listLimit(limit)))
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	docs := []Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return docs, nil
}

func (m *Mongo) Update(ctx context.Context, doc *Document) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"title":      doc.Title,
		"note":       doc.Note,
		"updated_at": nextUpdate(doc.UpdatedAt),
	}}
	filter := bson.M{"_id": doc.ID, "updated_at": doc.UpdatedAt}
	var out Document
	err := m.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		if _, err := m.Get(ctx, doc.ID); err != nil {
			return err
		}
		return conflict(doc.ID)
	}
	if err != nil {
		return fmt.Errorf("store: update %s: %w", doc.ID, err)
	}
	*doc = out
	return nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}

var _ Store = (*Mongo)(nil)
