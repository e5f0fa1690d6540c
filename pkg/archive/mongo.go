package archive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfeltner/lattice/pkg/graph"
)

const (
	defaultDatabase   = "lattice"
	defaultCollection = "snapshots"
)

// MongoConfig configures a MongoDB-backed archive.
type MongoConfig struct {
	// URI is a MongoDB connection string, e.g. mongodb://localhost:27017.
	URI string `toml:"uri"`

	// Database name. Empty means "lattice".
	Database string `toml:"database"`

	// Collection name. Empty means "snapshots".
	Collection string `toml:"collection"`
}

// MongoStore archives snapshots in a MongoDB collection, one document
// per entry. The snapshot itself is stored as its canonical JSON bytes,
// which keeps the node attribute union intact across the round trip.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoEntry struct {
	ID         string    `bson:"_id"`
	ReceivedAt time.Time `bson:"received_at"`
	Snapshot   []byte    `bson:"snapshot"`
}

func (e mongoEntry) decode() (Entry, error) {
	snap, err := graph.UnmarshalSnapshot(e.Snapshot)
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: e.ID, ReceivedAt: e.ReceivedAt, Snapshot: snap}, nil
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping before returning.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Put implements Store.
func (m *MongoStore) Put(ctx context.Context, s graph.Snapshot) (string, error) {
	data, err := graph.MarshalSnapshot(s)
	if err != nil {
		return "", err
	}
	entry := mongoEntry{ID: uuid.NewString(), ReceivedAt: time.Now().UTC(), Snapshot: data}
	if _, err := m.coll.InsertOne(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Get implements Store.
func (m *MongoStore) Get(ctx context.Context, id string) (Entry, error) {
	var entry mongoEntry
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return entry.decode()
}

// List implements Store.
func (m *MongoStore) List(ctx context.Context, limit int) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var raw []mongoEntry
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		entry, err := e.decode()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close implements Store.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
