package vectorstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

// MongoStore keeps chunks in an Atlas collection searched through a
// $vectorSearch index on the embedding field.
type MongoStore struct {
	client        *mongo.Client
	coll          *mongo.Collection
	indexName     string
	numCandidates int
}

type mongoHit struct {
	model.Chunk `bson:",inline"`
	Score       float64 `bson:"score"`
}

func OpenMongo(ctx context.Context, cfg config.MongoDBConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb failed: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb failed: %w", err)
	}

	return &MongoStore{
		client:        client,
		coll:          client.Database(cfg.Database).Collection(cfg.Collection),
		indexName:     cfg.IndexName,
		numCandidates: cfg.NumCandidates,
	}, nil
}

func (s *MongoStore) Upsert(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(chunks))
	for _, c := range chunks {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetReplacement(c).
			SetUpsert(true))
	}
	if _, err := s.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upsert chunks failed: %w", err)
	}
	return nil
}

func (s *MongoStore) Retrieve(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	candidates := s.numCandidates
	if candidates < k*10 {
		candidates = k * 10
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: s.indexName},
			{Key: "path", Value: "embedding"},
			{Key: "queryVector", Value: vec},
			{Key: "numCandidates", Value: candidates},
			{Key: "limit", Value: k},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "embedding", Value: 0},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cur.Close(ctx)

	var hits []Hit
	for cur.Next(ctx) {
		var h mongoHit
		if err := cur.Decode(&h); err != nil {
			return nil, fmt.Errorf("decode vector search hit failed: %w", err)
		}
		hits = append(hits, Hit{Chunk: h.Chunk, Score: h.Score})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector search failed: %w", err)
	}
	return hits, nil
}

func (s *MongoStore) Reset(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("reset mongodb collection failed: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
