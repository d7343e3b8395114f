package chunkstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore keeps chunk vectors in an external Qdrant collection.
// Selected by retrieval.backend=qdrant; useful when a batch is too large
// to hold in memory or chunks should survive process restarts.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string

	embedder    Embedder
	model       string
	maxDistance float64
}

// NewQdrantStore connects to Qdrant at the given gRPC address.
func NewQdrantStore(addr, collection string, embedder Embedder, model string, maxDistance float64) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("chunkstore: dial qdrant %s: %w", addr, err)
	}
	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embedder:    embedder,
		model:       model,
		maxDistance: maxDistance,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error { return s.conn.Close() }

// EnsureCollection creates the collection if it doesn't exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("chunkstore: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("chunkstore: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Index embeds the chunks and upserts them as points, with company and
// page metadata in the payload.
func (s *QdrantStore) Index(ctx context.Context, companyID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	var texts []string
	var missing []int
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			texts = append(texts, c.Text)
			missing = append(missing, i)
		}
	}
	if len(texts) > 0 {
		vecs, _, err := s.embedder.Embed(ctx, s.model, texts)
		if err != nil {
			return &EmbeddingError{CompanyID: companyID, Err: err}
		}
		for j, i := range missing {
			chunks[i].Embedding = vecs[j]
		}
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: c.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Embedding}},
			},
			Payload: map[string]*pb.Value{
				"company_id":  {Kind: &pb.Value_StringValue{StringValue: c.CompanyID}},
				"source_page": {Kind: &pb.Value_StringValue{StringValue: string(c.SourcePage)}},
				"text":        {Kind: &pb.Value_StringValue{StringValue: c.Text}},
				"token_count": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.TokenCount)}},
				"ordinal":     {Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}},
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("chunkstore: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query embeds the query text and searches within the company's points.
// The score threshold mirrors the distance ceiling: cosine score must be
// at least 1 - maxDistance.
func (s *QdrantStore) Query(ctx context.Context, companyID string, queryText string, k int) ([]Scored, error) {
	vecs, _, err := s.embedder.Embed(ctx, s.model, []string{queryText})
	if err != nil {
		return nil, &EmbeddingError{CompanyID: companyID, Err: err}
	}

	minScore := float32(1 - s.maxDistance)
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vecs[0],
		Limit:          uint64(k),
		ScoreThreshold: &minScore,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		Filter: &pb.Filter{
			Must: []*pb.Condition{fieldMatch("company_id", companyID)},
		},
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: search: %w", err)
	}

	results := make([]Scored, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		payload := r.GetPayload()
		results = append(results, Scored{
			Chunk: Chunk{
				ID:         r.GetId().GetUuid(),
				CompanyID:  payload["company_id"].GetStringValue(),
				SourcePage: SourcePage(payload["source_page"].GetStringValue()),
				Text:       payload["text"].GetStringValue(),
				TokenCount: int(payload["token_count"].GetIntegerValue()),
			},
			Distance: 1 - float64(r.GetScore()),
		})
	}
	return results, nil
}

// Purge removes all points of a company. Used when run data is purged
// or a company is re-ingested.
func (s *QdrantStore) Purge(ctx context.Context, companyID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch("company_id", companyID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("chunkstore: purge company %s: %w", companyID, err)
	}
	return nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
