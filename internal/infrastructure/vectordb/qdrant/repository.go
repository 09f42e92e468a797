// Package qdrant provides a VectorDB implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
)

// Repository implements the VectorDB and CollectionManager interfaces
// using Qdrant. One collection holds one fandom's elements; the point
// payload mirrors the fields the suggestion surface needs, so search
// results come back without a round trip to SQLite.
type Repository struct {
	client     pb.CollectionsClient
	points     pb.PointsClient
	collection string
	conn       *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		client:     pb.NewCollectionsClient(conn),
		points:     pb.NewPointsClient(conn),
		collection: cfg.Collection,
		conn:       conn,
	}, nil
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *Repository) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	_, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err == nil {
		return nil
	}

	_, err = r.client.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// DeleteCollection removes the collection and all its points.
func (r *Repository) DeleteCollection(ctx context.Context) error {
	_, err := r.client.Delete(ctx, &pb.DeleteCollection{
		CollectionName: r.collection,
	})
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return nil
}

// Save stores an element with its embedding.
func (r *Repository) Save(ctx context.Context, el entities.Element) error {
	return r.SaveBatch(ctx, []entities.Element{el})
}

// SaveBatch stores multiple elements.
func (r *Repository) SaveBatch(ctx context.Context, els []entities.Element) error {
	points := make([]*pb.PointStruct, 0, len(els))

	for _, el := range els {
		pointID := el.ID
		if pointID == "" {
			pointID = uuid.New().String()
		}

		point := &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{
					Uuid: pointID,
				},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{
						Data: el.Embedding,
					},
				},
			},
			Payload: map[string]*pb.Value{
				"kind":        {Kind: &pb.Value_StringValue{StringValue: string(el.Kind)}},
				"name":        {Kind: &pb.Value_StringValue{StringValue: el.Name}},
				"category":    {Kind: &pb.Value_StringValue{StringValue: el.Category}},
				"description": {Kind: &pb.Value_StringValue{StringValue: el.Description}},
				"fandom_id":   {Kind: &pb.Value_StringValue{StringValue: el.FandomID}},
				"created_at":  {Kind: &pb.Value_StringValue{StringValue: el.CreatedAt.Format("2006-01-02T15:04:05Z07:00")}},
				"updated_at":  {Kind: &pb.Value_StringValue{StringValue: el.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")}},
			},
		}
		points = append(points, point)
	}

	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	return nil
}

// FindByID retrieves an element by its ID.
func (r *Repository) FindByID(ctx context.Context, id string) (entities.Element, error) {
	resp, err := r.points.Get(ctx, &pb.GetPoints{
		CollectionName: r.collection,
		Ids: []*pb.PointId{
			{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return entities.Element{}, fmt.Errorf("getting point: %w", err)
	}

	if len(resp.Result) == 0 {
		return entities.Element{}, fmt.Errorf("element not found: %s", id)
	}

	return pointToElement(resp.Result[0]), nil
}

// ExistsByIDs checks which of the given IDs exist in the collection.
func (r *Repository) ExistsByIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	pointIDs := make([]*pb.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: id},
		})
	}

	resp, err := r.points.Get(ctx, &pb.GetPoints{
		CollectionName: r.collection,
		Ids:            pointIDs,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	exists := make(map[string]bool, len(ids))
	for _, id := range ids {
		exists[id] = false
	}
	for _, point := range resp.Result {
		if uuid := point.Id.GetUuid(); uuid != "" {
			exists[uuid] = true
		}
	}
	return exists, nil
}

// Search performs a similarity search and returns the closest elements.
func (r *Repository) Search(ctx context.Context, embedding []float32, limit int) ([]entities.Element, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	return scoredPointsToElements(resp.Result), nil
}

// SearchByKind performs a similarity search filtered by element kind.
func (r *Repository) SearchByKind(ctx context.Context, embedding []float32, kind entities.ElementKind, limit int) ([]entities.Element, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: "kind",
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{
									Keyword: string(kind),
								},
							},
						},
					},
				},
			},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points by kind: %w", err)
	}

	return scoredPointsToElements(resp.Result), nil
}

// Delete removes an element by its ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{
						{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting point: %w", err)
	}

	return nil
}

// List returns elements from the collection with pagination. It scrolls
// without vectors, which keeps exports of large collections cheap.
func (r *Repository) List(ctx context.Context, limit int, offset uint64) ([]entities.Element, error) {
	var offsetPtr *pb.PointId
	if offset > 0 {
		offsetPtr = &pb.PointId{
			PointIdOptions: &pb.PointId_Num{Num: offset},
		}
	}

	resp, err := r.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: r.collection,
		Limit:          pb.PtrOf(uint32(limit)),
		Offset:         offsetPtr,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling points: %w", err)
	}

	elements := make([]entities.Element, 0, len(resp.Result))
	for _, point := range resp.Result {
		elements = append(elements, pointToElement(point))
	}
	return elements, nil
}

// Count returns the total number of elements in the collection.
func (r *Repository) Count(ctx context.Context) (uint64, error) {
	resp, err := r.client.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("getting collection info: %w", err)
	}

	if resp.Result.PointsCount == nil {
		return 0, nil
	}

	return *resp.Result.PointsCount, nil
}

// pointToElement converts a Qdrant point to an Element entity.
func pointToElement(point *pb.RetrievedPoint) entities.Element {
	id := ""
	if uuid := point.Id.GetUuid(); uuid != "" {
		id = uuid
	}

	payload := point.Payload
	var embedding []float32
	if vec := point.Vectors.GetVector(); vec != nil {
		embedding = vec.Data
	}

	return entities.Element{
		ID:          id,
		Kind:        entities.ElementKind(getStringValue(payload, "kind")),
		Name:        getStringValue(payload, "name"),
		Category:    getStringValue(payload, "category"),
		Description: getStringValue(payload, "description"),
		FandomID:    getStringValue(payload, "fandom_id"),
		Embedding:   embedding,
	}
}

// scoredPointsToElements converts scored points to elements.
func scoredPointsToElements(points []*pb.ScoredPoint) []entities.Element {
	elements := make([]entities.Element, 0, len(points))

	for _, point := range points {
		id := ""
		if uuid := point.Id.GetUuid(); uuid != "" {
			id = uuid
		}

		payload := point.Payload
		var embedding []float32
		if vec := point.Vectors.GetVector(); vec != nil {
			embedding = vec.Data
		}

		elements = append(elements, entities.Element{
			ID:          id,
			Kind:        entities.ElementKind(getStringValue(payload, "kind")),
			Name:        getStringValue(payload, "name"),
			Category:    getStringValue(payload, "category"),
			Description: getStringValue(payload, "description"),
			FandomID:    getStringValue(payload, "fandom_id"),
			Embedding:   embedding,
		})
	}

	return elements
}

func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
