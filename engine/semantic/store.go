package semantic

import (
	"context"
	"errors"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// ErrDimensionMismatch marks a record vector whose length disagrees with
// the collection schema. Caught client-side, before the store sees it.
var ErrDimensionMismatch = errors.New("semantic: vector dimension mismatch")

// pointsAPI is the slice of pb.PointsClient the store consumes.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	CreateFieldIndex(ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the store consumes.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	dims        map[domain.Modality]int
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
// dims fixes the per-modality vector space sizes; it must match the
// encoder configuration in use.
func New(addr, collection string, dims map[domain.Modality]int) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w: %w", addr, domain.ErrStoreUnavailable, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dims:        dims,
	}, nil
}

// NewWithClients creates a VectorStore over pre-built clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, dims map[domain.Modality]int) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection, dims: dims}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// CollectionExists reports whether the collection is already provisioned.
func (v *VectorStore) CollectionExists(ctx context.Context) (bool, error) {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the collection with one named cosine vector
// space per modality if it doesn't exist yet.
func (v *VectorStore) EnsureCollection(ctx context.Context) error {
	exists, err := v.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	params := make(map[string]*pb.VectorParams, len(v.dims))
	for m, d := range v.dims {
		params[string(m)] = &pb.VectorParams{
			Size:     uint64(d),
			Distance: pb.Distance_Cosine,
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{Map: params},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// EnsurePayloadIndexes indexes the payload fields filtered retrieval
// depends on: keyword indexes for the categorical fields, an integer
// index for the capture timestamp.
func (v *VectorStore) EnsurePayloadIndexes(ctx context.Context) error {
	wait := true
	for _, field := range []string{"weather", "time_of_day", "road_type", "location_bucket"} {
		_, err := v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: v.collection,
			Wait:           &wait,
			FieldName:      field,
			FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("semantic: index %s: %w", field, err)
		}
	}
	_, err := v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: v.collection,
		Wait:           &wait,
		FieldName:      "ts",
		FieldType:      pb.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("semantic: index ts: %w", err)
	}
	return nil
}

// DeleteCollection drops the collection. The only supported way to delete
// scene records.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores scene records, last-write-wins by scene ID. Vector lengths
// are validated against the schema before anything is sent.
func (v *VectorStore) Upsert(ctx context.Context, records []SceneRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		for m, vec := range r.Vectors {
			want, ok := v.dims[m]
			if !ok {
				return fmt.Errorf("%w: scene %s has unknown modality %q", ErrDimensionMismatch, r.Attributes.SceneID, m)
			}
			if len(vec) != want {
				return fmt.Errorf("%w: scene %s %s vector has %d dims, want %d", ErrDimensionMismatch, r.Attributes.SceneID, m, len(vec), want)
			}
		}

		named := make(map[string]*pb.Vector, len(r.Vectors))
		for m, vec := range r.Vectors {
			named[string(m)] = &pb.Vector{Data: vec}
		}

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.Attributes.SceneID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vectors{
					Vectors: &pb.NamedVectors{Vectors: named},
				},
			},
			Payload: attrsToPayload(r.Attributes),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w: %w", len(records), domain.ErrStoreQuery, err)
	}
	return nil
}

// Search runs a filtered similarity query in one modality's named vector
// space, returning candidates in descending score order.
func (v *VectorStore) Search(ctx context.Context, m domain.Modality, vector []float32, criteria domain.FilterCriteria, limit int) ([]ScoredCandidate, error) {
	name := string(m)
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vector,
		VectorName:     &name,
		Limit:          uint64(limit),
		Filter:         BuildFilter(criteria),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search %s: %w: %w", m, domain.ErrStoreQuery, err)
	}

	results := make([]ScoredCandidate, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		attrs := attrsFromPayload(r.GetPayload())
		results[i] = ScoredCandidate{
			SceneID:    attrs.SceneID,
			Score:      r.GetScore(),
			Attributes: attrs,
		}
	}
	return results, nil
}
