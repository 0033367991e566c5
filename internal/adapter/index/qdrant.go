package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
)

const defaultScrollPageSize = 256

// QdrantConfig holds the settings for the Qdrant-backed vector index.
type QdrantConfig struct {
	Endpoint   string // e.g. http://localhost:6333
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// QdrantIndex implements port.VectorIndex over the Qdrant REST API.
type QdrantIndex struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimension  int

	ensureMu sync.Mutex
	ensured  bool
}

// NewQdrantIndex creates a Qdrant vector index client. The backing collection
// is created lazily on first use, not here.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("qdrant endpoint is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("qdrant vector dimension is required")
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "cvs"
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &QdrantIndex{
		client:     client,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		collection: collection,
		dimension:  cfg.Dimension,
	}, nil
}

// Upsert writes a batch of points. Re-upserting an ID overwrites vector and
// payload; duplicates inside one batch are last-write-wins.
func (q *QdrantIndex) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	reqPoints := make([]qdrantPoint, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != q.dimension {
			return fmt.Errorf("vector dimension mismatch: want %d, got %d", q.dimension, len(p.Vector))
		}
		reqPoints = append(reqPoints, qdrantPoint{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				"text":        p.Payload.Text,
				"source":      p.Payload.Source,
				"source_id":   p.Payload.SourceID,
				"chunk_index": p.Payload.ChunkIndex,
			},
		})
	}

	var resp operationResponse
	if err := q.doRequest(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), upsertRequest{Points: reqPoints}, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: upsert: %s", port.ErrIndexUnavailable, resp.Error)
	}
	return nil
}

// Search runs a tag-filtered similarity search. The filter is applied by the
// server, never by truncating an unfiltered top-k on the client.
func (q *QdrantIndex) Search(ctx context.Context, queryVector []float32, topK int, sourceTag string) (*domain.RAGResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}

	req := searchRequest{
		Vector:      queryVector,
		Limit:       topK,
		WithPayload: true,
		Filter:      tagFilter(sourceTag),
	}

	var resp searchResponse
	if err := q.doRequest(ctx, http.MethodPost, q.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: search: %s", port.ErrIndexUnavailable, resp.Error)
	}

	result := &domain.RAGResult{}
	for _, item := range resp.Result {
		payload := decodePayload(item.Payload)
		if payload.Text == "" {
			continue
		}
		result.Contexts = append(result.Contexts, payload.Text)
		result.Sources = append(result.Sources, payload)
	}
	return result, nil
}

// DeleteByTag removes all points whose payload source_id matches the tag.
func (q *QdrantIndex) DeleteByTag(ctx context.Context, sourceTag string) error {
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	req := deleteRequest{Filter: tagFilter(sourceTag)}
	var resp operationResponse
	if err := q.doRequest(ctx, http.MethodPost, q.collectionPath("/points/delete?wait=true"), req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: delete: %s", port.ErrIndexUnavailable, resp.Error)
	}
	return nil
}

// ScrollByTag pages through every point stored for the tag.
func (q *QdrantIndex) ScrollByTag(ctx context.Context, sourceTag string) ([]domain.IndexPoint, error) {
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}

	var points []domain.IndexPoint
	var offset any

	for {
		req := scrollRequest{
			Filter:      tagFilter(sourceTag),
			Limit:       defaultScrollPageSize,
			WithPayload: true,
			WithVector:  true,
			Offset:      offset,
		}

		var resp scrollResponse
		if err := q.doRequest(ctx, http.MethodPost, q.collectionPath("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		if resp.Status != "ok" {
			return nil, fmt.Errorf("%w: scroll: %s", port.ErrIndexUnavailable, resp.Error)
		}

		for _, item := range resp.Result.Points {
			points = append(points, domain.IndexPoint{
				ID:      fmt.Sprint(item.ID),
				Vector:  item.Vector,
				Payload: decodePayload(item.Payload),
			})
		}

		if resp.Result.NextPageOffset == nil {
			return points, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// --- internal helpers ---

func (q *QdrantIndex) collectionPath(suffix string) string {
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(q.collection), suffix)
}

// ensureCollection checks that the collection exists and creates it (cosine
// metric) when missing. Only success is remembered: a transport failure or
// 5xx leaves the index un-ensured so the caller's next attempt retries from
// scratch.
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	q.ensureMu.Lock()
	defer q.ensureMu.Unlock()
	if q.ensured {
		return nil
	}

	var resp operationResponse
	err := q.doRequest(ctx, http.MethodGet, q.collectionPath(""), nil, &resp)
	if err == nil && resp.Status == "ok" {
		q.ensured = true
		return nil
	}

	// Only a 404 means the collection is missing; anything else is an outage
	// and must not trigger a create attempt.
	var statusErr *statusError
	if !errors.As(err, &statusErr) || statusErr.code != http.StatusNotFound {
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: check collection: %s", port.ErrIndexUnavailable, resp.Error)
	}

	createReq := createCollectionRequest{
		Vectors: vectorParams{Size: q.dimension, Distance: "Cosine"},
	}
	err = q.doRequest(ctx, http.MethodPut, q.collectionPath(""), createReq, &resp)
	if err != nil {
		// A concurrent client may have created the collection first.
		if errors.As(err, &statusErr) && statusErr.code == http.StatusConflict {
			q.ensured = true
			return nil
		}
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: create collection: %s", port.ErrIndexUnavailable, resp.Error)
	}

	q.ensured = true
	return nil
}

func (q *QdrantIndex) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var body *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Status struct {
				Error string `json:"error"`
			} `json:"status"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &statusError{code: resp.StatusCode, message: errBody.Status.Error}
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// statusError carries the HTTP status of a failed Qdrant call so the ensure
// path can tell a missing collection apart from an outage.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("vector index unavailable: qdrant returned %d: %s", e.code, e.message)
}

func (e *statusError) Unwrap() error { return port.ErrIndexUnavailable }

func tagFilter(sourceTag string) *qdrantFilter {
	if sourceTag == "" {
		return nil
	}
	return &qdrantFilter{
		Must: []fieldCondition{{
			Key:   "source_id",
			Match: fieldMatch{Value: sourceTag},
		}},
	}
}

func decodePayload(raw map[string]any) domain.ChunkPayload {
	p := domain.ChunkPayload{}
	if v, ok := raw["text"].(string); ok {
		p.Text = v
	}
	if v, ok := raw["source"].(string); ok {
		p.Source = v
	}
	if v, ok := raw["source_id"]; ok {
		p.SourceID = fmt.Sprint(v)
	}
	if v, ok := raw["chunk_index"].(float64); ok {
		p.ChunkIndex = int(v)
	}
	return p
}

// --- Qdrant REST payloads ---

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type createCollectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match fieldMatch `json:"match"`
}

type fieldMatch struct {
	Value any `json:"value"`
}

type qdrantFilter struct {
	Must []fieldCondition `json:"must,omitempty"`
}

type searchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type searchResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

type deleteRequest struct {
	Filter *qdrantFilter `json:"filter,omitempty"`
}

type scrollRequest struct {
	Filter      *qdrantFilter `json:"filter,omitempty"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	WithVector  bool          `json:"with_vector"`
	Offset      any           `json:"offset,omitempty"`
}

type scrollResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		Points []struct {
			ID      any            `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
		NextPageOffset any `json:"next_page_offset"`
	} `json:"result"`
}

type operationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
