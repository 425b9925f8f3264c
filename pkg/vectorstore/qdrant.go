package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Point is a vector with its payload, addressed by a numeric ID.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// Result is a single search hit.
type Result struct {
	ID      uint64
	Score   float32
	Payload map[string]any
}

// Qdrant is a REST client to one collection of a Qdrant instance.
type Qdrant struct {
	url        string
	apiKey     string
	collection string

	client *http.Client
}

type Option func(*Qdrant)

func WithAPIKey(key string) Option {
	return func(q *Qdrant) {
		q.apiKey = key
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(q *Qdrant) {
		q.client.Timeout = timeout
	}
}

func NewQdrant(baseURL, collection string, options ...Option) (*Qdrant, error) {
	u, err := url.Parse(baseURL)

	if err != nil {
		return nil, err
	}

	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("invalid qdrant URL")
	}

	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	q := &Qdrant{
		url:        fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		collection: collection,

		client: &http.Client{Timeout: 15 * time.Second},
	}

	for _, o := range options {
		o(q)
	}

	return q, nil
}

func (q *Qdrant) Collection() string {
	return q.collection
}

// Ensure creates the collection with cosine distance if it does not exist.
func (q *Qdrant) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension: %d", dimension)
	}

	status, _, err := q.do(ctx, http.MethodGet, q.collectionPath(), nil, nil)

	if err == nil && status == http.StatusOK {
		return nil
	}

	return q.create(ctx, dimension)
}

// Recreate drops and recreates the collection, discarding all points.
func (q *Qdrant) Recreate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension: %d", dimension)
	}

	if _, _, err := q.do(ctx, http.MethodDelete, q.collectionPath(), nil, nil); err != nil {
		return err
	}

	return q.create(ctx, dimension)
}

func (q *Qdrant) create(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}

	status, detail, err := q.do(ctx, http.MethodPut, q.collectionPath(), body, nil)

	if err != nil {
		return err
	}

	if status >= 300 {
		return statusError("create collection "+q.collection, status, detail)
	}

	return nil
}

// Upsert writes points and waits for them to be persisted.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]map[string]any, len(points))

	for i, p := range points {
		items[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}

	body := map[string]any{"points": items}

	status, detail, err := q.do(ctx, http.MethodPut, q.collectionPath()+"/points?wait=true", body, nil)

	if err != nil {
		return err
	}

	if status >= 300 {
		return statusError("upsert into "+q.collection, status, detail)
	}

	return nil
}

// Search returns the topK nearest points with their payloads.
func (q *Qdrant) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var response struct {
		Result []struct {
			ID      uint64         `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	status, detail, err := q.do(ctx, http.MethodPost, q.collectionPath()+"/points/search", body, &response)

	if err != nil {
		return nil, err
	}

	if status >= 300 {
		return nil, statusError("search "+q.collection, status, detail)
	}

	results := make([]Result, 0, len(response.Result))

	for _, r := range response.Result {
		results = append(results, Result{
			ID:      r.ID,
			Score:   r.Score,
			Payload: r.Payload,
		})
	}

	return results, nil
}

// Health checks that the instance is reachable.
func (q *Qdrant) Health(ctx context.Context) error {
	status, detail, err := q.do(ctx, http.MethodGet, "/healthz", nil, nil)

	if err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}

	if status >= 300 {
		return statusError("qdrant unhealthy", status, detail)
	}

	return nil
}

func (q *Qdrant) collectionPath() string {
	return "/collections/" + q.collection
}

// do performs a request and returns the status code plus, for non-2xx
// responses, a bounded prefix of the response body for error messages.
func (q *Qdrant) do(ctx context.Context, method, path string, body, out any) (int, string, error) {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)

		if err != nil {
			return 0, "", err
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)

	if err != nil {
		return 0, "", err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)

	if err != nil {
		return 0, "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, strings.TrimSpace(string(data)), nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, "", fmt.Errorf("decode response: %w", err)
		}
	}

	return resp.StatusCode, "", nil
}

func statusError(op string, status int, detail string) error {
	if detail == "" {
		return fmt.Errorf("%s: status %d", op, status)
	}

	return fmt.Errorf("%s: status %d: %s", op, status, detail)
}
