package embeddings

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
)

// Client produces embedding vectors through the configured model.
// The vector dimension is discovered from the first response.
type Client struct {
	client openai.Client

	model     string
	batchSize int
	dimension int
}

func New(client openai.Client, model string, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = 32
	}

	return &Client{
		client: client,

		model:     model,
		batchSize: batchSize,
	}
}

// Dimension returns the vector dimension, or 0 before the first call.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedAll(ctx, []string{text})

	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// EmbedAll embeds texts in batches, preserving input order.
func (c *Client) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize

		if end > len(texts) {
			end = len(texts)
		}

		res, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: c.model,

			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts[start:end],
			},
		})

		if err != nil {
			return nil, err
		}

		if len(res.Data) != end-start {
			return nil, errors.New("embedding count does not match input")
		}

		for _, d := range res.Data {
			vector := make([]float32, len(d.Embedding))

			for i, v := range d.Embedding {
				vector[i] = float32(v)
			}

			if c.dimension == 0 {
				c.dimension = len(vector)
			}

			vectors = append(vectors, vector)
		}
	}

	if len(vectors) == 0 {
		return nil, errors.New("no embeddings returned")
	}

	return vectors, nil
}
