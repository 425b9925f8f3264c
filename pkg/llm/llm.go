package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
)

// Client is the single gateway to the chat model. Low temperature and a
// bounded output length keep responses structured enough for JSON parsing.
type Client struct {
	client openai.Client

	model       string
	temperature float64
	maxTokens   int64
}

func New(client openai.Client, model string, temperature float64, maxTokens int64) *Client {
	return &Client{
		client: client,

		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (c *Client) params(prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: c.model,

		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},

		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}
}

// Complete sends a single prompt and returns the model's text response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.params(prompt))

	if err != nil {
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

// Stream sends a prompt and writes the response to w as it arrives,
// returning the accumulated text.
func (c *Client) Stream(ctx context.Context, prompt string, w io.Writer) (string, error) {
	acc := openai.ChatCompletionAccumulator{}
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(prompt))

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 {
			fmt.Fprint(w, chunk.Choices[0].Delta.Content)
		}
	}

	if err := stream.Err(); err != nil {
		return "", err
	}

	if len(acc.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return acc.Choices[0].Message.Content, nil
}

// CleanJSON strips markdown code fences and surrounding prose from a model
// response so it can be unmarshalled.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "```"); start >= 0 {
		s = s[start+3:]
		s = strings.TrimPrefix(s, "json")

		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}

		return strings.TrimSpace(s)
	}

	first := strings.IndexAny(s, "[{")

	if first < 0 {
		return s
	}

	last := strings.LastIndexAny(s, "]}")

	if last < first {
		return s
	}

	return s[first : last+1]
}
