package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Metadata is the generated title and description of a document.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

const titlePromptLimit = 2000

// TitleAndDescription asks the model to name and summarize a document.
// Only the leading part of the text is sent to bound prompt size.
func (c *Client) TitleAndDescription(ctx context.Context, text string) (*Metadata, error) {
	runes := []rune(text)

	if len(runes) > titlePromptLimit {
		runes = runes[:titlePromptLimit]
	}

	prompt := fmt.Sprintf(
		"Given the following document text, generate a concise title suitable for organizing and categorizing the document, and a short description. "+
			"Return your response as a JSON object with 'title' and 'description' keys. Only output valid JSON.\n\nDocument:\n%s...",
		string(runes),
	)

	response, err := c.Complete(ctx, prompt)

	if err != nil {
		return nil, err
	}

	var metadata Metadata

	if err := json.Unmarshal([]byte(CleanJSON(response)), &metadata); err != nil {
		return nil, fmt.Errorf("parse title response: %w", err)
	}

	return &metadata, nil
}
