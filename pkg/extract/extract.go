package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/claimkit/claimkit/pkg/cli"
	"github.com/claimkit/claimkit/pkg/document"
	"github.com/claimkit/claimkit/pkg/ingest"
	"github.com/claimkit/claimkit/pkg/llm"
	"github.com/claimkit/claimkit/pkg/splitter"
	"github.com/claimkit/claimkit/pkg/store"
)

const prompt = `You are a meticulous claims extractor. Your task is to read the following text and identify a list of distinct, self-contained claims. A claim is a single statement or assertion that can be debated or verified.

Please return your response as a JSON array of objects. Each object in the array must have a "claim_text" key. Do not include any other text or explanation in your response. The response must be a valid JSON array only.

Example of desired output:
[
  {"claim_text": "The sky is blue due to Rayleigh scattering."},
  {"claim_text": "Photosynthesis is the process used by plants to convert light energy into chemical energy."}
]

Here is the text to analyze:

%s`

type Extractor struct {
	llm      *llm.Client
	store    *store.Store
	splitter *splitter.Splitter
}

func New(llmClient *llm.Client, s *store.Store, sp *splitter.Splitter) *Extractor {
	return &Extractor{
		llm:      llmClient,
		store:    s,
		splitter: sp,
	}
}

// Run extracts claims from a document or a previously written chunks file
// and inserts them into the claim store. A chunk whose response cannot be
// parsed is skipped; the run continues. Returns the number of claims stored.
func (e *Extractor) Run(ctx context.Context, path, lineID string) (int, error) {
	var chunks []string

	if strings.EqualFold(filepath.Ext(path), ".json") {
		loaded, err := ingest.LoadChunks(path)

		if err != nil {
			return 0, err
		}

		chunks = loaded
	} else {
		text, err := document.Read(path)

		if err != nil {
			return 0, err
		}

		chunks = e.splitter.Split(text)
	}

	if lineID == "" {
		lineID = "default"
	}

	sourceRef := filepath.Base(path)

	count := 0

	for i, chunk := range chunks {
		cli.Infof("Processing chunk %d/%d...", i+1, len(chunks))

		response, err := e.llm.Complete(ctx, fmt.Sprintf(prompt, chunk))

		if err != nil {
			return count, err
		}

		claims, err := ParseClaims(response)

		if err != nil {
			cli.Warnf("skipping chunk %d: %v", i+1, err)
			continue
		}

		for _, text := range claims {
			if _, err := e.store.InsertClaim(lineID, text, sourceRef); err != nil {
				return count, err
			}

			count++
		}
	}

	return count, nil
}

// ParseClaims decodes the model's JSON array response into claim texts.
func ParseClaims(response string) ([]string, error) {
	var items []struct {
		ClaimText string `json:"claim_text"`
	}

	if err := json.Unmarshal([]byte(llm.CleanJSON(response)), &items); err != nil {
		return nil, fmt.Errorf("parse claims response: %w", err)
	}

	var claims []string

	for _, item := range items {
		if text := strings.TrimSpace(item.ClaimText); text != "" {
			claims = append(claims, text)
		}
	}

	return claims, nil
}
