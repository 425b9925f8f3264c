package synthesize

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/claimkit/claimkit/pkg/llm"
	"github.com/claimkit/claimkit/pkg/store"
	"github.com/claimkit/claimkit/pkg/vectorstore"
)

// Select maps search hits back to claims, keeping the hit order. Hits whose
// claim is not in claims (wrong status, deleted) are dropped.
func Select(results []vectorstore.Result, claims []store.Claim) []store.Claim {
	byID := make(map[uint]store.Claim, len(claims))

	for _, claim := range claims {
		byID[claim.ID] = claim
	}

	var selected []store.Claim

	for _, r := range results {
		if claim, ok := byID[uint(r.ID)]; ok {
			selected = append(selected, claim)
		}
	}

	return selected
}

// Prompt builds the synthesis instruction: answer the question using only
// the given claims, citing each claim's source.
func Prompt(query string, claims []store.Claim) string {
	var list strings.Builder

	for _, claim := range claims {
		fmt.Fprintf(&list, "- %q (Source: %s)\n", claim.Text, claim.SourceRef)
	}

	return fmt.Sprintf(
		"You are a synthesis engine. Given the following user question and a list of claims (with sources), "+
			"write a concise, well-reasoned answer that only uses these claims. Cite each claim's source in your answer.\n\n"+
			"Question: %s\n\nClaims:\n%s\nAnswer:",
		query, list.String(),
	)
}

// Answer streams a synthesized answer to w and returns the full text.
func Answer(ctx context.Context, client *llm.Client, query string, claims []store.Claim, w io.Writer) (string, error) {
	if len(claims) == 0 {
		return "", fmt.Errorf("no claims to synthesize from")
	}

	return client.Stream(ctx, Prompt(query, claims), w)
}

// Text returns a synthesized answer without streaming.
func Text(ctx context.Context, client *llm.Client, query string, claims []store.Claim) (string, error) {
	if len(claims) == 0 {
		return "", fmt.Errorf("no claims to synthesize from")
	}

	return client.Complete(ctx, Prompt(query, claims))
}
