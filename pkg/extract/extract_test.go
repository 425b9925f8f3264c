package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/claimkit/claimkit/pkg/llm"
	"github.com/claimkit/claimkit/pkg/splitter"
	"github.com/claimkit/claimkit/pkg/store"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// fakeLLM answers each completion request with the next canned response.
func fakeLLM(t *testing.T, responses []string) *llm.Client {
	t.Helper()

	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls >= len(responses) {
			t.Errorf("unexpected request %d", calls+1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		content := responses[calls]
		calls++

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))

	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/v1/"),
	)

	return llm.New(client, "gpt-4o-mini", 0.3, 500)
}

func TestRunSkipsUnparseableChunk(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "chunks.json")

	if err := os.WriteFile(path, []byte(`["chunk one", "chunk two"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := store.Open(filepath.Join(dir, "knowledge.db"))

	if err != nil {
		t.Fatalf("store.Open() = %v", err)
	}

	// The first chunk's response is garbage and must be skipped; the second
	// yields two claims.
	client := fakeLLM(t, []string{
		"I could not find any claims in this text.",
		`[{"claim_text": "The sky is blue."}, {"claim_text": "Grass is green."}]`,
	})

	e := New(client, s, splitter.New(500, 50))

	count, err := e.Run(context.Background(), path, "nature")

	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	claims, err := s.ClaimsByStatus("all")

	if err != nil {
		t.Fatalf("ClaimsByStatus() = %v", err)
	}

	if len(claims) != 2 {
		t.Fatalf("stored claims = %d, want 2", len(claims))
	}

	if claims[0].Text != "The sky is blue." || claims[0].LineID != "nature" || claims[0].SourceRef != "chunks.json" {
		t.Errorf("claims[0] = %+v", claims[0])
	}
}

func TestRunDefaultLine(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "notes.txt")

	if err := os.WriteFile(path, []byte("Some short text."), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := store.Open(filepath.Join(dir, "knowledge.db"))

	if err != nil {
		t.Fatalf("store.Open() = %v", err)
	}

	client := fakeLLM(t, []string{`[{"claim_text": "A claim."}]`})

	e := New(client, s, splitter.New(500, 50))

	if _, err := e.Run(context.Background(), path, ""); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	claims, _ := s.ClaimsByStatus("all")

	if len(claims) != 1 || claims[0].LineID != "default" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseClaims(t *testing.T) {
	response := `[
		{"claim_text": "The sky is blue due to Rayleigh scattering."},
		{"claim_text": "  "},
		{"claim_text": "Water boils at 100C at sea level."}
	]`

	claims, err := ParseClaims(response)

	if err != nil {
		t.Fatalf("ParseClaims() = %v", err)
	}

	if len(claims) != 2 {
		t.Fatalf("claims = %d, want 2 (blank filtered)", len(claims))
	}

	if claims[0] != "The sky is blue due to Rayleigh scattering." {
		t.Errorf("claims[0] = %q", claims[0])
	}
}

func TestParseClaimsFenced(t *testing.T) {
	response := "```json\n[{\"claim_text\": \"Plants photosynthesize.\"}]\n```"

	claims, err := ParseClaims(response)

	if err != nil {
		t.Fatalf("ParseClaims() = %v", err)
	}

	if len(claims) != 1 || claims[0] != "Plants photosynthesize." {
		t.Errorf("claims = %q", claims)
	}
}

func TestParseClaimsInvalid(t *testing.T) {
	if _, err := ParseClaims("I could not find any claims."); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestParseClaimsExtraKeys(t *testing.T) {
	// Models sometimes echo the example's claim_id; it is ignored.
	response := `[{"claim_id": "c1", "claim_text": "The earth orbits the sun."}]`

	claims, err := ParseClaims(response)

	if err != nil {
		t.Fatalf("ParseClaims() = %v", err)
	}

	if len(claims) != 1 || claims[0] != "The earth orbits the sun." {
		t.Errorf("claims = %q", claims)
	}
}
