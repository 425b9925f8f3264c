package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claimkit/claimkit/pkg/cli"
	"github.com/claimkit/claimkit/pkg/document"
	"github.com/claimkit/claimkit/pkg/llm"
	"github.com/claimkit/claimkit/pkg/splitter"
	"github.com/claimkit/claimkit/pkg/store"

	"gorm.io/datatypes"
)

// Result describes one ingested document.
type Result struct {
	Title       string
	Description string
	Chunks      []string

	ChunksPath   string
	MetadataPath string
}

type Ingester struct {
	llm      *llm.Client
	store    *store.Store
	splitter *splitter.Splitter

	dataDir string
}

func New(llmClient *llm.Client, s *store.Store, sp *splitter.Splitter, dataDir string) *Ingester {
	return &Ingester{
		llm:      llmClient,
		store:    s,
		splitter: sp,

		dataDir: dataDir,
	}
}

// Run reads a document, names it, splits it into chunks and persists the
// chunks plus metadata under the data directory.
func (i *Ingester) Run(ctx context.Context, path string) (*Result, error) {
	text, err := document.Read(path)

	if err != nil {
		return nil, err
	}

	title := document.Stem(path)
	description := ""

	metadata, err := i.llm.TitleAndDescription(ctx, text)

	if err != nil {
		cli.Warnf("title generation failed, using file name: %v", err)
	} else if metadata.Title != "" {
		title = metadata.Title
		description = metadata.Description
	}

	safe := document.Sanitize(title)

	chunks := i.splitter.Split(text)

	if len(chunks) == 0 {
		return nil, fmt.Errorf("document is empty: %s", path)
	}

	if err := os.MkdirAll(i.dataDir, 0o755); err != nil {
		return nil, err
	}

	result := &Result{
		Title:       title,
		Description: description,
		Chunks:      chunks,

		ChunksPath:   filepath.Join(i.dataDir, safe+"_chunks.json"),
		MetadataPath: filepath.Join(i.dataDir, safe+"_metadata.json"),
	}

	if err := writeJSON(result.ChunksPath, chunks); err != nil {
		return nil, err
	}

	meta := llm.Metadata{Title: title, Description: description}

	if err := writeJSON(result.MetadataPath, meta); err != nil {
		return nil, err
	}

	checksum := sha256.Sum256([]byte(text))

	doc := &store.Document{
		Name:        filepath.Base(path),
		Title:       title,
		Description: description,
		Checksum:    hex.EncodeToString(checksum[:]),
		ChunkCount:  len(chunks),

		Metadata: datatypes.JSONMap{
			"chunks_path": result.ChunksPath,
		},
	}

	if err := i.store.SaveDocument(doc); err != nil {
		return nil, err
	}

	return result, nil
}

// LoadChunks reads a chunks JSON file written by Run.
func LoadChunks(path string) ([]string, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	var chunks []string

	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks file %s: %w", path, err)
	}

	return chunks, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
