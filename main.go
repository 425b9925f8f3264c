package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/claimkit/claimkit/pkg/cli"
	"github.com/claimkit/claimkit/pkg/config"
	"github.com/claimkit/claimkit/pkg/embeddings"
	"github.com/claimkit/claimkit/pkg/extract"
	"github.com/claimkit/claimkit/pkg/ingest"
	"github.com/claimkit/claimkit/pkg/llm"
	"github.com/claimkit/claimkit/pkg/markdown"
	"github.com/claimkit/claimkit/pkg/review"
	"github.com/claimkit/claimkit/pkg/server"
	"github.com/claimkit/claimkit/pkg/splitter"
	"github.com/claimkit/claimkit/pkg/store"
	"github.com/claimkit/claimkit/pkg/synthesize"
	"github.com/claimkit/claimkit/pkg/vectorstore"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var version string

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.LoadDefault()

	if err != nil {
		cli.Fatal(err)
	}

	app := initApp(&app{cfg: cfg, client: newOpenAIClient()})

	if err := app.Run(ctx, os.Args); err != nil {
		cli.Fatal(err)
	}
}

type app struct {
	cfg    *config.Config
	client openai.Client
}

func newOpenAIClient() openai.Client {
	apiKey := os.Getenv("OPENAI_API_KEY")

	if apiKey == "" {
		apiKey = "-"
	}

	baseURL := os.Getenv("OPENAI_BASE_URL")

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/"

		if apiKey == "-" {
			baseURL = "http://localhost:8080/v1/"
		}
	}

	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"),
	)
}

func (a *app) llm() *llm.Client {
	model := os.Getenv("OPENAI_MODEL")

	if model == "" {
		model = a.cfg.LLM.Model
	}

	return llm.New(a.client, model, a.cfg.LLM.Temperature, a.cfg.LLM.MaxTokens)
}

func (a *app) embedder() *embeddings.Client {
	model := os.Getenv("OPENAI_EMBEDDING_MODEL")

	if model == "" {
		model = a.cfg.Embedding.Model
	}

	return embeddings.New(a.client, model, a.cfg.Embedding.BatchSize)
}

func (a *app) splitter() *splitter.Splitter {
	return splitter.New(a.cfg.Splitter.ChunkSize, a.cfg.Splitter.ChunkOverlap)
}

func (a *app) store() (*store.Store, error) {
	return store.Open(a.cfg.StorePath)
}

func (a *app) qdrant(collection string) (*vectorstore.Qdrant, error) {
	url := os.Getenv("QDRANT_URL")

	if url == "" {
		return nil, fmt.Errorf("QDRANT_URL is not set")
	}

	options := []vectorstore.Option{
		vectorstore.WithTimeout(time.Duration(a.cfg.Qdrant.TimeoutSecs) * time.Second),
	}

	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		options = append(options, vectorstore.WithAPIKey(key))
	}

	return vectorstore.NewQdrant(url, collection, options...)
}

func initApp(a *app) *cli.Command {
	return &cli.Command{
		Usage: "claimkit - a claims knowledge base",

		Version: version,

		HideHelpCommand: true,

		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Read a document, chunk it and store the chunks",
				ArgsUsage: "<file>",

				Action: a.runIngest,
			},

			{
				Name:      "extract",
				Usage:     "Extract claims from a document or chunks file",
				ArgsUsage: "<file>",

				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "line",
						Usage: "Claim line (topic) to group claims under",
					},
				},

				Action: a.runExtract,
			},

			{
				Name:  "embed",
				Usage: "Embed stored claims (or a chunks file) into the vector index",

				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "chunks",
						Usage: "Chunks JSON file to embed instead of claims",
					},
				},

				Action: a.runEmbed,
			},

			{
				Name:      "search",
				Usage:     "Search the claims index",
				ArgsUsage: "<query>",

				Flags: []cli.Flag{
					topKFlag(),
				},

				Action: a.runSearch,
			},

			{
				Name:      "similar",
				Usage:     "Find similar chunks in the chunks index",
				ArgsUsage: "<query>",

				Flags: []cli.Flag{
					topKFlag(),
				},

				Action: a.runSimilar,
			},

			{
				Name:      "ask",
				Usage:     "Search claims and synthesize a cited answer",
				ArgsUsage: "<query>",

				Flags: []cli.Flag{
					topKFlag(),
					statusFlag(store.StatusPromoted),
				},

				Action: a.runAsk,
			},

			{
				Name:      "synthesize",
				Usage:     "Synthesize an answer from stored claims",
				ArgsUsage: "<query>",

				Flags: []cli.Flag{
					statusFlag(store.StatusPromoted),
				},

				Action: a.runSynthesize,
			},

			{
				Name:      "verdict",
				Usage:     "Record a verdict for a claim",
				ArgsUsage: "<claim-id> <true|false|unsure>",

				Action: a.runVerdict,
			},

			{
				Name:  "review",
				Usage: "Review unreviewed claims interactively",

				Action: a.runReview,
			},

			{
				Name:      "history",
				Usage:     "Show the verdict history for a claim line",
				ArgsUsage: "<line-id>",

				Action: a.runHistory,
			},

			{
				Name:  "serve",
				Usage: "Run the document upload server",

				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
				},

				Action: a.runServe,
			},
		},
	}
}

func topKFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "top-k",
		Usage: "Number of results to retrieve",
	}
}

func statusFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:  "status",
		Usage: "Claim filter (all, promoted, demoted, unreviewed, winners)",
		Value: value,
	}
}

// claimsByFilter resolves the --status flag. "winners" selects the claims
// currently believed for their line; everything else is a status.
func claimsByFilter(s *store.Store, status string) ([]store.Claim, error) {
	if status == "winners" {
		return s.Winners()
	}

	return s.ClaimsByStatus(status)
}

func (a *app) runIngest(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()

	if path == "" {
		return cli.ShowCommandHelp(cmd)
	}

	s, err := a.store()

	if err != nil {
		return err
	}

	ingester := ingest.New(a.llm(), s, a.splitter(), a.cfg.DataDir)

	result, err := ingester.Run(ctx, path)

	if err != nil {
		return err
	}

	cli.Infof("Chunked %q into %d chunks.", result.Title, len(result.Chunks))
	cli.Infof("Chunks saved to %s", result.ChunksPath)
	cli.Infof("Metadata saved to %s", result.MetadataPath)

	return nil
}

func (a *app) runExtract(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()

	if path == "" {
		return cli.ShowCommandHelp(cmd)
	}

	s, err := a.store()

	if err != nil {
		return err
	}

	extractor := extract.New(a.llm(), s, a.splitter())

	count, err := extractor.Run(ctx, path, cmd.String("line"))

	if err != nil {
		return err
	}

	cli.Infof("%d claims inserted into the store.", count)

	return nil
}

func (a *app) runEmbed(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("chunks"); path != "" {
		return a.embedChunks(ctx, path)
	}

	return a.embedClaims(ctx)
}

func (a *app) embedClaims(ctx context.Context) error {
	s, err := a.store()

	if err != nil {
		return err
	}

	claims, err := s.ClaimsByStatus("all")

	if err != nil {
		return err
	}

	if len(claims) == 0 {
		cli.Info("No claims found in the store.")
		return nil
	}

	texts := make([]string, len(claims))

	for i, claim := range claims {
		texts[i] = claim.Text
	}

	embedder := a.embedder()

	vectors, err := embedder.EmbedAll(ctx, texts)

	if err != nil {
		return err
	}

	index, err := a.qdrant(a.cfg.Qdrant.ClaimsCollection)

	if err != nil {
		return err
	}

	if err := index.Recreate(ctx, embedder.Dimension()); err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(claims))

	for i, claim := range claims {
		points[i] = vectorstore.Point{
			ID:     uint64(claim.ID),
			Vector: vectors[i],

			Payload: map[string]any{
				"claim_id":   claim.ID,
				"claim_text": claim.Text,
				"line_id":    claim.LineID,
				"source_ref": claim.SourceRef,
			},
		}
	}

	if err := index.Upsert(ctx, points); err != nil {
		return err
	}

	cli.Infof("Uploaded %d claims to %s.", len(points), index.Collection())

	return nil
}

func (a *app) embedChunks(ctx context.Context, path string) error {
	chunks, err := ingest.LoadChunks(path)

	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		cli.Info("No chunks in file.")
		return nil
	}

	embedder := a.embedder()

	vectors, err := embedder.EmbedAll(ctx, chunks)

	if err != nil {
		return err
	}

	index, err := a.qdrant(a.cfg.Qdrant.ChunksCollection)

	if err != nil {
		return err
	}

	if err := index.Recreate(ctx, embedder.Dimension()); err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(chunks))

	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:     uint64(i),
			Vector: vectors[i],

			Payload: map[string]any{
				"chunk_text": chunk,
				"source_ref": filepath.Base(path),
			},
		}
	}

	if err := index.Upsert(ctx, points); err != nil {
		return err
	}

	cli.Infof("Uploaded %d chunks to %s.", len(points), index.Collection())

	return nil
}

func (a *app) runSearch(ctx context.Context, cmd *cli.Command) error {
	return a.search(ctx, cmd, a.cfg.Qdrant.ClaimsCollection, "claim_text")
}

func (a *app) runSimilar(ctx context.Context, cmd *cli.Command) error {
	return a.search(ctx, cmd, a.cfg.Qdrant.ChunksCollection, "chunk_text")
}

func (a *app) search(ctx context.Context, cmd *cli.Command, collection, textKey string) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))

	if query == "" {
		return cli.ShowCommandHelp(cmd)
	}

	cli.Infof("Searching for %q...", query)

	results, err := a.query(ctx, query, collection, a.topK(cmd))

	if err != nil {
		return err
	}

	if len(results) == 0 {
		cli.Info("No results found.")
		return nil
	}

	for i, r := range results {
		text, _ := r.Payload[textKey].(string)

		fmt.Printf("\nResult %d (Score: %.4f):\n%s\n", i+1, r.Score, text)
	}

	return nil
}

func (a *app) query(ctx context.Context, query, collection string, topK int) ([]vectorstore.Result, error) {
	vector, err := a.embedder().Embed(ctx, query)

	if err != nil {
		return nil, err
	}

	index, err := a.qdrant(collection)

	if err != nil {
		return nil, err
	}

	return index.Search(ctx, vector, topK)
}

func (a *app) runAsk(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))

	if query == "" {
		return cli.ShowCommandHelp(cmd)
	}

	s, err := a.store()

	if err != nil {
		return err
	}

	results, err := a.query(ctx, query, a.cfg.Qdrant.ClaimsCollection, a.topK(cmd))

	if err != nil {
		return err
	}

	claims, err := claimsByFilter(s, cmd.String("status"))

	if err != nil {
		return err
	}

	filtered := synthesize.Select(results, claims)

	if len(filtered) == 0 {
		cli.Info("No claims found for the selected filters.")
		return nil
	}

	answer, err := synthesize.Text(ctx, a.llm(), query, filtered)

	if err != nil {
		return err
	}

	markdown.Render(os.Stdout, answer)

	fmt.Println("--- Claims Used ---")

	for _, claim := range filtered {
		fmt.Printf("- %s (Source: %s)\n", claim.Text, claim.SourceRef)
	}

	return nil
}

func (a *app) runSynthesize(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))

	if query == "" {
		return cli.ShowCommandHelp(cmd)
	}

	s, err := a.store()

	if err != nil {
		return err
	}

	claims, err := claimsByFilter(s, cmd.String("status"))

	if err != nil {
		return err
	}

	if len(claims) == 0 {
		cli.Info("No claims found for the selected filter.")
		return nil
	}

	if _, err := synthesize.Answer(ctx, a.llm(), query, claims, os.Stdout); err != nil {
		return err
	}

	fmt.Println()

	return nil
}

func (a *app) runVerdict(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return cli.ShowCommandHelp(cmd)
	}

	id, err := strconv.ParseUint(cmd.Args().Get(0), 10, 32)

	if err != nil {
		return fmt.Errorf("invalid claim id: %s", cmd.Args().Get(0))
	}

	verdict := cmd.Args().Get(1)

	s, err := a.store()

	if err != nil {
		return err
	}

	if err := review.Apply(s, uint(id), verdict); err != nil {
		return err
	}

	cli.Infof("Verdict %q logged for claim %d.", verdict, id)

	return nil
}

func (a *app) runReview(ctx context.Context, cmd *cli.Command) error {
	s, err := a.store()

	if err != nil {
		return err
	}

	return review.Run(ctx, s)
}

func (a *app) runHistory(ctx context.Context, cmd *cli.Command) error {
	lineID := cmd.Args().First()

	if lineID == "" {
		return cli.ShowCommandHelp(cmd)
	}

	s, err := a.store()

	if err != nil {
		return err
	}

	history, err := s.VerdictHistory(lineID)

	if err != nil {
		return err
	}

	if len(history) == 0 {
		cli.Info("No verdicts recorded for this line.")
		return nil
	}

	for _, entry := range history {
		fmt.Printf("%s  claim %d  %-7s %s\n",
			entry.CreatedAt.Format(time.DateTime), entry.ClaimID, entry.Verdict, entry.ClaimText)
	}

	return nil
}

func (a *app) runServe(ctx context.Context, cmd *cli.Command) error {
	s, err := a.store()

	if err != nil {
		return err
	}

	ingester := ingest.New(a.llm(), s, a.splitter(), a.cfg.DataDir)
	extractor := extract.New(a.llm(), s, a.splitter())

	process := func(ctx context.Context, path, topic string) error {
		result, err := ingester.Run(ctx, path)

		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		count, err := extractor.Run(ctx, result.ChunksPath, topic)

		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}

		cli.Infof("Processed %s: %d chunks, %d claims.", path, len(result.Chunks), count)

		return nil
	}

	srv := server.New(a.cfg.DataDir, process)

	return srv.ListenAndServe(ctx, cmd.String("addr"))
}

func (a *app) topK(cmd *cli.Command) int {
	if topK := int(cmd.Int("top-k")); topK > 0 {
		return topK
	}

	return a.cfg.TopK
}
