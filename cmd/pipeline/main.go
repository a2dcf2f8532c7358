package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"paperpulse/internal/adapter/cohere"
	"paperpulse/internal/adapter/graph"
	"paperpulse/internal/adapter/openai"
	"paperpulse/internal/adapter/repository"
	"paperpulse/internal/adapter/source"
	"paperpulse/internal/adapter/textextract"
	"paperpulse/internal/domain"
	"paperpulse/internal/infra"
	"paperpulse/internal/infra/config"
	"paperpulse/internal/infra/httpclient"
	"paperpulse/internal/infra/logger"
	"paperpulse/internal/usecase"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "PaperPulse batch pipeline control",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline run against the database",
	RunE:  runPipeline,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server's current pipeline status",
	RunE:  showStatus,
}

var refreshProfileCmd = &cobra.Command{
	Use:   "refresh-profile <user-id>",
	Short: "Regenerate a user's cached query profile",
	Args:  cobra.ExactArgs(1),
	RunE:  refreshProfile,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "server base URL (status command)")
	rootCmd.AddCommand(runCmd, statusCmd, refreshProfileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

type deps struct {
	pipeline usecase.PipelineUsecase
	profiles usecase.QueryProfileUsecase
	close    func()
}

func buildDeps(ctx context.Context, log *slog.Logger) (*deps, error) {
	cfg := config.Load()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	dbPool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	closers := []func(){dbPool.Close}

	paperRepo := repository.NewPaperRepository(dbPool)
	chunkRepo := repository.NewChunkRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	feedRepo := repository.NewFeedRepository(dbPool)

	fetchClient := httpclient.NewPooledClient(time.Duration(cfg.Sources.FetchTimeout) * time.Second)
	modelClient := httpclient.NewPooledClient(time.Duration(cfg.OpenAI.Timeout) * time.Second)
	rerankClient := httpclient.NewPooledClient(time.Duration(cfg.Cohere.Timeout) * time.Second)

	embedder := openai.NewEmbedder(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey,
		cfg.OpenAI.EmbeddingModel, cfg.OpenAI.Dimensions, modelClient, log)
	llm := openai.NewCompletionClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey,
		cfg.OpenAI.SummaryModel, cfg.OpenAI.CompletionModel, modelClient, log)
	reranker := cohere.NewReranker(cfg.Cohere.BaseURL, cfg.Cohere.APIKey,
		cfg.Cohere.Model, rerankClient, log)

	var graphStore domain.GraphStore
	if cfg.Neo4j.Enabled {
		store, err := graph.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.User,
			cfg.Neo4j.Password, "neo4j", log)
		if err != nil {
			log.Warn("graph store unavailable, continuing without it", "error", err)
		} else if store != nil {
			graphStore = store
			closers = append(closers, func() { _ = store.Close(context.Background()) })
		}
	}

	var citations domain.CitationFetcher
	if graphStore != nil {
		citations = source.NewSemanticScholarCitationFetcher(fetchClient, cfg.Sources.S2APIKey, log)
	}

	var extractor domain.FullTextExtractor
	if cfg.Sources.ExtractFullText {
		extractor = textextract.NewArxivHTMLExtractor(fetchClient, log)
	}

	providers := []domain.SourceProvider{
		source.NewArxivProvider(fetchClient, log),
		source.NewSemanticScholarProvider(fetchClient, cfg.Sources.S2APIKey, 3, log),
		source.NewPubMedProvider(fetchClient, cfg.Sources.NCBIAPIKey, 7, log),
		source.NewOpenAlexProvider(fetchClient, cfg.Sources.OpenAlexMailto, 7, log),
	}

	chunker := domain.NewChunker(domain.NewTokenCounter(), domain.ChunkerConfig{
		ChunkSizeTokens:    cfg.Pipeline.ChunkSizeTokens,
		ChunkOverlapTokens: cfg.Pipeline.ChunkOverlapTokens,
		MinChunkTokens:     cfg.Pipeline.MinChunkTokens,
	})

	profiles := usecase.NewQueryProfileUsecase(userRepo, llm, log)
	enricher := usecase.NewEnrichUsecase(paperRepo, chunkRepo, embedder, llm,
		extractor, chunker, graphStore, citations, cfg.Pipeline.EmbeddingBatchSize, log)
	ranker := usecase.NewRankUsecase(feedRepo, reranker, log)
	pipeline := usecase.NewPipelineUsecase(userRepo, providers, domain.NewDeduplicator(),
		profiles, enricher, ranker, cfg.Sources.PerSourceLimit, cfg.Pipeline.FeedSize, log)

	return &deps{
		pipeline: pipeline,
		profiles: profiles,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	log := logger.New()
	ctx := cmd.Context()

	d, err := buildDeps(ctx, log)
	if err != nil {
		return err
	}
	defer d.close()

	status, err := d.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func showStatus(cmd *cobra.Command, args []string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
		serverURL+"/v1/pipeline/status", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	var status usecase.PipelineStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}
	return printJSON(status)
}

func refreshProfile(cmd *cobra.Command, args []string) error {
	log := logger.New()
	ctx := cmd.Context()

	d, err := buildDeps(ctx, log)
	if err != nil {
		return err
	}
	defer d.close()

	profile, err := d.profiles.RefreshProfile(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(profile)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
