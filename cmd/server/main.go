package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperpulse/internal/adapter/cohere"
	"paperpulse/internal/adapter/graph"
	"paperpulse/internal/adapter/httpapi"
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
	"paperpulse/internal/usecase/retrieval"
	"paperpulse/internal/worker"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	// 3. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Initialize Repositories
	paperRepo := repository.NewPaperRepository(dbPool)
	chunkRepo := repository.NewChunkRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	feedRepo := repository.NewFeedRepository(dbPool)
	chatRepo := repository.NewChatRepository(dbPool)

	// 5. Initialize Model and Catalog Clients
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
		store, err := graph.NewNeo4jStore(context.Background(),
			cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, "neo4j", log)
		if err != nil {
			log.Warn("graph store unavailable, continuing without it", "error", err)
		} else if store != nil {
			graphStore = store
			defer store.Close(context.Background())
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

	// 6. Initialize Usecases
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

	retrievalCfg := retrieval.Config{
		TitleMatchKeep:  cfg.Ask.TitleMatchKeep,
		ChunkCandidates: cfg.Ask.ChunkCandidates,
		ChunkKeep:       cfg.Ask.ChunkKeep,
		PaperCandidates: cfg.Ask.PaperCandidates,
		PaperKeep:       cfg.Ask.PaperKeep,
		RerankTimeout:   time.Duration(cfg.Ask.RetrievalTimeout) * time.Second,
	}
	ask := usecase.NewAskUsecase(feedRepo, paperRepo, chunkRepo, embedder,
		reranker, llm, graphStore, retrievalCfg,
		cfg.Ask.AnswerCacheSize, time.Duration(cfg.Ask.AnswerCacheTTL)*time.Minute, log)
	chats := usecase.NewChatUsecase(chatRepo, ask, llm, log)
	users := usecase.NewUserUsecase(userRepo, profiles, log)

	// 7. Initialize & Start Scheduler
	scheduler := worker.NewScheduler(pipeline,
		time.Duration(cfg.Pipeline.IntervalMinutes)*time.Minute, log)
	scheduler.Start()
	defer scheduler.Stop()

	// 8. Initialize Router
	e := httpapi.NewRouter(httpapi.Handlers{
		Users:    httpapi.NewUserHandler(users),
		Feed:     httpapi.NewFeedHandler(feedRepo),
		Papers:   httpapi.NewPaperHandler(paperRepo),
		Graph:    httpapi.NewGraphHandler(graphStore),
		Chats:    httpapi.NewChatHandler(chats, ask),
		Pipeline: httpapi.NewPipelineHandler(pipeline, log),
		Health:   httpapi.NewHealthHandler(dbPool),
	}, log)

	// 9. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("server_started", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
