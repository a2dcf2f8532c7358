package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DB       DBConfig
	OpenAI   OpenAIConfig
	Cohere   CohereConfig
	Neo4j    Neo4jConfig
	Sources  SourcesConfig
	Pipeline PipelineConfig
	Ask      AskConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	CompletionModel string
	SummaryModel    string
	Dimensions      int
	Timeout         int
}

type CohereConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Enabled  bool
}

type SourcesConfig struct {
	PerSourceLimit  int
	S2APIKey        string
	NCBIAPIKey      string
	OpenAlexMailto  string
	FetchTimeout    int
	ExtractFullText bool
}

type PipelineConfig struct {
	EmbeddingBatchSize int
	FeedSize           int
	IntervalMinutes    int
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	MinChunkTokens     int
}

type AskConfig struct {
	ChunkCandidates  int
	ChunkKeep        int
	PaperCandidates  int
	PaperKeep        int
	TitleMatchKeep   int
	AnswerCacheSize  int
	AnswerCacheTTL   int
	RetrievalTimeout int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "paperpulse-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "paperpulse_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "paperpulse_password"),
			Name:     getEnv("DB_NAME", "paperpulse_db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-large"),
			CompletionModel: getEnv("COMPLETION_MODEL", "gpt-4.1"),
			SummaryModel:    getEnv("SUMMARY_MODEL", "gpt-4.1-mini"),
			Dimensions:      getEnvInt("EMBEDDING_DIMENSIONS", 1536),
			Timeout:         getEnvInt("OPENAI_TIMEOUT", 60),
		},
		Cohere: CohereConfig{
			APIKey:  getSecret("COHERE_API_KEY", "COHERE_API_KEY_FILE", ""),
			BaseURL: getEnv("COHERE_BASE_URL", "https://api.cohere.com"),
			Model:   getEnv("RERANK_MODEL", "rerank-v3.5"),
			Timeout: getEnvInt("RERANK_TIMEOUT", 30),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://paperpulse-graph:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getSecret("NEO4J_PASSWORD", "NEO4J_PASSWORD_FILE", ""),
			Enabled:  getEnvBool("NEO4J_ENABLED", false),
		},
		Sources: SourcesConfig{
			PerSourceLimit:  getEnvInt("PER_SOURCE_LIMIT", 30),
			S2APIKey:        getEnv("SEMANTIC_SCHOLAR_API_KEY", ""),
			NCBIAPIKey:      getEnv("NCBI_API_KEY", ""),
			OpenAlexMailto:  getEnv("OPENALEX_MAILTO", ""),
			FetchTimeout:    getEnvInt("SOURCE_FETCH_TIMEOUT", 60),
			ExtractFullText: getEnvBool("EXTRACT_FULL_TEXT", true),
		},
		Pipeline: PipelineConfig{
			EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 64),
			FeedSize:           getEnvInt("FEED_SIZE", 25),
			IntervalMinutes:    getEnvInt("PIPELINE_INTERVAL_MINUTES", 1440),
			ChunkSizeTokens:    getEnvInt("CHUNK_SIZE_TOKENS", 512),
			ChunkOverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 50),
			MinChunkTokens:     getEnvInt("MIN_CHUNK_TOKENS", 50),
		},
		Ask: AskConfig{
			ChunkCandidates:  getEnvInt("ASK_CHUNK_CANDIDATES", 40),
			ChunkKeep:        getEnvInt("ASK_CHUNK_KEEP", 20),
			PaperCandidates:  getEnvInt("ASK_PAPER_CANDIDATES", 50),
			PaperKeep:        getEnvInt("ASK_PAPER_KEEP", 25),
			TitleMatchKeep:   getEnvInt("ASK_TITLE_MATCH_KEEP", 3),
			AnswerCacheSize:  getEnvInt("ASK_ANSWER_CACHE_SIZE", 256),
			AnswerCacheTTL:   getEnvInt("ASK_ANSWER_CACHE_TTL_MINUTES", 15),
			RetrievalTimeout: getEnvInt("ASK_RETRIEVAL_TIMEOUT", 45),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads a secret from the environment, or from a file path named
// by fileEnvKey (docker/k8s secret mounts).
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
