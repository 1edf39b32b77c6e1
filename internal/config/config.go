package config

import (
	"os"
	"strconv"
)

type Config struct {
	MessagesCSVPath     string
	SessionsCSVPath     string
	ReportOutputDir     string
	Mode                string
	PolicyID            string
	RelevanceThreshold  float64
	MaxChunkTokens      int
	FilterEnabled       bool
	ExternalSourcesPath string
	CitationFallbackURL string
	CitationsRequired   bool
	ReferencesDir       string
	ScoringConfigPath   string
	OpenAIAPIKey        string
	OpenAIModel         string
	LLMWorkers          int
	SessionLimit        int
	SessionSample       bool
	HTTPAddr            string
	DatabaseURL         string
	NatsURL             string
	LogLevel            string
}

func Load() Config {
	return Config{
		MessagesCSVPath:     envStr("MESSAGES_CSV_PATH", ""),
		SessionsCSVPath:     envStr("SESSIONS_CSV_PATH", ""),
		ReportOutputDir:     envStr("REPORT_OUTPUT_DIR", "reports"),
		Mode:                envStr("ANALYSIS_MODE", "chunk"),
		PolicyID:            envStr("POLICY_ID", ""),
		RelevanceThreshold:  envFloat("RELEVANCE_THRESHOLD", 0.3),
		MaxChunkTokens:      envInt("MAX_CHUNK_TOKENS", 8000),
		FilterEnabled:       envBool("FILTER_ENABLED", true),
		ExternalSourcesPath: envStr("EXTERNAL_SOURCES_PATH", ""),
		CitationFallbackURL: envStr("CITATION_FALLBACK_URL", "https://www.moj.go.jp/"),
		CitationsRequired:   envBool("CITATIONS_REQUIRED", false),
		ReferencesDir:       envStr("REFERENCES_DIR", ""),
		ScoringConfigPath:   envStr("SCORING_CONFIG_PATH", ""),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		OpenAIModel:         envStr("OPENAI_MODEL", "gpt-4.1"),
		LLMWorkers:          envInt("LLM_WORKERS", 2),
		SessionLimit:        envInt("SESSION_LIMIT", 0),
		SessionSample:       envBool("SESSION_SAMPLE", false),
		HTTPAddr:            envStr("HTTP_ADDR", ":8080"),
		DatabaseURL:         envStr("DATABASE_URL", ""),
		NatsURL:             envStr("NATS_URL", ""),
		LogLevel:            envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
