package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is read from the environment once at startup. A .env file in
// the working directory is honored (loaded in main before this runs).
type Config struct {
	Port         string
	GroqAPIKey   string
	GroqModel    string
	VectorDBPath string

	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MinScore     float64
	ModelTimeout time.Duration

	// "local" (default, deterministic hashing model) or "openai"
	EmbeddingsProvider string
	OpenAIAPIKey       string

	DedupeUploads bool
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:               envStr("PORT", "8080"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqModel:          envStr("GROQ_MODEL", "llama-3.1-8b-instant"),
		VectorDBPath:       envStr("VECTOR_DB_PATH", "vector_db/index.db"),
		ChunkSize:          envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       envInt("CHUNK_OVERLAP", 100),
		TopK:               envInt("TOP_K", 3),
		MinScore:           envFloat("MIN_SCORE", 0.15),
		ModelTimeout:       time.Duration(envInt("MODEL_TIMEOUT_SECONDS", 30)) * time.Second,
		EmbeddingsProvider: envStr("EMBEDDINGS_PROVIDER", "local"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		DedupeUploads:      envBool("DEDUPE_UPLOADS", false),
	}

	if cfg.GroqAPIKey == "" {
		return Config{}, fmt.Errorf("GROQ_API_KEY is not set")
	}
	if cfg.EmbeddingsProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("EMBEDDINGS_PROVIDER=openai requires OPENAI_API_KEY")
	}
	return cfg, nil
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
