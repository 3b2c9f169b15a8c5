package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// Vendor completions endpoint shared by all personas
	CompletionsURL string
	RequestTimeout time.Duration
	// Persona table (YAML) and optional local token overrides (JSON)
	PersonasFile string
	SecretsFile  string
	// Max messages retained per persona transcript in memory
	HistoryLimit int
	// OpenAI-compatible provider (used by personas with provider: openai)
	OpenAIAPIKey string
	OpenAIModel  string
	// Optional Postgres transcript persistence
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:           getEnvDefault("PORT", "8080"),
		AllowedOrigin:  getEnvDefault("ALLOWED_ORIGIN", "*"),
		CompletionsURL: getEnvDefault("COMPLETIONS_URL", "https://api.pickaxe.co/v1/completions"),
		RequestTimeout: getEnvDurationDefault("REQUEST_TIMEOUT", 30*time.Second),
		PersonasFile:   getEnvDefault("PERSONAS_FILE", "./personas.yaml"),
		SecretsFile:    getEnvDefault("SECRETS_FILE", "data/persona_tokens.json"),
		HistoryLimit:   getEnvIntDefault("HISTORY_LIMIT", 40),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		DatabaseURL:    os.Getenv("DB_URL"),
	}
	if cfg.DatabaseURL == "" {
		log.Println("warning: DB_URL is not set; transcripts are kept in memory only")
	}
	return cfg
}

// PersonaTokenOverrides collects PERSONA_<id>_TOKEN env values so deployments
// can replace the tokens shipped in the persona file without editing it.
func PersonaTokenOverrides(ids []int) map[int]string {
	out := make(map[int]string)
	for _, id := range ids {
		if v := os.Getenv(fmt.Sprintf("PERSONA_%d_TOKEN", id)); v != "" {
			out[id] = v
		}
	}
	return out
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("warning: invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("warning: invalid %s=%q, using %s", key, v, def)
	}
	return def
}
