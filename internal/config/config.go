// File: internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	Environment  string
	JWTSecretKey string
	DBPath       string

	// Completion provider.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	// DefaultModel serves ordinary turns; PersonaModel is the tier used
	// whenever persona instructions are installed on the assistant.
	DefaultModel       string
	PersonaModel       string
	EmbeddingModelName string

	// Judge fact-lookup index.
	PineconeAPIKey    string
	PineconeIndexHost string
	PineconeNamespace string
	RetrievalTopK     int

	// Tool collaborators.
	MailBridgeURL string
	MailAccessKey string
	SearchBaseURL string

	// Fixed pacing between judge calls in the batch flow.
	JudgeCallDelay time.Duration
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        env,
		JWTSecretKey:       getEnv("JWT_SECRET_KEY", ""),
		DBPath:             getEnv("DB_PATH", "omnichat.db"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		DefaultModel:       getEnv("DEFAULT_MODEL", "gpt-4o-mini"),
		PersonaModel:       getEnv("PERSONA_MODEL", "gpt-4o"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		PineconeAPIKey:     getEnv("PINECONE_API_KEY", ""),
		PineconeIndexHost:  getEnv("PINECONE_INDEX_HOST", ""),
		PineconeNamespace:  getEnv("PINECONE_NAMESPACE", "facts"),
		RetrievalTopK:      getEnvAsInt("RETRIEVAL_TOPK", 5),
		MailBridgeURL:      getEnv("MAIL_BRIDGE_URL", ""),
		MailAccessKey:      getEnv("MAIL_ACCESS_KEY", ""),
		SearchBaseURL:      getEnv("SEARCH_BASE_URL", "https://html.duckduckgo.com/html"),
		JudgeCallDelay:     time.Duration(getEnvAsInt("JUDGE_CALL_DELAY_MS", 1500)) * time.Millisecond,
	}

	if strings.ToLower(env) == "production" {
		missing := []string{}
		if cfg.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if cfg.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if cfg.PineconeAPIKey == "" {
			missing = append(missing, "PINECONE_API_KEY")
		}
		if cfg.PineconeIndexHost == "" {
			missing = append(missing, "PINECONE_INDEX_HOST")
		}
		if len(missing) > 0 {
			log.Fatalf("Missing required production environment variables: %v", missing)
		}
	}

	return cfg
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}
