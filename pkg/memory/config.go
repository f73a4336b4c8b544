package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Will-Langhart/shieldai-sub001/pkg/embedding"
)

// Config contains the complete configuration for a memory Service.
//
// Example:
//
//	config := &memory.Config{
//	    Embedder: memory.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Dimensions: 1536,
//	    },
//	    VectorStore: memory.VectorStoreConfig{
//	        Provider: "chromem",
//	        Config: map[string]interface{}{
//	            "dimensions": 1024,
//	        },
//	    },
//	}
type Config struct {
	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder" yaml:"embedder"`

	// VectorStore contains vector index configuration.
	VectorStore VectorStoreConfig `json:"vector_store" yaml:"vector_store"`

	// Conversation contains conversation log configuration.
	Conversation ConversationConfig `json:"conversation" yaml:"conversation"`

	// Retrieval contains retrieval and context tuning (optional).
	Retrieval RetrievalConfig `json:"retrieval,omitempty" yaml:"retrieval,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, mock.
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the API base URL (optional).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Dimensions is the provider's native vector width (e.g., 1536).
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorStoreConfig contains configuration for the vector index.
//
// Supported providers: chromem, sqlite, postgres, mysql.
type VectorStoreConfig struct {
	// Provider is the vector index provider name.
	Provider string `json:"provider" yaml:"provider"`

	// Config contains provider-specific configuration.
	// Common keys: "dimensions", "table_name".
	// SQLite/chromem: "path". Postgres/MySQL: "host", "port", "user",
	// "password", "db_name" (Postgres also "ssl_mode").
	Config map[string]interface{} `json:"config" yaml:"config"`
}

// ConversationConfig contains configuration for the conversation log and
// its transcript cache.
type ConversationConfig struct {
	// DBPath is the SQLite path for the conversation log.
	DBPath string `json:"db_path" yaml:"db_path"`

	// CacheSize bounds the number of cached transcripts.
	CacheSize int64 `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`

	// CacheTTL bounds how long a cached transcript stays valid, as a
	// duration string such as "5m".
	CacheTTL string `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
}

// RetrievalConfig tunes retrieval and context composition defaults.
type RetrievalConfig struct {
	// TopK overrides the default retrieval cap.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`

	// MinScore overrides the default admission threshold.
	MinScore float64 `json:"min_score,omitempty" yaml:"min_score,omitempty"`

	// ContextTopK overrides the default context window size.
	ContextTopK int `json:"context_top_k,omitempty" yaml:"context_top_k,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function searches for a .env file (up to 5 directory levels up), loads
// it when found, and parses the environment into a Config.
//
// Supported variables:
//   - DATABASE_PROVIDER (chromem, sqlite, postgres, mysql)
//   - CHROMEM_PATH, CHROMEM_COLLECTION, CHROMEM_DIMENSIONS
//   - SQLITE_PATH, SQLITE_TABLE, SQLITE_DIMENSIONS
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_DIMENSIONS, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE,
//     MYSQL_TABLE, MYSQL_DIMENSIONS
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_DIMENSIONS
//   - CONVERSATION_DB_PATH, CONVERSATION_CACHE_SIZE, CONVERSATION_CACHE_TTL
//   - RETRIEVAL_TOP_K, RETRIEVAL_MIN_SCORE, CONTEXT_TOP_K
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "chromem")

	storeConfig := make(map[string]interface{})
	switch provider {
	case "chromem":
		dims, _ := strconv.Atoi(getEnvOrDefault("CHROMEM_DIMENSIONS", "1024"))
		storeConfig = map[string]interface{}{
			"path":       os.Getenv("CHROMEM_PATH"),
			"table_name": getEnvOrDefault("CHROMEM_COLLECTION", "memories"),
			"dimensions": dims,
		}
	case "sqlite":
		dims, _ := strconv.Atoi(getEnvOrDefault("SQLITE_DIMENSIONS", "1024"))
		storeConfig = map[string]interface{}{
			"path":       getEnvOrDefault("SQLITE_PATH", "./shieldai.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "memories"),
			"dimensions": dims,
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		dims, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_DIMENSIONS", "1024"))
		storeConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "shieldai"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "memories"),
			"dimensions": dims,
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		dims, _ := strconv.Atoi(getEnvOrDefault("MYSQL_DIMENSIONS", "1024"))
		storeConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "shieldai"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "memories"),
			"dimensions": dims,
		}
	}

	embeddingDims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMENSIONS", "1536"))

	cacheSize, _ := strconv.ParseInt(getEnvOrDefault("CONVERSATION_CACHE_SIZE", "1024"), 10, 64)
	cacheTTL := getEnvOrDefault("CONVERSATION_CACHE_TTL", "5m")

	topK, _ := strconv.Atoi(getEnvOrDefault("RETRIEVAL_TOP_K", "0"))
	minScore, _ := strconv.ParseFloat(getEnvOrDefault("RETRIEVAL_MIN_SCORE", "0"), 64)
	contextTopK, _ := strconv.Atoi(getEnvOrDefault("CONTEXT_TOP_K", "0"))

	return &Config{
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: embeddingDims,
		},
		VectorStore: VectorStoreConfig{
			Provider: provider,
			Config:   storeConfig,
		},
		Conversation: ConversationConfig{
			DBPath:    getEnvOrDefault("CONVERSATION_DB_PATH", "./shieldai.db"),
			CacheSize: cacheSize,
			CacheTTL:  cacheTTL,
		},
		Retrieval: RetrievalConfig{
			TopK:        topK,
			MinScore:    minScore,
			ContextTopK: contextTopK,
		},
	}, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromYAML", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromYAML", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Beyond checking that providers are set, Validate fails loudly when the
// embedder's native width cannot be adapted to the index width, so an
// undefined dimension pairing is caught at startup rather than per request.
func (c *Config) Validate() error {
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", fmt.Errorf("embedder provider: %w", ErrInvalidConfig))
	}
	if c.VectorStore.Provider == "" {
		return NewMemoryError("Validate", fmt.Errorf("vector store provider: %w", ErrInvalidConfig))
	}

	storeDims := c.IndexDimensions()
	if storeDims <= 0 {
		return NewMemoryError("Validate", fmt.Errorf("vector store dimensions: %w", ErrInvalidConfig))
	}
	if c.Embedder.Dimensions > 0 && c.Embedder.Dimensions < storeDims {
		return NewMemoryError("Validate", fmt.Errorf("cannot adapt %d -> %d: %w",
			c.Embedder.Dimensions, storeDims, embedding.ErrUnsupportedDimension))
	}

	return nil
}

// IndexDimensions returns the configured vector index width, or 0 when
// unset.
func (c *Config) IndexDimensions() int {
	switch v := c.VectorStore.Config["dimensions"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		dims, _ := strconv.Atoi(v)
		return dims
	}
	return 0
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for a .env or .env.example file in the current
// directory and up to 5 levels above it.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
