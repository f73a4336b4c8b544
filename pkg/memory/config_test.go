package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Will-Langhart/shieldai-sub001/pkg/embedding"
	"github.com/Will-Langhart/shieldai-sub001/pkg/memory"
)

func validConfig() *memory.Config {
	return &memory.Config{
		Embedder: memory.EmbedderConfig{
			Provider:   "mock",
			Dimensions: 1536,
		},
		VectorStore: memory.VectorStoreConfig{
			Provider: "chromem",
			Config:   map[string]interface{}{"dimensions": 1024},
		},
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfigValidateMissingProviders(t *testing.T) {
	config := validConfig()
	config.Embedder.Provider = ""
	assert.ErrorIs(t, config.Validate(), memory.ErrInvalidConfig)

	config = validConfig()
	config.VectorStore.Provider = ""
	assert.ErrorIs(t, config.Validate(), memory.ErrInvalidConfig)

	config = validConfig()
	config.VectorStore.Config = nil
	assert.ErrorIs(t, config.Validate(), memory.ErrInvalidConfig)
}

func TestConfigValidateRejectsExpansion(t *testing.T) {
	// A 512-wide embedder cannot fill a 1024-wide index; this must fail at
	// startup, not per request.
	config := validConfig()
	config.Embedder.Dimensions = 512

	err := config.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrUnsupportedDimension)
}

func TestConfigIndexDimensions(t *testing.T) {
	config := validConfig()

	config.VectorStore.Config["dimensions"] = 1024
	assert.Equal(t, 1024, config.IndexDimensions())

	// JSON decoding yields float64, YAML yields int.
	config.VectorStore.Config["dimensions"] = float64(768)
	assert.Equal(t, 768, config.IndexDimensions())

	config.VectorStore.Config["dimensions"] = "512"
	assert.Equal(t, 512, config.IndexDimensions())

	delete(config.VectorStore.Config, "dimensions")
	assert.Equal(t, 0, config.IndexDimensions())
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"embedder": {"provider": "openai", "api_key": "sk-test", "dimensions": 1536},
		"vector_store": {"provider": "sqlite", "config": {"path": "./m.db", "dimensions": 1024}},
		"conversation": {"db_path": "./c.db"}
	}`), 0644))

	config, err := memory.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", config.Embedder.Provider)
	assert.Equal(t, "sqlite", config.VectorStore.Provider)
	assert.Equal(t, 1024, config.IndexDimensions())
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := memory.LoadConfigFromJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  provider: mock
  dimensions: 1536
vector_store:
  provider: chromem
  config:
    dimensions: 1024
conversation:
  db_path: ./c.db
  cache_ttl: 5m
`), 0644))

	config, err := memory.LoadConfigFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", config.Embedder.Provider)
	assert.Equal(t, "chromem", config.VectorStore.Provider)
	assert.Equal(t, "5m", config.Conversation.CacheTTL)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("SQLITE_DIMENSIONS", "256")
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("EMBEDDING_DIMENSIONS", "512")
	t.Setenv("RETRIEVAL_TOP_K", "7")

	config, err := memory.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.VectorStore.Provider)
	assert.Equal(t, "/tmp/test.db", config.VectorStore.Config["path"])
	assert.Equal(t, 256, config.IndexDimensions())
	assert.Equal(t, "mock", config.Embedder.Provider)
	assert.Equal(t, 512, config.Embedder.Dimensions)
	assert.Equal(t, 7, config.Retrieval.TopK)
	assert.NoError(t, config.Validate())
}
