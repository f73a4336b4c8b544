package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore"
	"github.com/Will-Langhart/shieldai-sub001/pkg/vectorstore/sqlite"
)

func setupIndex(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath:     filepath.Join(t.TempDir(), "index.db"),
		Dimensions: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func upsertRecord(t *testing.T, client *sqlite.Client, id, userID, conversationID string, vector []float64) {
	t.Helper()
	require.NoError(t, client.Upsert(context.Background(), &vectorstore.Record{
		ID:     id,
		Vector: vector,
		Metadata: map[string]interface{}{
			"user_id":         userID,
			"conversation_id": conversationID,
			"content":         "content of " + id,
			"role":            "user",
		},
	}))
}

func TestUpsertAndQuery(t *testing.T) {
	client := setupIndex(t)
	ctx := context.Background()

	upsertRecord(t, client, "r1", "alice", "conv1", []float64{1, 0, 0, 0})
	upsertRecord(t, client, "r2", "alice", "conv1", []float64{0, 1, 0, 0})

	matches, err := client.Query(ctx, []float64{1, 0, 0, 0}, &vectorstore.QueryOptions{
		TopK:            10,
		Filter:          vectorstore.Filter{"user_id": "alice"},
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "r1", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "content of r1", matches[0].Metadata["content"])
	assert.InDelta(t, 0.0, matches[1].Score, 1e-9)
}

func TestUpsertOverwrites(t *testing.T) {
	client := setupIndex(t)
	ctx := context.Background()

	upsertRecord(t, client, "r1", "alice", "conv1", []float64{1, 0, 0, 0})
	upsertRecord(t, client, "r1", "alice", "conv1", []float64{0, 0, 0, 1})

	stats, err := client.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)

	matches, err := client.Query(ctx, []float64{0, 0, 0, 1}, &vectorstore.QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestQueryTopK(t *testing.T) {
	client := setupIndex(t)

	for i := 0; i < 5; i++ {
		upsertRecord(t, client, fmt.Sprintf("r%d", i), "alice", "conv1", []float64{1, 0, 0, 0})
	}

	matches, err := client.Query(context.Background(), []float64{1, 0, 0, 0}, &vectorstore.QueryOptions{
		TopK: 3,
	})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestQueryFilterIsolation(t *testing.T) {
	client := setupIndex(t)
	ctx := context.Background()

	upsertRecord(t, client, "alice-rec", "alice", "conv1", []float64{1, 0, 0, 0})
	upsertRecord(t, client, "bob-rec", "bob", "conv2", []float64{1, 0, 0, 0})

	matches, err := client.Query(ctx, []float64{1, 0, 0, 0}, &vectorstore.QueryOptions{
		TopK:   10,
		Filter: vectorstore.Filter{"user_id": "alice"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alice-rec", matches[0].ID)
}

func TestQueryResidualMetadataFilter(t *testing.T) {
	client := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, client.Upsert(ctx, &vectorstore.Record{
		ID:     "q1",
		Vector: []float64{1, 0, 0, 0},
		Metadata: map[string]interface{}{
			"user_id":           "alice",
			"conversation_flow": "question",
		},
	}))
	require.NoError(t, client.Upsert(ctx, &vectorstore.Record{
		ID:     "a1",
		Vector: []float64{1, 0, 0, 0},
		Metadata: map[string]interface{}{
			"user_id":           "alice",
			"conversation_flow": "answer",
		},
	}))

	matches, err := client.Query(ctx, []float64{1, 0, 0, 0}, &vectorstore.QueryOptions{
		TopK:   10,
		Filter: vectorstore.Filter{"user_id": "alice", "conversation_flow": "question"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "q1", matches[0].ID)
}

func TestDeleteByFilter(t *testing.T) {
	client := setupIndex(t)
	ctx := context.Background()

	upsertRecord(t, client, "a0", "alice", "conv1", []float64{1, 0, 0, 0})
	upsertRecord(t, client, "a1", "alice", "conv2", []float64{0, 1, 0, 0})
	upsertRecord(t, client, "b0", "bob", "conv3", []float64{0, 0, 1, 0})

	require.NoError(t, client.DeleteByFilter(ctx, vectorstore.Filter{
		"user_id":         "alice",
		"conversation_id": "conv1",
	}))

	stats, err := client.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCount)

	require.NoError(t, client.DeleteByFilter(ctx, vectorstore.Filter{"user_id": "alice"}))

	stats, err = client.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)
}

func TestDescribeStats(t *testing.T) {
	client := setupIndex(t)

	stats, err := client.DescribeStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCount)
	assert.Equal(t, 4, stats.Dimension)
}
