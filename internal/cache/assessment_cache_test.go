package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelfi/risk-engine/internal/models"
)

func sampleAssessment(id string, score int) models.RiskAssessment {
	return models.RiskAssessment{
		ID:          id,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
		Consensus: models.ConsensusResult{
			ConsensusScore:  score,
			ConfidenceLevel: 85,
			Method:          models.MethodMultiAI,
		},
		AlertLevel: models.AlertLevelForScore(score),
	}
}

func newTestRedisCache(t *testing.T) (*RedisAssessmentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisAssessmentCache(client), mr
}

func TestRedisAssessmentCache_RoundTrip(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	stored := sampleAssessment("a-1", 62)
	require.NoError(t, c.SetLatest(ctx, stored, time.Minute))

	got, err := c.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, 62, got.Consensus.ConsensusScore)
	assert.Equal(t, models.AlertWarning, got.AlertLevel)
}

func TestRedisAssessmentCache_MissingKey(t *testing.T) {
	c, _ := newTestRedisCache(t)

	_, err := c.GetLatest(context.Background())
	assert.ErrorIs(t, err, ErrNoAssessment)
}

func TestRedisAssessmentCache_TTLExpiry(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetLatest(ctx, sampleAssessment("a-1", 30), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := c.GetLatest(ctx)
	assert.ErrorIs(t, err, ErrNoAssessment)
}

func TestRedisAssessmentCache_HistoryNewestFirst(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetLatest(ctx, sampleAssessment("a-1", 20), time.Minute))
	require.NoError(t, c.SetLatest(ctx, sampleAssessment("a-2", 40), time.Minute))
	require.NoError(t, c.SetLatest(ctx, sampleAssessment("a-3", 60), time.Minute))

	history, err := c.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a-3", history[0].ID)
	assert.Equal(t, "a-2", history[1].ID)
}

func TestMemoryAssessmentCache_RoundTrip(t *testing.T) {
	c := NewMemoryAssessmentCache()
	ctx := context.Background()

	_, err := c.GetLatest(ctx)
	assert.ErrorIs(t, err, ErrNoAssessment)

	require.NoError(t, c.SetLatest(ctx, sampleAssessment("m-1", 45), time.Minute))

	got, err := c.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m-1", got.ID)
}

func TestMemoryAssessmentCache_Expiry(t *testing.T) {
	c := NewMemoryAssessmentCache()
	ctx := context.Background()

	require.NoError(t, c.SetLatest(ctx, sampleAssessment("m-1", 45), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.GetLatest(ctx)
	assert.ErrorIs(t, err, ErrNoAssessment)
}

func TestMemoryAssessmentCache_History(t *testing.T) {
	c := NewMemoryAssessmentCache()
	ctx := context.Background()

	require.NoError(t, c.SetLatest(ctx, sampleAssessment("m-1", 20), time.Minute))
	require.NoError(t, c.SetLatest(ctx, sampleAssessment("m-2", 40), time.Minute))

	history, err := c.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m-2", history[0].ID)
}
