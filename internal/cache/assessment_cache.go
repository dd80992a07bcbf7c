package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelfi/risk-engine/internal/models"
	"github.com/sentinelfi/risk-engine/internal/observability"
)

// ErrNoAssessment is returned when no assessment has been published yet or
// the latest one has expired.
var ErrNoAssessment = errors.New("no assessment available")

const (
	latestKey     = "risk:assessment:latest"
	historyKey    = "risk:assessment:history"
	historyLength = 100
)

// AssessmentCache publishes the latest risk assessment for downstream
// consumers that poll instead of evaluating.
type AssessmentCache interface {
	// SetLatest stores the assessment as the current one, with a freshness TTL.
	SetLatest(ctx context.Context, assessment models.RiskAssessment, ttl time.Duration) error
	// GetLatest returns the current assessment, or ErrNoAssessment.
	GetLatest(ctx context.Context) (models.RiskAssessment, error)
	// History returns up to limit recent assessments, newest first.
	History(ctx context.Context, limit int) ([]models.RiskAssessment, error)
}

// RedisAssessmentCache stores assessments in Redis. The redis.Cmdable
// interface keeps it testable against miniredis.
type RedisAssessmentCache struct {
	client redis.Cmdable
}

// NewRedisAssessmentCache creates a Redis-backed assessment cache.
func NewRedisAssessmentCache(client redis.Cmdable) *RedisAssessmentCache {
	return &RedisAssessmentCache{client: client}
}

func (c *RedisAssessmentCache) SetLatest(ctx context.Context, assessment models.RiskAssessment, ttl time.Duration) error {
	ctx, span := observability.TraceCacheOperation(ctx, "set", latestKey)
	var err error
	defer func() { observability.FinishSpan(span, err) }()

	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	if err = c.client.Set(ctx, latestKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store latest assessment: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.LPush(ctx, historyKey, payload)
	pipe.LTrim(ctx, historyKey, 0, historyLength-1)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append assessment history: %w", err)
	}
	return nil
}

func (c *RedisAssessmentCache) GetLatest(ctx context.Context) (models.RiskAssessment, error) {
	ctx, span := observability.TraceCacheOperation(ctx, "get", latestKey)
	var err error
	defer func() { observability.FinishSpan(span, err) }()

	var assessment models.RiskAssessment
	payload, err := c.client.Get(ctx, latestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		err = ErrNoAssessment
		return assessment, err
	}
	if err != nil {
		err = fmt.Errorf("failed to read latest assessment: %w", err)
		return assessment, err
	}
	if err = json.Unmarshal(payload, &assessment); err != nil {
		err = fmt.Errorf("failed to unmarshal assessment: %w", err)
		return assessment, err
	}
	return assessment, nil
}

func (c *RedisAssessmentCache) History(ctx context.Context, limit int) ([]models.RiskAssessment, error) {
	if limit <= 0 || limit > historyLength {
		limit = historyLength
	}
	entries, err := c.client.LRange(ctx, historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read assessment history: %w", err)
	}
	assessments := make([]models.RiskAssessment, 0, len(entries))
	for _, entry := range entries {
		var a models.RiskAssessment
		if err := json.Unmarshal([]byte(entry), &a); err != nil {
			continue
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

// MemoryAssessmentCache is the in-process fallback used when Redis is
// unreachable at startup. Same contract, no persistence across restarts.
type MemoryAssessmentCache struct {
	mu        sync.RWMutex
	latest    *models.RiskAssessment
	expiresAt time.Time
	history   []models.RiskAssessment
}

// NewMemoryAssessmentCache creates an in-memory assessment cache.
func NewMemoryAssessmentCache() *MemoryAssessmentCache {
	return &MemoryAssessmentCache{}
}

func (c *MemoryAssessmentCache) SetLatest(_ context.Context, assessment models.RiskAssessment, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &assessment
	if ttl > 0 {
		c.expiresAt = time.Now().Add(ttl)
	} else {
		c.expiresAt = time.Time{}
	}
	c.history = append([]models.RiskAssessment{assessment}, c.history...)
	if len(c.history) > historyLength {
		c.history = c.history[:historyLength]
	}
	return nil
}

func (c *MemoryAssessmentCache) GetLatest(_ context.Context) (models.RiskAssessment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return models.RiskAssessment{}, ErrNoAssessment
	}
	if !c.expiresAt.IsZero() && time.Now().After(c.expiresAt) {
		return models.RiskAssessment{}, ErrNoAssessment
	}
	return *c.latest, nil
}

func (c *MemoryAssessmentCache) History(_ context.Context, limit int) ([]models.RiskAssessment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit <= 0 || limit > len(c.history) {
		limit = len(c.history)
	}
	out := make([]models.RiskAssessment, limit)
	copy(out, c.history[:limit])
	return out, nil
}
