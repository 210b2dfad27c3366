package cache_test

import (
	"context"
	"testing"
	"time"

	"machine-guard/internal/cache"
	"machine-guard/internal/config"
	"machine-guard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCacheConfig() *config.GuardConfig {
	cfg := &config.GuardConfig{}
	cfg.Cache.StatusKeyPrefix = "machine-guard:device:"
	cfg.Cache.StatusSuffix = ":status"
	cfg.Cache.StatusTTL = 30
	cfg.Cache.AlertStream = "machine-guard:alerts"
	return cfg
}

func newTestCache(t *testing.T) (*cache.StatusCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return cache.NewStatusCache(client, testCacheConfig(), zap.NewNop()), mr
}

func testPayload() *models.StatusPayload {
	return &models.StatusPayload{
		DeviceID:     "machine-01",
		Health:       72.5,
		Risk:         models.RiskWarning,
		PrimaryIssue: "GAS (Deviation: 2.30x)",
		Sensors: map[string]models.SensorReport{
			"gas": {Value: 180.5, Deviation: 2.3},
		},
		Timestamp: 1700000000,
	}
}

func TestStatusCache_SetAndGetStatus(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetStatus(ctx, testPayload()))

	got, err := c.GetStatus(ctx, "machine-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "machine-01", got.DeviceID)
	require.Equal(t, 72.5, got.Health)
	require.Equal(t, models.RiskWarning, got.Risk)
	require.Equal(t, 2.3, got.Sensors["gas"].Deviation)

	// stale entries expire on their own
	ttl := mr.TTL("machine-guard:device:machine-01:status")
	require.Equal(t, 30*time.Second, ttl)
}

func TestStatusCache_GetStatusMissingIsNotError(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.GetStatus(context.Background(), "machine-99")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStatusCache_SetStatusOverwrites(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	first := testPayload()
	require.NoError(t, c.SetStatus(ctx, first))

	second := testPayload()
	second.Health = 45.0
	second.Risk = models.RiskCritical
	require.NoError(t, c.SetStatus(ctx, second))

	got, err := c.GetStatus(ctx, "machine-01")
	require.NoError(t, err)
	require.Equal(t, 45.0, got.Health)
	require.Equal(t, models.RiskCritical, got.Risk)
}

func TestStatusCache_PublishAlert(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	id, err := c.PublishAlert(ctx, testPayload())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stream, err := mr.Stream("machine-guard:alerts")
	require.NoError(t, err)
	require.Len(t, stream, 1)

	values := stream[0].Values
	require.Contains(t, values, "device_id")
	require.Contains(t, values, "risk")
	require.Contains(t, values, "data")
}
