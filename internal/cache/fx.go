package cache

import (
	"context"
	"strings"

	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/observability/metrics"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(NewEstimateStore),
	fx.Provide(NewCostCache),
	fx.Invoke(RegisterWarmup),
)

// RegisterWarmup preloads the configured ZIPs and categories when the app starts.
// A failed warm-up is logged and never blocks startup; the tiers fill on demand instead.
func RegisterWarmup(lc fx.Lifecycle, c *CostCache, cfg config.Config) {
	zips, categories := cfg.Cache.WarmZips, cfg.Cache.WarmCategories
	if len(zips) == 0 && len(categories) == 0 {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.Warm(ctx, zips, categories); err != nil {
				c.log.Warn("cost cache warm-up failed", zap.Error(err))
			}
			return nil
		},
	})
}

type EstimateStoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Clock     clock.Clock
	Log       *zap.Logger
	Metrics   *metrics.CacheMetrics `optional:"true"`
}

// NewEstimateStore shares estimates through Redis when REDIS_ADDR is set and keeps them in memory otherwise.
func NewEstimateStore(p EstimateStoreParams) EstimateStore {
	cfg := p.Config.Cache
	log := p.Log.Named("cache.estimate")

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return NewMemoryEstimateStore(p.Clock, cfg.Estimate.MaxKeys, func() {
			p.Metrics.IncEviction(string(TierEstimates))
		})
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, estimate cache reads will miss", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("estimate cache backed by redis", zap.String("addr", addr))
	return NewRedisEstimateStore(client)
}
