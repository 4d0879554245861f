package cache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	costingdomain "github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/observability/metrics"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Tier string

const (
	TierLocations    Tier = "locations"
	TierAssemblies   Tier = "assemblies"
	TierItemCosts    Tier = "item_costs"
	TierRetailPrices Tier = "retail_prices"
	TierEstimates    Tier = "estimates"
)

var tiers = []Tier{TierLocations, TierAssemblies, TierItemCosts, TierRetailPrices, TierEstimates}

type TierStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int   `json:"keys"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// CostCache fronts the reference store with independently configured TTL tiers.
// Loader errors are returned to the caller and never cached.
type CostCache struct {
	repo    referencedomain.Repository
	cfg     config.CacheConfig
	metrics *metrics.CacheMetrics
	log     *zap.Logger

	locations  *TTLCache[string, *referencedomain.LocationCostModifier]
	assemblies *TTLCache[string, []referencedomain.Assembly]
	components *TTLCache[string, []referencedomain.Component]
	itemCosts  *TTLCache[string, costingdomain.UnitCost]
	specs      *TTLCache[string, *referencedomain.MaterialSpecification]
	retail     *TTLCache[string, *referencedomain.RetailPrice]
	estimates  EstimateStore

	counters map[Tier]*counters
}

type CostCacheParams struct {
	fx.In

	Repo      referencedomain.Repository
	Config    config.Config
	Clock     clock.Clock
	Log       *zap.Logger
	Metrics   *metrics.CacheMetrics `optional:"true"`
	Estimates EstimateStore
}

func NewCostCache(p CostCacheParams) *CostCache {
	cfg := p.Config.Cache
	c := &CostCache{
		repo:      p.Repo,
		cfg:       cfg,
		metrics:   p.Metrics,
		log:       p.Log.Named("cache.cost"),
		estimates: p.Estimates,
		counters:  make(map[Tier]*counters, len(tiers)),
	}
	for _, tier := range tiers {
		c.counters[tier] = &counters{}
	}

	c.locations = NewTTLCache[string, *referencedomain.LocationCostModifier](p.Clock, cfg.Location.MaxKeys, c.evicted(TierLocations))
	c.assemblies = NewTTLCache[string, []referencedomain.Assembly](p.Clock, cfg.Assembly.MaxKeys, c.evicted(TierAssemblies))
	c.components = NewTTLCache[string, []referencedomain.Component](p.Clock, cfg.Assembly.MaxKeys, c.evicted(TierAssemblies))
	c.itemCosts = NewTTLCache[string, costingdomain.UnitCost](p.Clock, cfg.ItemCost.MaxKeys, c.evicted(TierItemCosts))
	c.specs = NewTTLCache[string, *referencedomain.MaterialSpecification](p.Clock, cfg.ItemCost.MaxKeys, c.evicted(TierItemCosts))
	c.retail = NewTTLCache[string, *referencedomain.RetailPrice](p.Clock, cfg.RetailPrice.MaxKeys, c.evicted(TierRetailPrices))
	if c.estimates == nil {
		c.estimates = NewMemoryEstimateStore(p.Clock, cfg.Estimate.MaxKeys, c.evicted(TierEstimates))
	}
	return c
}

// Location returns the stored modifier for a 5-digit ZIP, nil when no region matches.
func (c *CostCache) Location(ctx context.Context, zip5 string) (*referencedomain.LocationCostModifier, error) {
	return readThrough(c, TierLocations, c.locations, cacheKey(zip5), c.cfg.Location.TTL, func() (*referencedomain.LocationCostModifier, error) {
		return c.repo.GetLocationModifiers(ctx, zip5)
	})
}

func (c *CostCache) Assemblies(ctx context.Context, category string) ([]referencedomain.Assembly, error) {
	assemblies, err := readThrough(c, TierAssemblies, c.assemblies, cacheKey(category), c.cfg.Assembly.TTL, func() ([]referencedomain.Assembly, error) {
		return c.repo.GetAssembliesForCategory(ctx, category)
	})
	return slices.Clone(assemblies), err
}

// Components returns the assembly's components that apply at the finish level.
func (c *CostCache) Components(ctx context.Context, assemblyID string, level referencedomain.QualityTier) ([]referencedomain.Component, error) {
	components, err := readThrough(c, TierAssemblies, c.components, cacheKey(assemblyID, string(level)), c.cfg.Assembly.TTL, func() ([]referencedomain.Component, error) {
		all, err := c.repo.GetAssemblyComponents(ctx, assemblyID)
		if err != nil {
			return nil, err
		}
		return lo.Filter(all, func(comp referencedomain.Component, _ int) bool {
			return comp.Item.AppliesTo(level)
		}), nil
	})
	return slices.Clone(components), err
}

// FinishItems returns the finish-level fixtures, finishes and appliances of a tier.
func (c *CostCache) FinishItems(ctx context.Context, level referencedomain.QualityTier, categories []string) ([]referencedomain.Component, error) {
	key := cacheKey(append([]string{"finish", string(level)}, categories...)...)
	components, err := readThrough(c, TierAssemblies, c.components, key, c.cfg.Assembly.TTL, func() ([]referencedomain.Component, error) {
		return c.repo.ListFinishItems(ctx, level, categories)
	})
	return slices.Clone(components), err
}

// RetailPrice caches absent prices too, so an unpriced item does not hit the store on every estimate.
func (c *CostCache) RetailPrice(ctx context.Context, itemID, locationID string, asOf time.Time, freshness time.Duration) (*referencedomain.RetailPrice, error) {
	return readThrough(c, TierRetailPrices, c.retail, cacheKey(itemID, locationID), c.cfg.RetailPrice.TTL, func() (*referencedomain.RetailPrice, error) {
		return c.repo.GetRetailPrice(ctx, itemID, locationID, asOf, freshness)
	})
}

// ItemCost caches a resolved unit cost per item and location.
func (c *CostCache) ItemCost(ctx context.Context, itemID, locationID string, load func(context.Context) (costingdomain.UnitCost, error)) (costingdomain.UnitCost, error) {
	return readThrough(c, TierItemCosts, c.itemCosts, cacheKey(itemID, locationID), c.cfg.ItemCost.TTL, func() (costingdomain.UnitCost, error) {
		return load(ctx)
	})
}

func (c *CostCache) MaterialSpec(ctx context.Context, itemID string) (*referencedomain.MaterialSpecification, error) {
	return readThrough(c, TierItemCosts, c.specs, cacheKey("spec", itemID), c.cfg.ItemCost.TTL, func() (*referencedomain.MaterialSpecification, error) {
		return c.repo.GetMaterialSpecs(ctx, itemID)
	})
}

// Estimate looks up a complete estimate. Store failures are logged and read as a miss.
func (c *CostCache) Estimate(ctx context.Context, key string) (*estimatedomain.Estimate, bool) {
	estimate, ok, err := c.estimates.Get(ctx, key)
	if err != nil {
		c.log.Warn("estimate cache read failed", zap.String("key", key), zap.Error(err))
		ok = false
	}
	if ok {
		c.hit(TierEstimates)
		return estimate, true
	}
	c.miss(TierEstimates)
	return nil, false
}

func (c *CostCache) StoreEstimate(ctx context.Context, key string, estimate *estimatedomain.Estimate) {
	if err := c.estimates.Set(ctx, key, estimate, c.cfg.Estimate.TTL); err != nil {
		c.log.Warn("estimate cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CostCache) Stats() map[Tier]TierStats {
	keys := map[Tier]int{
		TierLocations:    c.locations.Len(),
		TierAssemblies:   c.assemblies.Len() + c.components.Len(),
		TierItemCosts:    c.itemCosts.Len() + c.specs.Len(),
		TierRetailPrices: c.retail.Len(),
	}
	if n, err := c.estimates.Len(context.Background()); err == nil {
		keys[TierEstimates] = n
	}

	out := make(map[Tier]TierStats, len(tiers))
	for _, tier := range tiers {
		out[tier] = TierStats{
			Hits:   c.counters[tier].hits.Load(),
			Misses: c.counters[tier].misses.Load(),
			Keys:   keys[tier],
		}
	}
	return out
}

// Flush empties every tier, including a shared estimate store.
func (c *CostCache) Flush(ctx context.Context) error {
	c.locations.Flush()
	c.assemblies.Flush()
	c.components.Flush()
	c.itemCosts.Flush()
	c.specs.Flush()
	c.retail.Flush()
	if err := c.estimates.Flush(ctx); err != nil {
		return fmt.Errorf("flush estimates: %w", err)
	}
	c.log.Info("cost cache flushed")
	return nil
}

// Warm preloads locations for zips and the assembly lists of categories.
func (c *CostCache) Warm(ctx context.Context, zips, categories []string) error {
	for _, zip := range zips {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Location(ctx, zip); err != nil {
			return fmt.Errorf("warm location %s: %w", zip, err)
		}
	}
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Assemblies(ctx, category); err != nil {
			return fmt.Errorf("warm assemblies %s: %w", category, err)
		}
	}
	c.log.Info("cost cache warmed", zap.Int("zips", len(zips)), zap.Int("categories", len(categories)))
	return nil
}

func readThrough[V any](c *CostCache, tier Tier, store *TTLCache[string, V], key string, ttl time.Duration, load func() (V, error)) (V, error) {
	if value, ok := store.Get(key); ok {
		c.hit(tier)
		return value, nil
	}
	c.miss(tier)

	value, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	store.Set(key, value, ttl)
	return value, nil
}

func (c *CostCache) hit(tier Tier) {
	c.counters[tier].hits.Add(1)
	c.metrics.IncHit(string(tier))
}

func (c *CostCache) miss(tier Tier) {
	c.counters[tier].misses.Add(1)
	c.metrics.IncMiss(string(tier))
}

func (c *CostCache) evicted(tier Tier) func() {
	return func() { c.metrics.IncEviction(string(tier)) }
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
