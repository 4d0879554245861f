// Package costing resolves unit costs through the location-aware pricing hierarchy.
package costing

import (
	"context"
	"strings"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/cache"
	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/observability/metrics"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const nationalLocationKey = "national"

type Resolver struct {
	cache     *cache.CostCache
	clock     clock.Clock
	freshness time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	Cache   *cache.CostCache
	Clock   clock.Clock
	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewResolver(p ServiceParam) *Resolver {
	return &Resolver{
		cache:     p.Cache,
		clock:     p.Clock,
		freshness: p.Config.Estimator.RetailPriceFreshness(),
		log:       p.Log.Named("costing.resolver"),
		metrics:   p.Metrics,
	}
}

// ResolveLocation matches a ZIP to a region and falls back to the national average.
func (r *Resolver) ResolveLocation(ctx context.Context, zip string) (referencedomain.LocationCostModifier, error) {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		zip = zip[:5]
	}

	loc, err := r.cache.Location(ctx, zip)
	if err != nil {
		return referencedomain.LocationCostModifier{}, err
	}
	if loc == nil {
		r.log.Warn("no location modifier for zip, using national average", zap.String("zip", zip))
		r.metrics.RecordFallback(ctx, metrics.FallbackNationalLocation)
		return referencedomain.NationalAverage(), nil
	}
	return *loc, nil
}

// ResolveUnitCost prefers a fresh retail price for the location over the
// national average cost scaled by the location modifier.
func (r *Resolver) ResolveUnitCost(ctx context.Context, item referencedomain.Item, location referencedomain.LocationCostModifier) (domain.UnitCost, error) {
	locationKey := location.LocationID
	if location.IsNationalAverage() {
		locationKey = nationalLocationKey
	}
	return r.cache.ItemCost(ctx, item.ID, locationKey, func(ctx context.Context) (domain.UnitCost, error) {
		return r.resolve(ctx, item, location)
	})
}

func (r *Resolver) resolve(ctx context.Context, item referencedomain.Item, location referencedomain.LocationCostModifier) (domain.UnitCost, error) {
	if !location.IsNationalAverage() {
		price, err := r.cache.RetailPrice(ctx, item.ID, location.LocationID, r.clock.Now(), r.freshness)
		if err != nil {
			return domain.UnitCost{}, err
		}
		if price != nil {
			return domain.UnitCost{
				Amount:   price.Price,
				Source:   domain.SourceRetail,
				Modifier: decimal.NewFromInt(1),
				Retailer: price.Retailer,
			}, nil
		}
	}

	modifier := location.MaterialModifier
	if item.ItemType == referencedomain.ItemTypeLabor {
		modifier = location.LaborModifier
	}
	r.metrics.RecordFallback(ctx, metrics.FallbackNationalCost)
	r.log.Debug("priced from national average",
		zap.String("item_id", item.ID),
		zap.String("location_id", location.LocationID),
		zap.String("modifier", modifier.String()),
	)
	return domain.UnitCost{
		Amount:   item.NationalAverageCost.Mul(modifier).Round(4),
		Source:   domain.SourceNationalAverage,
		Modifier: modifier,
	}, nil
}

var _ domain.Resolver = (*Resolver)(nil)
