package service

import (
	"context"
	"fmt"
	"maps"

	costingdomain "github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/labor"
	"github.com/mirzaik-wcc/contractorlens/internal/observability/metrics"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// pricingJob is one component to price. Finish items carry no assembly and are priced
// as ordered, without waste.
type pricingJob struct {
	assembly   referencedomain.Assembly
	component  referencedomain.Component
	base       decimal.Decimal
	complexity float64
	finish     bool
}

func (s *Service) price(ctx context.Context, calc *calculation, job pricingJob) (pricedLine, error) {
	item := job.component.Item
	line := estimatedomain.LineItem{
		ItemID:      item.ID,
		AssemblyID:  job.assembly.ID,
		CSICode:     item.CSICode,
		Description: item.Description,
		Unit:        item.Unit,
		ItemType:    item.ItemType,
	}

	var err error
	switch kind := job.component.Kind.(type) {
	case referencedomain.Labor:
		s.priceLabor(ctx, calc, job, kind, &line)
	case referencedomain.Material:
		if job.finish {
			err = s.priceFinish(ctx, calc, job, &line)
		} else {
			err = s.priceMaterial(ctx, calc, job, &line)
		}
	case referencedomain.Equipment:
		err = s.priceEquipment(ctx, calc, job, &line)
	default:
		err = fmt.Errorf("%w: item %s has no component kind", referencedomain.ErrUnknownItemType, item.ID)
	}
	if err != nil {
		return pricedLine{}, fmt.Errorf("price item %s: %w", item.ID, err)
	}

	if s.cfg.IncludeSpecifications && item.ItemType == referencedomain.ItemTypeMaterial {
		spec, err := s.specification(ctx, item)
		if err != nil {
			return pricedLine{}, fmt.Errorf("specification for item %s: %w", item.ID, err)
		}
		line.Specification = spec
	}

	s.metrics.RecordComponentPriced(ctx, string(item.ItemType))

	var tradeDivision string
	if job.component.Trade != nil {
		tradeDivision = job.component.Trade.CSIDivision
	}
	return pricedLine{
		division: estimatedomain.DivisionCode(tradeDivision, item.CSICode),
		item:     line,
	}, nil
}

func (s *Service) priceMaterial(ctx context.Context, calc *calculation, job pricingJob, line *estimatedomain.LineItem) error {
	result := calc.quantities.Calculate(job.component, job.base, calc.req.Takeoff.Conditions)
	if result.AppliedDefault {
		calc.log.Warn("no waste factor on file, applying default waste",
			zap.String("assembly_id", job.assembly.ID),
			zap.String("item_id", line.ItemID),
		)
		s.metrics.RecordFallback(ctx, metrics.FallbackDefaultWaste)
	}

	cost, err := s.resolver.ResolveUnitCost(ctx, job.component.Item, calc.location)
	if err != nil {
		return err
	}

	line.Quantity = result.TotalQuantity
	line.UnitCost = cost.Amount
	line.TotalCost = result.TotalQuantity.Mul(cost.Amount).Round(2)
	line.LaborHours = decimal.Zero
	line.CostSource = cost.Source
	line.Quantities = &result
	return nil
}

func (s *Service) priceLabor(ctx context.Context, calc *calculation, job pricingJob, kind referencedomain.Labor, line *estimatedomain.LineItem) {
	conditions := labor.Conditions{
		Site:       calc.req.Takeoff.Conditions,
		Complexity: job.complexity,
	}
	rate := labor.Rate{
		BaseHourly:       calc.settings.HourlyRate,
		LocationModifier: calc.location.LaborModifier,
	}
	result := calc.labor.Calculate(job.component, job.base, conditions, rate)
	if kind.Task == nil {
		calc.log.Warn("no labor task on file, using legacy labor estimate",
			zap.String("assembly_id", job.assembly.ID),
			zap.String("item_id", line.ItemID),
		)
		s.metrics.RecordFallback(ctx, metrics.FallbackLegacyLabor)
	}

	line.Quantity = result.TotalHours
	line.UnitCost = result.HourlyRate
	line.TotalCost = result.TotalLaborCost
	line.LaborHours = result.TotalHours
	line.CostSource = costingdomain.SourceLaborRate
	line.Labor = &result
}

func (s *Service) priceEquipment(ctx context.Context, calc *calculation, job pricingJob, line *estimatedomain.LineItem) error {
	cost, err := s.resolver.ResolveUnitCost(ctx, job.component.Item, calc.location)
	if err != nil {
		return err
	}
	line.Quantity = job.base
	line.UnitCost = cost.Amount
	line.TotalCost = job.base.Mul(cost.Amount).Round(2)
	line.LaborHours = decimal.Zero
	line.CostSource = cost.Source
	return nil
}

func (s *Service) priceFinish(ctx context.Context, calc *calculation, job pricingJob, line *estimatedomain.LineItem) error {
	if err := s.priceEquipment(ctx, calc, job, line); err != nil {
		return err
	}
	line.Description = fmt.Sprintf("%s (%s level)", line.Description, calc.req.FinishLevel)
	return nil
}

// finishJobs prices the finish level's fixtures, finishes and appliances: one fixture set
// per kitchen and bathroom, one appliance package per kitchen and finishes by total area.
func (s *Service) finishJobs(ctx context.Context, calc *calculation) ([]pricingJob, error) {
	t := calc.req.Takeoff
	quantities := map[string]decimal.Decimal{
		finishFixtures:   decimal.NewFromInt(int64(len(t.Kitchens) + len(t.Bathrooms))),
		finishAppliances: decimal.NewFromInt(int64(len(t.Kitchens))),
		finishFinishes:   decimal.NewFromFloat(takeoff.TotalArea(t)),
	}

	components, err := s.cache.FinishItems(ctx, calc.req.FinishLevel, finishCategories)
	if err != nil {
		return nil, err
	}

	jobs := make([]pricingJob, 0, len(components))
	for _, component := range components {
		qty, ok := quantities[component.Item.Category]
		if !ok || !qty.IsPositive() {
			continue
		}
		jobs = append(jobs, pricingJob{
			component: component,
			base:      qty,
			finish:    true,
		})
	}
	return jobs, nil
}

// specification prefers the catalog specification row and falls back to the item's own
// manufacturer fields. The details map is copied so cached rows are never shared.
func (s *Service) specification(ctx context.Context, item referencedomain.Item) (*estimatedomain.Specification, error) {
	spec, err := s.cache.MaterialSpec(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if spec != nil {
		return &estimatedomain.Specification{
			Manufacturer:  spec.Manufacturer,
			ModelNumber:   spec.ModelNumber,
			Details:       maps.Clone(map[string]any(spec.Specifications)),
			WarrantyYears: spec.WarrantyYears,
		}, nil
	}
	if item.Manufacturer == nil && item.ModelNumber == nil {
		return nil, nil
	}
	out := &estimatedomain.Specification{}
	if item.Manufacturer != nil {
		out.Manufacturer = *item.Manufacturer
	}
	if item.ModelNumber != nil {
		out.ModelNumber = *item.ModelNumber
	}
	return out, nil
}
