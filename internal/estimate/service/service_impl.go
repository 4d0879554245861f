package service

import (
	"context"
	"errors"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/cache"
	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	costingdomain "github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/labor"
	ctxlog "github.com/mirzaik-wcc/contractorlens/internal/observability/logger"
	"github.com/mirzaik-wcc/contractorlens/internal/observability/metrics"
	"github.com/mirzaik-wcc/contractorlens/internal/quantity"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	finishFixtures   = "fixtures"
	finishFinishes   = "finishes"
	finishAppliances = "appliances"
)

var finishCategories = []string{finishFixtures, finishFinishes, finishAppliances}

type Service struct {
	cache    *cache.CostCache
	resolver costingdomain.Resolver
	rules    *config.PricingRulesHolder
	cfg      config.EstimatorConfig
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type ServiceParam struct {
	fx.In

	Cache          *cache.CostCache
	Resolver       costingdomain.Resolver
	Rules          *config.PricingRulesHolder
	Config         config.Config
	Clock          clock.Clock
	Log            *zap.Logger
	Metrics        *metrics.Metrics     `optional:"true"`
	TracerProvider trace.TracerProvider `optional:"true"`
}

func NewService(p ServiceParam) estimatedomain.Service {
	provider := p.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Service{
		cache:    p.Cache,
		resolver: p.Resolver,
		rules:    p.Rules,
		cfg:      p.Config.Estimator,
		clock:    p.Clock,
		log:      p.Log.Named("estimate.service"),
		metrics:  p.Metrics,
		tracer:   provider.Tracer("contractorlens/estimate"),
	}
}

// calculation is the state of one CalculateEstimate call.
type calculation struct {
	req         estimatedomain.ValidatedRequest
	settings    estimatedomain.Settings
	fingerprint string
	quantities  quantity.Calculator
	labor       labor.Calculator
	log         *zap.Logger

	stage    estimatedomain.Stage
	location referencedomain.LocationCostModifier
	matched  []matchedAssembly
	lines    []pricedLine
	estimate *estimatedomain.Estimate
}

type matchedAssembly struct {
	assembly   referencedomain.Assembly
	quantity   decimal.Decimal
	complexity float64
}

func (s *Service) CalculateEstimate(ctx context.Context, req estimatedomain.CalculateRequest) (*estimatedomain.Estimate, error) {
	started := time.Now()

	validated, err := req.Validate()
	if err != nil {
		s.metrics.RecordEstimate(ctx, req.JobType, metrics.OutcomeValidation, time.Since(started), 0)
		return nil, err
	}
	jobType := string(validated.JobType)

	settings := validated.UserSettings.Effective(s.defaultSettings())
	rules := s.rules.Current()
	fingerprint, err := Fingerprint(validated, settings, rules, s.cfg.EngineVersion)
	if err != nil {
		s.metrics.RecordEstimate(ctx, jobType, metrics.OutcomeFailed, time.Since(started), 0)
		return nil, &estimatedomain.CalculationError{Stage: estimatedomain.StageValidating, Err: err}
	}
	ctx = ctxlog.ContextWithEstimate(ctx, fingerprint)

	ctx, span := s.tracer.Start(ctx, "estimate.calculate", trace.WithAttributes(
		attribute.String("job_type", jobType),
		attribute.String("finish_level", string(validated.FinishLevel)),
	))
	defer span.End()

	log := ctxlog.WithContext(ctx, s.log).With(
		zap.String("job_type", jobType),
		zap.String("finish_level", string(validated.FinishLevel)),
		zap.String("zip", validated.Zip5),
	)

	if s.cfg.CacheEstimates {
		if cached, ok := s.cache.Estimate(ctx, fingerprint); ok {
			log.Debug("estimate served from cache")
			s.metrics.RecordEstimate(ctx, jobType, metrics.OutcomeCached, time.Since(started), len(cached.LineItems()))
			return cached, nil
		}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	calc := &calculation{
		req:         validated,
		settings:    settings,
		fingerprint: fingerprint,
		quantities:  quantity.NewCalculator(rules),
		labor:       labor.NewCalculator(rules),
		log:         log,
		stage:       estimatedomain.StageValidating,
	}

	steps := []struct {
		next estimatedomain.Stage
		run  func(context.Context, *calculation) error
	}{
		{estimatedomain.StageLocationResolved, s.resolveLocation},
		{estimatedomain.StageAssembliesMatched, s.matchAssemblies},
		{estimatedomain.StageComponentsPriced, s.priceComponents},
		{estimatedomain.StageAggregated, s.aggregate},
		{estimatedomain.StageMarkupApplied, s.applyMarkup},
		{estimatedomain.StageDone, s.finish},
	}
	for _, step := range steps {
		if err := s.runStage(ctx, calc, step.next, step.run); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "estimate calculation failed")
			log.Error("estimate calculation failed", zap.String("stage", string(step.next)), zap.Error(err))
			s.metrics.RecordEstimate(ctx, jobType, metrics.OutcomeFailed, time.Since(started), 0)
			return nil, err
		}
	}

	if s.cfg.CacheEstimates {
		s.cache.StoreEstimate(ctx, fingerprint, calc.estimate)
	}
	s.metrics.RecordEstimate(ctx, jobType, metrics.OutcomeSuccess, time.Since(started), calc.estimate.Summary.LineItemCount)
	log.Info("estimate calculated",
		zap.String("estimate_id", calc.estimate.Metadata.EstimateID),
		zap.Int("line_items", calc.estimate.Summary.LineItemCount),
		zap.String("grand_total", calc.estimate.GrandTotal.StringFixed(2)),
	)
	return calc.estimate, nil
}

// runStage moves the calculation into next. Any error, including cancellation of ctx,
// is wrapped in a CalculationError naming the stage that failed.
func (s *Service) runStage(ctx context.Context, calc *calculation, next estimatedomain.Stage, run func(context.Context, *calculation) error) error {
	if err := ctx.Err(); err != nil {
		return &estimatedomain.CalculationError{Stage: next, Err: err}
	}

	ctx, span := s.tracer.Start(ctx, "estimate."+string(next))
	defer span.End()

	if err := run(ctx, calc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var calcErr *estimatedomain.CalculationError
		if errors.As(err, &calcErr) {
			return err
		}
		return &estimatedomain.CalculationError{Stage: next, Err: err}
	}
	calc.log.Debug("estimate stage complete",
		zap.String("from", string(calc.stage)),
		zap.String("to", string(next)),
	)
	calc.stage = next
	return nil
}

func (s *Service) resolveLocation(ctx context.Context, calc *calculation) error {
	location, err := s.resolver.ResolveLocation(ctx, calc.req.Zip5)
	if err != nil {
		return err
	}
	calc.location = location
	return nil
}

// matchAssemblies keeps the job type's assemblies that consume a positive takeoff quantity.
func (s *Service) matchAssemblies(ctx context.Context, calc *calculation) error {
	assemblies, err := s.cache.Assemblies(ctx, string(calc.req.JobType))
	if err != nil {
		return err
	}
	if len(assemblies) == 0 {
		calc.log.Warn("no assemblies for job type")
	}

	for _, assembly := range assemblies {
		if !takeoff.IsKnownCategory(assembly.Category) {
			calc.log.Warn("assembly category has no takeoff rule, skipping",
				zap.String("assembly_id", assembly.ID),
				zap.String("category", assembly.Category),
			)
			s.metrics.RecordFallback(ctx, metrics.FallbackUnknownCategory)
			continue
		}
		qty := takeoff.Match(calc.req.Takeoff, assembly.Category)
		if qty <= 0 {
			continue
		}
		calc.matched = append(calc.matched, matchedAssembly{
			assembly:   assembly,
			quantity:   decimal.NewFromFloat(qty),
			complexity: takeoff.Complexity(calc.req.Takeoff, assembly.Category),
		})
	}
	return nil
}

// priceComponents fans component pricing out over a bounded worker group. Each job writes
// only its own slot, and the first failure cancels the rest.
func (s *Service) priceComponents(ctx context.Context, calc *calculation) error {
	jobs := make([]pricingJob, 0)
	for _, m := range calc.matched {
		components, err := s.cache.Components(ctx, m.assembly.ID, calc.req.FinishLevel)
		if err != nil {
			return err
		}
		for _, component := range components {
			jobs = append(jobs, pricingJob{
				assembly:   m.assembly,
				component:  component,
				base:       m.quantity.Mul(component.Quantity),
				complexity: m.complexity,
			})
		}
	}

	finishJobs, err := s.finishJobs(ctx, calc)
	if err != nil {
		return err
	}
	jobs = append(jobs, finishJobs...)

	results := make([]pricedLine, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			line, err := s.price(gctx, calc, job)
			if err != nil {
				return err
			}
			results[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	calc.lines = results
	return nil
}

func (s *Service) aggregate(_ context.Context, calc *calculation) error {
	calc.estimate = &estimatedomain.Estimate{Divisions: aggregate(calc.lines)}
	return nil
}

func (s *Service) applyMarkup(_ context.Context, calc *calculation) error {
	est := calc.estimate
	material, laborTotal := splitTotals(est.LineItems())
	totals := ApplyMarkup(material, laborTotal, calc.settings)

	est.Subtotal = totals.Subtotal
	est.MaterialTotal = totals.MaterialTotal
	est.LaborTotal = totals.LaborTotal
	est.MarkupAmount = totals.MarkupAmount
	est.AfterMarkup = totals.AfterMarkup
	est.TaxableAmount = totals.TaxableAmount
	est.TaxAmount = totals.TaxAmount
	est.GrandTotal = totals.GrandTotal
	return nil
}

func (s *Service) finish(_ context.Context, calc *calculation) error {
	est := calc.estimate
	items := est.LineItems()
	area := decimal.NewFromFloat(takeoff.TotalArea(calc.req.Takeoff)).Round(2)

	est.Summary = estimatedomain.Summary{
		LineItemCount:       len(items),
		TotalArea:           area,
		MaterialCostPerSqFt: perSqFt(est.MaterialTotal, area),
		LaborCostPerSqFt:    perSqFt(est.LaborTotal, area),
	}
	est.Metadata = estimatedomain.Metadata{
		EstimateID:      EstimateID(calc.fingerprint),
		CalculatedAt:    s.clock.Now(),
		EngineVersion:   s.cfg.EngineVersion,
		JobType:         calc.req.JobType,
		FinishLevel:     string(calc.req.FinishLevel),
		Location:        estimatedomain.NewLocation(calc.req.Zip5, calc.location),
		Settings:        calc.settings,
		TotalLaborHours: sumBy(items, func(li estimatedomain.LineItem) decimal.Decimal { return li.LaborHours }),
		Fingerprint:     calc.fingerprint,
	}
	return nil
}

func (s *Service) defaultSettings() estimatedomain.Settings {
	return estimatedomain.Settings{
		HourlyRate:       decimal.NewFromFloat(s.cfg.DefaultHourlyRate),
		MarkupPercentage: decimal.NewFromFloat(s.cfg.DefaultMarkupPercentage),
		TaxRate:          decimal.NewFromFloat(s.cfg.DefaultTaxRate),
	}
}

func perSqFt(total, area decimal.Decimal) decimal.Decimal {
	if !area.IsPositive() {
		return decimal.Zero
	}
	return total.Div(area).Round(2)
}

var _ estimatedomain.Service = (*Service)(nil)
