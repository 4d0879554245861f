package domain

import (
	"context"
	"time"
)

// Repository is the read-only query contract of the reference store.
// Lookups of a single row return (nil, nil) when nothing matches.
type Repository interface {
	// GetLocationModifiers resolves a 5-digit ZIP by exact, range then prefix match.
	GetLocationModifiers(ctx context.Context, zip string) (*LocationCostModifier, error)
	GetAssembliesForCategory(ctx context.Context, category string) ([]Assembly, error)
	// GetAssemblyComponents returns the assembly's items joined with trade, labor task and waste factor.
	GetAssemblyComponents(ctx context.Context, assemblyID string) ([]Component, error)
	// GetRetailPrice returns the most recently scraped price valid at asOf.
	GetRetailPrice(ctx context.Context, itemID, locationID string, asOf time.Time, freshness time.Duration) (*RetailPrice, error)
	GetLaborTask(ctx context.Context, itemID string) (*LaborTask, error)
	GetWasteFactors(ctx context.Context, itemID string) (*WasteFactor, error)
	GetMaterialSpecs(ctx context.Context, itemID string) (*MaterialSpecification, error)
	// ListFinishItems returns the tier-specific items of the given item categories as components with zero quantity.
	ListFinishItems(ctx context.Context, tier QualityTier, categories []string) ([]Component, error)
}
