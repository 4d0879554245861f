package costing

import (
	"github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("costing.resolver",
	fx.Provide(NewResolver),
	fx.Provide(func(r *Resolver) domain.Resolver { return r }),
)
