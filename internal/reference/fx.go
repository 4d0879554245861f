package reference

import "go.uber.org/fx"

// Module exposes the read-only catalog repository backing cost lookups.
var Module = fx.Module("reference.catalog",
	fx.Provide(NewRepository),
)
