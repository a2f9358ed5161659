package plan

import "go.uber.org/fx"

// Module exposes the plan catalog via Fx and seeds it from config on startup.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(seedOnStart),
)
