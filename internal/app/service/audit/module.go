package audit

import "go.uber.org/fx"

// Module exposes the audit trail via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
