package jobauth

import "go.uber.org/fx"

var Module = fx.Module("jobauth",
	fx.Provide(NewVerifier),
)
