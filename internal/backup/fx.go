package backup

import "go.uber.org/fx"

var Module = fx.Module("backup",
	fx.Provide(New),
	fx.Provide(NewLoop),
	fx.Invoke(StartLoop),
)
