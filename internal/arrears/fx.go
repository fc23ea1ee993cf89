package arrears

import (
	"github.com/railzwaylabs/roomledger/internal/arrears/service"
	"go.uber.org/fx"
)

var Module = fx.Module("arrears.service",
	fx.Provide(service.NewService),
)
