package metering

import (
	"github.com/railzwaylabs/roomledger/internal/metering/service"
	"go.uber.org/fx"
)

var Module = fx.Module("metering.service",
	fx.Provide(service.NewExtractor),
)
