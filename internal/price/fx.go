package price

import (
	"github.com/railzwaylabs/roomledger/internal/price/repository"
	"github.com/railzwaylabs/roomledger/internal/price/service"
	"go.uber.org/fx"
)

var Module = fx.Module("price.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
