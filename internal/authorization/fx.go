package authorization

import (
	"github.com/railzwaylabs/roomledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("authorization",
	fx.Provide(Provide),
)

type Param struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB `optional:"true"`
}

// Provide persists policies when a SQL store is configured.
func Provide(p Param) (*Authorizer, error) {
	if p.DB == nil {
		return NewAuthorizer(p.Config, p.Log)
	}
	return NewPersistentAuthorizer(p.Config, p.DB, p.Log)
}
