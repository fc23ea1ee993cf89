package config

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("config",
	fx.Provide(
		NewSource,
		func(s *Source) Config { return s.Config() },
	),
)

// Source holds the loaded configuration and swaps in a fresh copy when the
// config file changes on disk.
type Source struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg Config
}

func NewSource() (*Source, error) {
	v := newViper()
	cfg, err := readInto(v)
	if err != nil {
		return nil, err
	}
	return &Source{v: v, cfg: cfg}, nil
}

// NewStaticSource wraps an already built config. It never reloads.
func NewStaticSource(cfg Config) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Billing is the part of the config that may change without a restart.
func (s *Source) Billing() BillingConfig {
	return s.Config().Billing
}

// Watch reloads the config file on change. Invalid edits are logged and the
// previous config stays in effect.
func (s *Source) Watch(log *zap.Logger) {
	if s.v == nil || s.v.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(s.v.ConfigFileUsed()); err != nil {
		return
	}
	log = log.Named("config")
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(s.v)
		if err != nil {
			log.Warn("config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		s.mu.Lock()
		s.cfg = cfg
		s.mu.Unlock()
		log.Info("config reloaded", zap.String("file", e.Name))
	})
	s.v.WatchConfig()
}
