package providers

import (
	"github.com/samber/do/v2"

	"github.com/meshapp/mesh-cache/internal/config"
	"github.com/meshapp/mesh-cache/internal/logger"
	"github.com/meshapp/mesh-cache/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the local entity store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := store.Open(store.Options{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
		SyncTTL:  cfg.Sync.TTL,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Local entity store opened", "path", cfg.Store.Path, "in_memory", cfg.Store.InMemory)

	return &StoreHandle{Store: st}, nil
}
