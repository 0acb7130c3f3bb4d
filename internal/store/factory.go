package store

import (
	"fmt"

	"quill-go/internal/config"
	"quill-go/internal/quill"
)

// NewStoreManagerFromConfig creates a StoreManager based on the
// configured strategy.
func NewStoreManagerFromConfig(cfg config.StoreConfig, db quill.Database, clock quill.Clock, idgen quill.IDGenerator) (quill.StoreManager, error) {
	switch quill.Strategy(cfg.Strategy) {
	case quill.StrategyBranching:
		return NewGitStoreManager(cfg.Root, clock), nil
	case quill.StrategyLinear:
		return NewLinearStoreManager(cfg.Root, db, clock, idgen), nil
	default:
		return nil, fmt.Errorf("unknown store strategy: %s", cfg.Strategy)
	}
}
