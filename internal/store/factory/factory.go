package factory

import (
	"fmt"

	"github.com/loykin/hostbot/internal/store"
	"github.com/loykin/hostbot/internal/store/postgres"
	"github.com/loykin/hostbot/internal/store/sqlite"
)

// New builds a store.Store from config. An empty type means no persistence.
func New(cfg store.Config) (store.Store, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.Path)
	case "postgres", "postgresql":
		return postgres.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store type: %q", cfg.Type)
	}
}
