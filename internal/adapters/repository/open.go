package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository/memory"
	"github.com/okian/rollcall/internal/adapters/repository/postgres"
	"github.com/okian/rollcall/pkg/logger"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	DatabaseURL string
	SeedFile    string
	Migrate     bool
	Location    *time.Location
	Logger      logger.Logger
}

// Open returns the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		opts := []memory.Option{memory.WithLocation(cfg.Location)}
		if cfg.SeedFile != "" {
			seed, err := memory.LoadSeed(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			opts = append(opts, memory.WithSeed(seed))
		}
		return memory.New(opts...), nil
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, ErrMissingDSN
		}
		s, err := postgres.Connect(ctx, cfg.DatabaseURL,
			postgres.WithLocation(cfg.Location),
			postgres.WithLogger(cfg.Logger))
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
