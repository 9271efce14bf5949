// Package pg implementa los repositorios sobre PostgreSQL con pgx.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/authkit/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store agrupa el pool y expone las vistas de repositorio.
type Store struct{ pool *pgxpool.Pool }

// Config ajusta el pool de conexiones.
type Config struct {
	MaxConns        int
	ConnMaxLifetime string
}

// New abre el pool y verifica conectividad.
func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones, métricas).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Accounts retorna la vista AccountRepository.
func (s *Store) Accounts() repository.AccountRepository { return &accountRepo{pool: s.pool} }

// Sessions retorna la vista SessionRepository.
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{pool: s.pool} }
