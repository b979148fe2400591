// Package store persists grading systems, bonus factor tables and shared rate-limit
// windows in PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned for unknown grading systems.
var ErrNotFound = errors.New("not found")

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects and pings the database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// GradingSystem loads a grading system with its definitions in stored order.
func (s *Store) GradingSystem(ctx context.Context, id string) (*bonus.GradingSystem, error) {
	gs := bonus.GradingSystem{ID: id}
	var scale string
	err := s.pool.QueryRow(ctx,
		`SELECT name, scale_type, min_value, max_value, best_is_highest FROM grading_systems WHERE id = $1`, id,
	).Scan(&gs.Name, &scale, &gs.MinValue, &gs.MaxValue, &gs.BestIsHighest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("grading system %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load grading system %q: %w", id, err)
	}
	gs.ScaleType = bonus.ScaleType(scale)

	rows, err := s.pool.Query(ctx,
		`SELECT grade, normalized_100, quality_tier FROM grade_definitions
		 WHERE grading_system_id = $1 ORDER BY position, grade`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load grade definitions: %w", err)
	}
	gs.Grades, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (bonus.GradeDefinition, error) {
		var d bonus.GradeDefinition
		var tier string
		err := row.Scan(&d.Grade, &d.Normalized100, &tier)
		d.QualityTier = bonus.Tier(tier)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read grade definitions: %w", err)
	}
	return &gs, nil
}

// SaveGradingSystem upserts a grading system and replaces its definitions.
func (s *Store) SaveGradingSystem(ctx context.Context, gs bonus.GradingSystem) error {
	if gs.ID == "" {
		return errors.New("grading system id is required")
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO grading_systems (id, name, scale_type, min_value, max_value, best_is_highest)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, scale_type = EXCLUDED.scale_type,
			   min_value = EXCLUDED.min_value, max_value = EXCLUDED.max_value,
			   best_is_highest = EXCLUDED.best_is_highest`,
			gs.ID, gs.Name, string(gs.ScaleType), gs.MinValue, gs.MaxValue, gs.BestIsHighest,
		); err != nil {
			return fmt.Errorf("failed to save grading system: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM grade_definitions WHERE grading_system_id = $1`, gs.ID); err != nil {
			return fmt.Errorf("failed to clear grade definitions: %w", err)
		}
		for i, d := range gs.Grades {
			if _, err := tx.Exec(ctx,
				`INSERT INTO grade_definitions (grading_system_id, grade, normalized_100, quality_tier, position)
				 VALUES ($1, $2, $3, $4, $5)`,
				gs.ID, d.Grade, d.Normalized100, string(d.QualityTier), i,
			); err != nil {
				return fmt.Errorf("failed to save grade %q: %w", d.Grade, err)
			}
		}
		return nil
	})
}

// FactorTable loads the defaults plus the overrides that can apply to the user or child.
func (s *Store) FactorTable(ctx context.Context, userID, childID string) (*bonus.FactorTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT factor_type, factor_key, factor_value FROM bonus_factor_defaults ORDER BY factor_type, factor_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to load default factors: %w", err)
	}
	defaults, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (bonus.Factor, error) {
		var f bonus.Factor
		var t string
		err := row.Scan(&t, &f.Key, &f.Value)
		f.Type = bonus.FactorType(t)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read default factors: %w", err)
	}

	table := &bonus.FactorTable{Defaults: defaults}
	if userID == "" && childID == "" {
		return table, nil
	}

	rows, err = s.pool.Query(ctx,
		`SELECT user_id, child_id, factor_type, factor_key, factor_value FROM bonus_factor_overrides
		 WHERE (user_id = $1 AND child_id = '') OR (child_id <> '' AND child_id = $2)
		 ORDER BY child_id DESC, factor_type, factor_key`, userID, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to load factor overrides: %w", err)
	}
	table.Overrides, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (bonus.Override, error) {
		var o bonus.Override
		var t string
		err := row.Scan(&o.UserID, &o.ChildID, &t, &o.Key, &o.Value)
		o.Type = bonus.FactorType(t)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read factor overrides: %w", err)
	}
	return table, nil
}

// PutDefault upserts a default factor.
func (s *Store) PutDefault(ctx context.Context, f bonus.Factor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bonus_factor_defaults (factor_type, factor_key, factor_value) VALUES ($1, $2, $3)
		 ON CONFLICT (factor_type, factor_key) DO UPDATE SET factor_value = EXCLUDED.factor_value`,
		string(f.Type), f.Key, f.Value)
	if err != nil {
		return fmt.Errorf("failed to save default factor %s/%s: %w", f.Type, f.Key, err)
	}
	return nil
}

// PutOverride upserts a user or child override.
func (s *Store) PutOverride(ctx context.Context, o bonus.Override) error {
	if o.UserID == "" {
		return errors.New("override needs a user id")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bonus_factor_overrides (user_id, child_id, factor_type, factor_key, factor_value)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, child_id, factor_type, factor_key) DO UPDATE SET factor_value = EXCLUDED.factor_value`,
		o.UserID, o.ChildID, string(o.Type), o.Key, o.Value)
	if err != nil {
		return fmt.Errorf("failed to save override %s/%s: %w", o.Type, o.Key, err)
	}
	return nil
}
