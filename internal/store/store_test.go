package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MeKo-Tech/gradescan/internal/bonus"
)

// startPostgres runs a throwaway Postgres container and returns a migrated store.
func startPostgres(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "gradescan",
				"POSTGRES_PASSWORD": "gradescan",
				"POSTGRES_DB":       "gradescan",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://gradescan:gradescan@%s:%s/gradescan?sslmode=disable", host, port.Port())
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migration is idempotent")
	return s
}

func TestStore_Integration(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()

	t.Run("grading system round trip", func(t *testing.T) {
		gs := bonus.GradingSystem{
			ID:            "de-1-6",
			Name:          "Deutschland 1-6",
			ScaleType:     bonus.ScaleNumeric,
			MinValue:      1,
			MaxValue:      6,
			BestIsHighest: false,
			Grades: []bonus.GradeDefinition{
				{Grade: "1", Normalized100: 100, QualityTier: bonus.TierBest},
				{Grade: "2", Normalized100: 80, QualityTier: bonus.TierSecond},
				{Grade: "3", Normalized100: 60, QualityTier: bonus.TierThird},
			},
		}
		require.NoError(t, s.SaveGradingSystem(ctx, gs))

		got, err := s.GradingSystem(ctx, "de-1-6")
		require.NoError(t, err)
		assert.Equal(t, gs, *got)

		gs.Grades = gs.Grades[:1]
		require.NoError(t, s.SaveGradingSystem(ctx, gs))
		got, err = s.GradingSystem(ctx, "de-1-6")
		require.NoError(t, err)
		assert.Len(t, got.Grades, 1)

		_, err = s.GradingSystem(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("factor table scoping", func(t *testing.T) {
		require.NoError(t, s.PutDefault(ctx, bonus.Factor{Type: bonus.FactorBaseAmount, Key: bonus.KeyPerSubject, Value: 5}))
		require.NoError(t, s.PutDefault(ctx, bonus.Factor{Type: bonus.FactorGradeTier, Key: "best", Value: 2}))
		require.NoError(t, s.PutOverride(ctx, bonus.Override{Factor: bonus.Factor{Type: bonus.FactorGradeTier, Key: "best", Value: 3}, UserID: "u1"}))
		require.NoError(t, s.PutOverride(ctx, bonus.Override{Factor: bonus.Factor{Type: bonus.FactorGradeTier, Key: "best", Value: 4}, UserID: "u1", ChildID: "c1"}))
		require.NoError(t, s.PutOverride(ctx, bonus.Override{Factor: bonus.Factor{Type: bonus.FactorGradeTier, Key: "best", Value: 9}, UserID: "u2"}))

		table, err := s.FactorTable(ctx, "", "")
		require.NoError(t, err)
		assert.Len(t, table.Defaults, 2)
		assert.Empty(t, table.Overrides)

		table, err = s.FactorTable(ctx, "u1", "c1")
		require.NoError(t, err)
		assert.Len(t, table.Overrides, 2)

		r := bonus.NewResolver(*table, bonus.Scope{UserID: "u1", ChildID: "c1"})
		v, ok := r.Lookup(bonus.FactorGradeTier, "best")
		require.True(t, ok)
		assert.InDelta(t, 4.0, v, 1e-9)

		assert.Error(t, s.PutOverride(ctx, bonus.Override{Factor: bonus.Factor{Type: bonus.FactorGradeTier, Key: "best"}}))
	})

	t.Run("shared limiter", func(t *testing.T) {
		l := NewLimiter(s, 5, time.Hour)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := l.TryConsume(ctx, "caller-1")
				if err == nil && d.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 5, allowed)

		d, err := l.TryConsume(ctx, "caller-2")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 4, d.Remaining)

		expired := NewLimiter(s, 1, time.Millisecond)
		_, err = expired.TryConsume(ctx, "caller-3")
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		d, err = expired.TryConsume(ctx, "caller-3")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "expired window restarts")
	})
}

func TestLimiter_Disabled(t *testing.T) {
	d, err := NewLimiter(nil, 0, time.Hour).TryConsume(context.Background(), "anyone")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
