package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() Config {
	cfg := DefaultConfig()
	cfg.DSN = ":memory:"
	return cfg
}

func TestNewConnectionManager_SQLite(t *testing.T) {
	cm, err := NewConnectionManager(memoryConfig(), nil)
	require.NoError(t, err)
	defer cm.Close()

	assert.Equal(t, DriverSQLite, cm.Driver())
	assert.Same(t, cm.Primary(), cm.Replica(), "reads fall back to the primary")
	assert.Equal(t, 1, cm.Primary().Stats().MaxOpenConnections)

	var fk int
	require.NoError(t, cm.Primary().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	assert.NoError(t, cm.HealthCheck(context.Background()))
}

func TestNewConnectionManager_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.DSN = " " }},
		{"sqlite replicas", func(c *Config) { c.ReplicaDSNs = []string{"file:replica.db"} }},
		{"zero max conns", func(c *Config) { c.MaxConns = 0 }},
		{"min above max", func(c *Config) { c.MinConns = 50 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)

			cm, err := NewConnectionManager(cfg, nil)
			assert.Error(t, err)
			assert.Nil(t, cm)
		})
	}
}

func TestConnectionManager_Replica(t *testing.T) {
	newDB := func() *sql.DB {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	}

	t.Run("round-robin selection", func(t *testing.T) {
		r1, r2, r3 := newDB(), newDB(), newDB()
		cm := &ConnectionManager{primary: newDB(), replicas: []*sql.DB{r1, r2, r3}}

		selections := make(map[*sql.DB]int)
		for i := 0; i < 30; i++ {
			selections[cm.Replica()]++
		}

		assert.Equal(t, 10, selections[r1])
		assert.Equal(t, 10, selections[r2])
		assert.Equal(t, 10, selections[r3])
	})

	t.Run("concurrent selection", func(t *testing.T) {
		r1, r2 := newDB(), newDB()
		cm := &ConnectionManager{primary: newDB(), replicas: []*sql.DB{r1, r2}}

		var mu sync.Mutex
		var wg sync.WaitGroup
		selections := make(map[*sql.DB]int)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				db := cm.Replica()
				mu.Lock()
				selections[db]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, selections[r1])
		assert.Equal(t, 50, selections[r2])
	})
}

func TestConnectionManager_HealthCheck(t *testing.T) {
	ping := func(ok bool) (*sql.DB, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		if ok {
			mock.ExpectPing()
		} else {
			mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		}
		return db, mock
	}

	t.Run("healthy", func(t *testing.T) {
		primary, _ := ping(true)
		r1, _ := ping(true)
		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{r1}}
		assert.NoError(t, cm.HealthCheck(context.Background()))
	})

	t.Run("primary down", func(t *testing.T) {
		primary, _ := ping(false)
		cm := &ConnectionManager{primary: primary}
		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	t.Run("one replica down is degraded but healthy", func(t *testing.T) {
		primary, _ := ping(true)
		r1, _ := ping(true)
		r2, _ := ping(false)
		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{r1, r2}}
		assert.NoError(t, cm.HealthCheck(context.Background()))
	})

	t.Run("all replicas down", func(t *testing.T) {
		primary, _ := ping(true)
		r1, _ := ping(false)
		cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{r1}}
		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "replica-0")
	})
}

func TestConnectionManager_RemoveUnhealthyReplicas(t *testing.T) {
	primary, _, err := sqlmock.New()
	require.NoError(t, err)
	defer primary.Close()

	good, goodMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer good.Close()
	goodMock.ExpectPing()

	bad, badMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	badMock.ExpectPing().WillReturnError(errors.New("gone"))
	badMock.ExpectClose()

	cm := &ConnectionManager{primary: primary, replicas: []*sql.DB{good, bad}}

	removed := cm.RemoveUnhealthyReplicas(context.Background())
	assert.Equal(t, 1, removed)
	assert.Len(t, cm.Stats().Replicas, 1)
	assert.Same(t, good, cm.Replica())
	assert.NoError(t, badMock.ExpectationsWereMet())
}
