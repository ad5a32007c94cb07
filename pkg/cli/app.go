package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/config"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/observability"
	"github.com/platinummonkey/forum/pkg/rbac"
	"github.com/platinummonkey/forum/pkg/storage"
	"github.com/platinummonkey/forum/pkg/storage/sqlstore"
)

// operator is the name recorded in the audit trail for forumctl actions
const operator = "forumctl"

// app is an open database with the forum service on top of it
type app struct {
	cfg    *config.Config
	logger *observability.Logger
	cm     *storage.ConnectionManager
	store  *sqlstore.Store
	audit  audit.Logger
	svc    *forum.Service
}

// openApp loads the configuration, connects to the primary database and
// brings the schema up to date
func openApp(ctx context.Context, load Loader, logOut io.Writer) (*app, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, logOut)

	// Maintenance only talks to the primary
	storageCfg := cfg.Storage
	storageCfg.ReplicaDSNs = nil

	cm, err := storage.NewConnectionManager(storageCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := storage.RunMigrations(ctx, cm.Primary(), cm.Driver(), logger); err != nil {
		cm.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		cm:     cm,
		store:  sqlstore.NewFromManager(cm),
		audit:  audit.NewNoopLogger(),
	}
	if cfg.Audit.Enabled {
		if a.audit, err = audit.NewDBLogger(cm.Primary(), cm.Driver()); err != nil {
			cm.Close()
			return nil, err
		}
	}

	tokens, err := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, cfg.Auth.TokenIssuer)
	if err != nil {
		cm.Close()
		return nil, err
	}

	a.svc, err = forum.NewService(forum.Config{
		Store:      a.store,
		Tokens:     tokens,
		Hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Authorizer: rbac.NewEngine(cfg.RBACPolicy()),
		Audit:      a.audit,
	})
	if err != nil {
		cm.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the database connections
func (a *app) Close() error {
	return a.cm.Close()
}
