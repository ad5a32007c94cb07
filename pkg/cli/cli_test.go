package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/forum/pkg/audit"
	"github.com/platinummonkey/forum/pkg/auth"
	"github.com/platinummonkey/forum/pkg/config"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLoader(t *testing.T) (Loader, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "forum.db")
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.BcryptCost = 4
	cfg.Observability.LogLevel = observability.ErrorLevel
	return func() (*config.Config, error) { return cfg, nil }, cfg
}

func run(t *testing.T, load Loader, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(load)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func openTestApp(t *testing.T, load Loader) *app {
	t.Helper()
	a, err := openApp(context.Background(), load, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand(nil)
	assert.Equal(t, "forumctl", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"migrate", "create-user", "set-role", "prune"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrate(t *testing.T) {
	load, _ := testLoader(t)

	out, err := run(t, load, "", "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema is up to date (sqlite3)\n", out)

	// Migrations are idempotent
	_, err = run(t, load, "", "migrate")
	require.NoError(t, err)
}

func TestMigrate_ConfigError(t *testing.T) {
	load := func() (*config.Config, error) { return nil, errors.New("FORUM_JWT_SECRET is required") }

	_, err := run(t, load, "", "migrate")
	assert.ErrorContains(t, err, "failed to load config: FORUM_JWT_SECRET is required")
}

func TestCreateUser(t *testing.T) {
	load, _ := testLoader(t)

	out, err := run(t, load, "", "create-user", "--username", "admin", "--email", "admin@example.com",
		"--password", "secret123", "--role", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "created user admin")
	assert.Contains(t, out, "role admin")

	out, err = run(t, load, "hunter22\n", "create-user", "--username", "alice", "--email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "role user")

	a := openTestApp(t, load)
	admin, err := a.store.GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, admin.Role)

	res, err := a.svc.Login(context.Background(), forum.LoginInput{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, res.User.Role)

	searcher := a.audit.(audit.Searcher)
	events, err := searcher.Search(context.Background(), audit.SearchFilter{
		EventTypes: []audit.EventType{audit.EventTypeUserRoleChange},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "forumctl", events[0].Username)
}

func TestCreateUser_Errors(t *testing.T) {
	load, _ := testLoader(t)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{"unknown role", "", []string{"--username", "bob", "--email", "bob@example.com", "--password", "secret123", "--role", "owner"}, `unknown role "owner"`},
		{"no password", "", []string{"--username", "bob", "--email", "bob@example.com"}, "password is required"},
		{"missing email flag", "", []string{"--username", "bob", "--password", "secret123"}, `required flag(s) "email" not set`},
		{"invalid username", "", []string{"--username", "b", "--email", "bob@example.com", "--password", "secret123"}, "username must be at least 3 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, load, tt.stdin, append([]string{"create-user"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
		})
	}
}

func TestSetRole(t *testing.T) {
	load, _ := testLoader(t)
	_, err := run(t, load, "", "create-user", "--username", "alice", "--email", "alice@example.com", "--password", "secret123")
	require.NoError(t, err)

	out, err := run(t, load, "", "set-role", "alice", "moderator")
	require.NoError(t, err)
	assert.Equal(t, "changed role of alice from user to moderator\n", out)

	out, err = run(t, load, "", "set-role", "1", "moderator")
	require.NoError(t, err)
	assert.Equal(t, "alice already has role moderator\n", out)

	// Admins can be demoted from the command line
	_, err = run(t, load, "", "set-role", "alice", "admin")
	require.NoError(t, err)
	_, err = run(t, load, "", "set-role", "alice", "user")
	require.NoError(t, err)

	_, err = run(t, load, "", "set-role", "alice", "owner")
	assert.ErrorContains(t, err, `unknown role "owner"`)

	_, err = run(t, load, "", "set-role", "ghost", "admin")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, load, "", "set-role", "alice")
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	load, cfg := testLoader(t)
	_, err := run(t, load, "", "create-user", "--username", "admin", "--email", "admin@example.com",
		"--password", "secret123", "--role", "admin")
	require.NoError(t, err)

	a := openTestApp(t, load)
	ctx := context.Background()
	admin, err := a.store.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	category, err := a.svc.CreateCategory(ctx, admin.Actor(), forum.CategoryInput{Name: "General"})
	require.NoError(t, err)
	_, err = a.svc.CreateTopic(ctx, admin.Actor(), forum.TopicInput{
		Title:      "Hello World!",
		Content:    "This is the body.",
		CategoryID: category.ID,
	})
	require.NoError(t, err)

	// Nothing is a day old yet
	out, err := run(t, load, "", "prune", "--days", "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted 0 topics older than 1 days\n", out)

	_, err = run(t, load, "", "prune", "--days", "0")
	assert.ErrorContains(t, err, "--days must be positive")

	cfg.Prune.Days = 0
	out, err = run(t, load, "", "prune")
	require.NoError(t, err)
	assert.Equal(t, "auto-delete is disabled; nothing to prune\n", out)

	// Backdate the topic past the configured age
	_, err = a.cm.Primary().ExecContext(ctx, `UPDATE topics SET created_at = ?`, time.Now().UTC().AddDate(0, 0, -100))
	require.NoError(t, err)
	cfg.Prune.Days = 90
	out, err = run(t, load, "", "prune")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 topics older than 90 days\n", out)

	list, err := a.svc.ListTopics(ctx, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list.Topics)
}
