package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prokemal2012/Filx/internal/config"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/web"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FILX_CONFIG", "")
	t.Setenv("FILX_LOGGING__LEVEL", "error")
	return dir
}

func TestTokenCommand(t *testing.T) {
	isolate(t)
	t.Setenv("FILX_AUTH__JWT_SECRET", testSecret)

	out, err := execute(t, "token", "--user", "u1", "--name", "Alice")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	tokens, err := web.NewTokenManager(cfg.Auth)
	require.NoError(t, err)

	claims, err := tokens.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
}

func TestTokenCommandErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "token", "--user", "u1")
	assert.Error(t, err, "no secret configured")

	t.Setenv("FILX_AUTH__JWT_SECRET", testSecret)
	_, err = execute(t, "token")
	assert.ErrorContains(t, err, "--user is required")
}

func TestReindexAndStats(t *testing.T) {
	dir := isolate(t)
	dataDir := filepath.Join(dir, "data")

	cfg := config.Default()
	cfg.Storage.DataDir = dataDir
	app, err := openApp(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, app.store.UpsertUser(ctx, models.User{ID: "u1", Name: "Alice", CreatedAt: now}))
	for _, d := range []models.Document{
		{ID: "d1", UserID: "u1", Title: "Quantum notes", IsPublic: true, CreatedAt: now, UpdatedAt: now},
		{ID: "d2", UserID: "u1", Title: "Draft", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, app.store.UpsertDocument(ctx, d))
	}
	_, err = app.store.ToggleInteraction(ctx, models.Interaction{
		ID: "i1", UserID: "u1", TargetID: "d1", TargetType: models.TargetDocument,
		Type: models.InteractionLike, Timestamp: now,
	})
	require.NoError(t, err)
	require.NoError(t, app.Close())

	out, err := execute(t, "--data-dir", dataDir, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "New:       2")

	out, err = execute(t, "--data-dir", dataDir, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped:   2")

	out, err = execute(t, "--data-dir", dataDir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:         2 (1 public)")
	assert.Contains(t, out, "Documents indexed: 2")
	assert.Contains(t, out, "Users:             1")
	assert.Contains(t, out, "likes:             1")
}

func TestTrendingMemoryDriver(t *testing.T) {
	isolate(t)
	t.Setenv("FILX_STORAGE__DRIVER", "memory")

	out, err := execute(t, "trending", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
}
