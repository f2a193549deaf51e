package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaflow/api/internal/config"
	"ideaflow/api/internal/email"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for input, want := range cases {
		got, err := parseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	_, err := newLogger("info", "xml")
	assert.ErrorContains(t, err, "invalid log format")

	logger, err := newLogger("debug", "text")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func memoryConfig() config.Config {
	return config.Config{
		Storage:       "memory",
		JWTSecret:     "test-secret",
		BcryptCost:    4,
		Notifier:      "log",
		CORSOrigin:    "*",
		AdminEmail:    "Root@IdeaFlow.test",
		AdminPassword: "root-pass",
	}
}

func TestBuildRuntimeWithMemoryStorage(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt, err := buildRuntime(ctx, memoryConfig(), logger)
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.seedAdmin(ctx))
	require.NoError(t, rt.seedAdmin(ctx))

	seeded, err := rt.repo.GetUserByEmail(ctx, "root@ideaflow.test")
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, seeded.Role)

	handler := rt.httpServer().Handler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database"`)
}

func TestBuildRuntimeRejectsUnknownStorage(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage = "sqlite"
	_, err := buildRuntime(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, `unknown storage "sqlite"`)
}

func TestNewNotifierRequiresConfiguredSMTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := memoryConfig()

	cfg.Notifier = ""
	_, _, err := newNotifier(cfg, util.SystemClock{}, logger)
	assert.ErrorContains(t, err, "SMTP_HOST")

	cfg.Notifier = "smtp"
	cfg.SMTPHost = "smtp.example.com"
	_, _, err = newNotifier(cfg, util.SystemClock{}, logger)
	assert.ErrorContains(t, err, "SMTP_FROM")

	cfg.SMTPPort = "587"
	cfg.SMTPFrom = "noreply@ideaflow.test"
	notifier, closeNotifier, err := newNotifier(cfg, util.SystemClock{}, logger)
	require.NoError(t, err)
	defer closeNotifier()
	assert.IsType(t, &email.Service{}, notifier)

	cfg.Notifier = "log"
	notifier, _, err = newNotifier(cfg, util.SystemClock{}, logger)
	require.NoError(t, err)
	assert.IsType(t, email.LogSender{}, notifier)

	cfg.Notifier = "carrier-pigeon"
	_, _, err = newNotifier(cfg, util.SystemClock{}, logger)
	assert.ErrorContains(t, err, `unknown notifier "carrier-pigeon"`)
}

func TestBuildRuntimeFailsWithoutSMTP(t *testing.T) {
	cfg := memoryConfig()
	cfg.Notifier = "smtp"
	_, err := buildRuntime(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "smtp notifier requires")
}

func TestPruneRevocationsCommand(t *testing.T) {
	t.Setenv("IDEAFLOW_STORAGE", "memory")
	t.Setenv("IDEAFLOW_NOTIFIER", "log")
	t.Setenv("REDIS_URL", "")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--log-format", "text", "--log-level", "error", "prune-revocations"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "0 revocation(s) pruned\n", out.String())
}

func TestSeedAdminCommandRequiresCredentials(t *testing.T) {
	t.Setenv("IDEAFLOW_STORAGE", "memory")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")

	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--log-level", "error", "seed-admin"})

	assert.ErrorContains(t, cmd.Execute(), "--email and --password")
}
