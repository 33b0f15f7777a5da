package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the tests set, restoring them afterwards
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

var envKeys = []string{
	"STOREFRONT_APP_NAME",
	"STOREFRONT_APP_ENV",
	"STOREFRONT_APP_PORT",
	"STOREFRONT_DATABASE_DRIVER",
	"STOREFRONT_DATABASE_HOST",
	"STOREFRONT_DATABASE_PORT",
	"STOREFRONT_DATABASE_PASSWORD",
	"STOREFRONT_DATABASE_SSLMODE",
	"STOREFRONT_DATABASE_SQLITE_PATH",
	"STOREFRONT_DATABASE_MAX_OPEN_CONNS",
	"STOREFRONT_DATABASE_MAX_IDLE_CONNS",
	"STOREFRONT_REDIS_ENABLED",
	"STOREFRONT_WRITER_MAX_BATCH_SIZE",
	"STOREFRONT_WRITER_IDEMPOTENCY_ENABLED",
	"STOREFRONT_WRITER_IDEMPOTENCY_TTL",
	"STOREFRONT_TELEMETRY_SAMPLING_RATIO",
	"STOREFRONT_TELEMETRY_DB_LOG_FULL_SQL",
	"STOREFRONT_TELEMETRY_PROFILING_ENABLED",
	"STOREFRONT_TELEMETRY_PROFILING_SERVER",
	"STOREFRONT_AUTH_ENABLED",
	"STOREFRONT_AUTH_SECRET",
	"STOREFRONT_ARCHIVE_ENABLED",
	"STOREFRONT_ARCHIVE_BUCKET",
	"STOREFRONT_HTTP_DOCS_ENABLED",
	"STOREFRONT_HTTP_DOCS_ALLOWED_IPS",
	"STOREFRONT_HTTP_DOCS_REQUIRE_AUTH",
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t, envKeys...)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "storefront-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "storefront", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 1000, cfg.Writer.MaxBatchSize)
		assert.False(t, cfg.Writer.IdempotencyEnabled)
		assert.Equal(t, 24*time.Hour, cfg.Writer.IdempotencyTTL)
		assert.Equal(t, "storefront:write:idempotency:", cfg.Writer.IdempotencyPrefix)
		assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	})

	t.Run("loads values from environment variables with STOREFRONT prefix", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_APP_NAME", "test-app")
		t.Setenv("STOREFRONT_APP_PORT", "9000")
		t.Setenv("STOREFRONT_DATABASE_DRIVER", "sqlite")
		t.Setenv("STOREFRONT_DATABASE_SQLITE_PATH", ":memory:")
		t.Setenv("STOREFRONT_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("STOREFRONT_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("STOREFRONT_REDIS_ENABLED", "true")
		t.Setenv("STOREFRONT_WRITER_MAX_BATCH_SIZE", "25")
		t.Setenv("STOREFRONT_WRITER_IDEMPOTENCY_ENABLED", "true")
		t.Setenv("STOREFRONT_WRITER_IDEMPOTENCY_TTL", "1h")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 25, cfg.Writer.MaxBatchSize)
		assert.True(t, cfg.Writer.IdempotencyEnabled)
		assert.Equal(t, time.Hour, cfg.Writer.IdempotencyTTL)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("STOREFRONT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates sampling ratio range", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("rejects negative batch size", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_WRITER_MAX_BATCH_SIZE", "-5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writer.max_batch_size")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_APP_ENV", "production")
		t.Setenv("STOREFRONT_DATABASE_PASSWORD", "secure-password")
		t.Setenv("STOREFRONT_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("STOREFRONT_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("STOREFRONT_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("STOREFRONT_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("STOREFRONT_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestLoad_Profiling(t *testing.T) {
	t.Run("requires a server when profiling is enabled", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_TELEMETRY_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profiling_server")
	})

	t.Run("reads the profiling server", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_TELEMETRY_PROFILING_ENABLED", "true")
		t.Setenv("STOREFRONT_TELEMETRY_PROFILING_SERVER", "http://pyroscope:4040")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, "http://pyroscope:4040", cfg.Telemetry.ProfilingServer)
	})
}

func TestLoad_Auth(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t, envKeys...)

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Auth.Enabled)
		assert.Equal(t, "storefront-backend", cfg.Auth.Issuer)
		assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenExpiration)
	})

	t.Run("rejects a short secret", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_AUTH_ENABLED", "true")
		t.Setenv("STOREFRONT_AUTH_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.secret")
	})

	t.Run("accepts a long secret", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_AUTH_ENABLED", "true")
		t.Setenv("STOREFRONT_AUTH_SECRET", "0123456789abcdef0123456789abcdef")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Auth.Enabled)
	})
}

func TestLoad_APIDocs(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		clearEnv(t, envKeys...)

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.HTTP.DocsEnabled)
		assert.Empty(t, cfg.HTTP.DocsAllowedIPs)
	})

	t.Run("enabled with an allowlist", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_HTTP_DOCS_ENABLED", "true")
		t.Setenv("STOREFRONT_HTTP_DOCS_ALLOWED_IPS", "10.0.0.0/8 127.0.0.1")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.HTTP.DocsEnabled)
		assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.HTTP.DocsAllowedIPs)
	})

	t.Run("auth requirement needs auth enabled", func(t *testing.T) {
		clearEnv(t, envKeys...)
		t.Setenv("STOREFRONT_HTTP_DOCS_REQUIRE_AUTH", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http.docs_require_auth")
	})
}

func TestLoad_Archive(t *testing.T) {
	clearEnv(t, envKeys...)
	t.Setenv("STOREFRONT_ARCHIVE_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive.bucket")

	t.Setenv("STOREFRONT_ARCHIVE_BUCKET", "storefront-writes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "storefront-writes", cfg.Archive.Bucket)
	assert.Equal(t, "us-east-1", cfg.Archive.Region)
	assert.Equal(t, "written", cfg.Archive.Prefix)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t, envKeys...)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
name = "file-app"

[database]
driver = "sqlite"
sqlite_path = "file.db"

[writer]
max_batch_size = 10
idempotency_enabled = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Run("reads the file", func(t *testing.T) {
		cfg, err := LoadFile(path)
		require.NoError(t, err)

		assert.Equal(t, "file-app", cfg.App.Name)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, "file.db", cfg.Database.DSN())
		assert.Equal(t, 10, cfg.Writer.MaxBatchSize)
		assert.True(t, cfg.Writer.IdempotencyEnabled)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("STOREFRONT_WRITER_MAX_BATCH_SIZE", "3")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Writer.MaxBatchSize)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite uses the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: DriverSQLite, SQLitePath: "/tmp/store.db"}
		assert.Equal(t, "/tmp/store.db", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
