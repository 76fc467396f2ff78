package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCleanEnv unsets the given variables for the duration of the test
func withCleanEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

var trackedEnv = []string{
	"LEDGER_APP_NAME",
	"LEDGER_APP_ENV",
	"LEDGER_APP_PORT",
	"LEDGER_DATABASE_HOST",
	"LEDGER_DATABASE_PORT",
	"LEDGER_DATABASE_PASSWORD",
	"LEDGER_DATABASE_SSLMODE",
	"LEDGER_DATABASE_MAX_OPEN_CONNS",
	"LEDGER_DATABASE_MAX_IDLE_CONNS",
	"LEDGER_JWT_SECRET",
	"LEDGER_LEDGER_CURRENCY",
	"LEDGER_LEDGER_MAX_CONFLICT_RETRIES",
	"LEDGER_LEDGER_DEFAULT_LATE_FEE_RATE",
	"LEDGER_LEDGER_IDEMPOTENCY_TTL",
	"LEDGER_SCHEDULER_ENABLED",
	"LEDGER_SCHEDULER_SWEEP_INTERVAL",
	"LEDGER_SCHEDULER_BATCH_SIZE",
	"LEDGER_STORAGE_ENABLED",
	"LEDGER_STORAGE_ACCESS_KEY",
	"LEDGER_STORAGE_SECRET_KEY",
	"LEDGER_HTTP_CORS_ALLOW_ORIGINS",
	"LEDGER_TELEMETRY_SAMPLING_RATIO",
	"LEDGER_TELEMETRY_DB_LOG_FULL_SQL",
}

func TestLoad_Defaults(t *testing.T) {
	withCleanEnv(t, trackedEnv...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "investment-ledger", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "ledger", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)

	assert.Equal(t, "IDR", cfg.Ledger.Currency)
	assert.Equal(t, 3, cfg.Ledger.MaxConflictRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.Equal(t, 72*time.Hour, cfg.Ledger.IdempotencyTTL)
	assert.Equal(t, 5.0, cfg.Ledger.DefaultLateFeeRate)
	assert.Equal(t, 7, cfg.Ledger.DefaultGracePeriodDays)

	assert.Equal(t, time.Hour, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
	assert.Equal(t, "investment-ledger", cfg.Telemetry.ServiceName)

	// Redis stays disabled until a host is configured
	assert.Empty(t, cfg.Redis.Host)
	assert.Zero(t, cfg.Redis.Port)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	withCleanEnv(t, trackedEnv...)
	os.Setenv("LEDGER_APP_NAME", "ledger-test")
	os.Setenv("LEDGER_DATABASE_HOST", "db.internal")
	os.Setenv("LEDGER_DATABASE_PORT", "5433")
	os.Setenv("LEDGER_LEDGER_CURRENCY", "usd")
	os.Setenv("LEDGER_LEDGER_MAX_CONFLICT_RETRIES", "5")
	os.Setenv("LEDGER_LEDGER_DEFAULT_LATE_FEE_RATE", "2.5")
	os.Setenv("LEDGER_LEDGER_IDEMPOTENCY_TTL", "24h")
	os.Setenv("LEDGER_SCHEDULER_ENABLED", "true")
	os.Setenv("LEDGER_SCHEDULER_SWEEP_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ledger-test", cfg.App.Name)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "USD", cfg.Ledger.Currency)
	assert.Equal(t, 5, cfg.Ledger.MaxConflictRetries)
	assert.Equal(t, 2.5, cfg.Ledger.DefaultLateFeeRate)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.IdempotencyTTL)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, "ledger-test", cfg.Telemetry.ServiceName)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "idle conns above open conns",
			env:     map[string]string{"LEDGER_DATABASE_MAX_OPEN_CONNS": "10", "LEDGER_DATABASE_MAX_IDLE_CONNS": "20"},
			wantErr: "cannot exceed",
		},
		{
			name:    "negative idle conns",
			env:     map[string]string{"LEDGER_DATABASE_MAX_IDLE_CONNS": "-1"},
			wantErr: "max_idle_conns cannot be negative",
		},
		{
			name:    "unknown currency",
			env:     map[string]string{"LEDGER_LEDGER_CURRENCY": "XYZ"},
			wantErr: `ledger.currency: unsupported currency "XYZ"`,
		},
		{
			name:    "negative conflict retries",
			env:     map[string]string{"LEDGER_LEDGER_MAX_CONFLICT_RETRIES": "-1"},
			wantErr: "max_conflict_retries cannot be negative",
		},
		{
			name:    "late fee rate above 100",
			env:     map[string]string{"LEDGER_LEDGER_DEFAULT_LATE_FEE_RATE": "150"},
			wantErr: "default_late_fee_rate must be between 0 and 100",
		},
		{
			name:    "negative batch size",
			env:     map[string]string{"LEDGER_SCHEDULER_BATCH_SIZE": "-5"},
			wantErr: "scheduler.batch_size must be positive",
		},
		{
			name:    "storage enabled without credentials",
			env:     map[string]string{"LEDGER_STORAGE_ENABLED": "true"},
			wantErr: "storage.access_key and storage.secret_key are required",
		},
		{
			name:    "sampling ratio out of range",
			env:     map[string]string{"LEDGER_TELEMETRY_SAMPLING_RATIO": "1.5"},
			wantErr: "telemetry.sampling_ratio must be between 0.0 and 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withCleanEnv(t, trackedEnv...)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("LEDGER_APP_ENV", "production")
		os.Setenv("LEDGER_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("LEDGER_DATABASE_PASSWORD", "secure-password")
		os.Setenv("LEDGER_DATABASE_SSLMODE", "require")
	}

	t.Run("passes with valid production config", func(t *testing.T) {
		withCleanEnv(t, trackedEnv...)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires a long jwt secret", func(t *testing.T) {
		withCleanEnv(t, trackedEnv...)
		setValidProductionBase()
		os.Setenv("LEDGER_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database password", func(t *testing.T) {
		withCleanEnv(t, trackedEnv...)
		setValidProductionBase()
		os.Unsetenv("LEDGER_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("rejects disabled ssl", func(t *testing.T) {
		withCleanEnv(t, trackedEnv...)
		setValidProductionBase()
		os.Setenv("LEDGER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects wildcard cors origin", func(t *testing.T) {
		withCleanEnv(t, trackedEnv...)
		setValidProductionBase()
		os.Setenv("LEDGER_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins cannot be '*'")
	})

	t.Run("rejects full sql logging", func(t *testing.T) {
		withCleanEnv(t, trackedEnv...)
		setValidProductionBase()
		os.Setenv("LEDGER_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql must be false in production")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
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
		assert.Contains(t, dsn, "/testdb")
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
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
