package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_PORT", "LOG_LEVEL", "DB_TYPE", "POSTGRES_URL", "MIGRATIONS_PATH",
		"RECEIPT_LOCATION_COLUMN", "MONGO_URL", "MONGO_DB_NAME", "PDF_TEMPLATE_PATH",
		"R2_ACCOUNT_ID", "R2_BUCKET", "R2_PUBLIC_URL", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DBTypeMemory, cfg.DBType)
	assert.Equal(t, LocationColumnAuto, cfg.LocationColumn)
	assert.Equal(t, "file://db/migrations", cfg.MigrationsPath)
	assert.Equal(t, "wms_inbound", cfg.Mongo.DBName)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that already exist, even empty ones.
	for _, k := range []string{"APP_PORT", "DB_TYPE", "POSTGRES_URL"} {
		require.NoError(t, os.Unsetenv(k))
	}
	t.Cleanup(func() {
		for _, k := range []string{"APP_PORT", "DB_TYPE", "POSTGRES_URL"} {
			_ = os.Unsetenv(k)
		}
	})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=9090\nDB_TYPE=postgres\nPOSTGRES_URL=postgres://localhost/wms\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/wms", cfg.PostgresURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"postgres without url", Config{Port: "8080", DBType: DBTypePostgres, LocationColumn: LocationColumnAuto}, "POSTGRES_URL"},
		{"unknown db", Config{Port: "8080", DBType: "mysql", LocationColumn: LocationColumnAuto}, "not supported"},
		{"bad location mode", Config{Port: "8080", DBType: DBTypeMemory, LocationColumn: "maybe"}, "RECEIPT_LOCATION_COLUMN"},
		{"missing port", Config{DBType: DBTypeMemory, LocationColumn: LocationColumnOff}, "APP_PORT"},
		{"ok", Config{Port: "8080", DBType: DBTypeMemory, LocationColumn: LocationColumnOn}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestR2Enabled(t *testing.T) {
	r2 := R2Config{AccountID: "a", Bucket: "b", PublicURL: "https://p", AccessKeyID: "k", SecretAccessKey: "s"}
	assert.True(t, r2.Enabled())
	r2.SecretAccessKey = ""
	assert.False(t, r2.Enabled())
}
