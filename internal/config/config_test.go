package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnvVars unsets every TSPATHS_ variable for the duration of t.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TSPATHS_PROJECT", "TSPATHS_DB", "TSPATHS_DEBUG", "TSPATHS_EXTENSIONS", "TSPATHS_CACHE_SIZE", "TSPATHS_INCLUDE", "TSPATHS_EXCLUDE", "TSPATHS_CONFIG"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_DefaultValues(t *testing.T) {
	clearConfigEnvVars(t)
	dir := t.TempDir()

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Empty(t, cfg.Project)
	assert.Equal(t, filepath.Join(dir, ".tspaths", "history.db"), cfg.Database)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 4096, cfg.CacheSize)
	assert.Contains(t, cfg.Extensions, ".d.ts")
	assert.Equal(t, []string{"**/*.{ts,tsx,js,jsx,mjs,cjs}"}, cfg.Include)
	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
	assert.Empty(t, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	clearConfigEnvVars(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".tspaths.yaml"), `
project: tsconfig.build.json
db: from-file.db
cache-size: 10
include:
  - "src/**/*.ts"
`)
	t.Setenv("TSPATHS_CACHE_SIZE", "20")
	t.Setenv("TSPATHS_EXCLUDE", "a/**, b/**")

	v := viper.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyDatabase, "", "")
	flags.Bool(KeyDebug, false, "")
	require.NoError(t, v.BindPFlags(flags))
	require.NoError(t, flags.Parse([]string{"--db", "libsql://example.turso.io", "--debug"}))

	cfg, err := Load(v, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".tspaths.yaml"), cfg.File)
	assert.Equal(t, "tsconfig.build.json", cfg.Project)
	assert.Equal(t, "libsql://example.turso.io", cfg.Database)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 20, cfg.CacheSize)
	assert.Equal(t, []string{"src/**/*.ts"}, cfg.Include)
	assert.Equal(t, []string{"a/**", "b/**"}, cfg.Exclude)
}

func TestLoad_DotEnv(t *testing.T) {
	clearConfigEnvVars(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "TSPATHS_PROJECT=from-dotenv.json\nTSPATHS_DB=/tmp/abs.db\n")

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.json", cfg.Project)
	assert.Equal(t, "/tmp/abs.db", cfg.Database)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{name: "broken yaml", file: "db: [unterminated", wantErr: "reading config"},
		{name: "negative cache", file: "cache-size: -1", wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnvVars(t)
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, ".tspaths.yaml"), tt.file)

			_, err := Load(viper.New(), dir)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	clearConfigEnvVars(t)
	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.yaml")
	writeFile(t, custom, "project: custom.json\n")

	v := viper.New()
	v.Set(KeyConfig, custom)
	cfg, err := Load(v, dir)
	require.NoError(t, err)
	assert.Equal(t, "custom.json", cfg.Project)
	assert.Equal(t, custom, cfg.File)

	v = viper.New()
	v.Set(KeyConfig, filepath.Join(dir, "missing.yaml"))
	_, err = Load(v, dir)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	log := NewLogger(&buf, false)
	assert.Equal(t, logrus.InfoLevel, log.Logger.GetLevel())
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log = NewLogger(&buf, true)
	assert.Equal(t, logrus.DebugLevel, log.Logger.GetLevel())
	log.WithField("alias", "@app/*").Debug("shown")
	assert.Contains(t, buf.String(), `alias="@app/*"`)
	assert.Contains(t, buf.String(), "shown")
}
