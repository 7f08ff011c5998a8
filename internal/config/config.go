package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys shared by flags, environment variables (TSPATHS_ prefix, dashes as
// underscores) and .tspaths.yaml.
const (
	KeyProject    = "project"
	KeyDatabase   = "db"
	KeyDebug      = "debug"
	KeyExtensions = "extensions"
	KeyCacheSize  = "cache-size"
	KeyInclude    = "include"
	KeyExclude    = "exclude"
	KeyConfig     = "config"

	EnvPrefix = "TSPATHS"
	FileName  = ".tspaths"
)

// Config holds the application's configuration.
type Config struct {
	Dir        string
	Project    string
	Database   string
	Debug      bool
	Extensions []string
	CacheSize  int
	Include    []string
	Exclude    []string
	// File is the config file that was read, if any.
	File string
}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyProject, "")
	v.SetDefault(KeyDatabase, filepath.Join(".tspaths", "history.db"))
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyExtensions, []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".json"})
	v.SetDefault(KeyCacheSize, 4096)
	v.SetDefault(KeyInclude, []string{"**/*.{ts,tsx,js,jsx,mjs,cjs}"})
	v.SetDefault(KeyExclude, []string{"**/node_modules/**", "**/*.d.ts", "**/dist/**"})
}

// Load reads .env and .tspaths.yaml from dir and merges them with the
// environment and whatever flags were bound to v. Flags win over the
// environment, which wins over the file.
func Load(v *viper.Viper, dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(filepath.Join(abs, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(abs)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Dir:        abs,
		Project:    v.GetString(KeyProject),
		Database:   v.GetString(KeyDatabase),
		Debug:      v.GetBool(KeyDebug),
		Extensions: list(v.GetStringSlice(KeyExtensions)),
		CacheSize:  v.GetInt(KeyCacheSize),
		Include:    list(v.GetStringSlice(KeyInclude)),
		Exclude:    list(v.GetStringSlice(KeyExclude)),
		File:       v.ConfigFileUsed(),
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d", KeyCacheSize, cfg.CacheSize)
	}
	if cfg.Database != "" && !isURL(cfg.Database) && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(abs, cfg.Database)
	}
	return cfg, nil
}

// list accepts comma separated values too, as environment variables tend to
// carry them.
func list(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isURL(dsn string) bool {
	return strings.HasPrefix(dsn, "http://") || strings.HasPrefix(dsn, "https://") || strings.HasPrefix(dsn, "libsql://")
}

