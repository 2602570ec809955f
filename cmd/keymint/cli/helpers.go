package cli

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/keymint/keymint/internal/config"
	"github.com/keymint/keymint/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// KEYMINT_DATA_DIR env var, or ~/.keymint as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("KEYMINT_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.keymint"
}

// loadConfig builds the effective configuration: defaults, then the config
// file viper located (if any), then KEYMINT_* environment overrides for the
// store connection.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	if file := viper.ConfigFileUsed(); file != "" {
		loaded, err := config.Load(file)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Env overrides, so containers can point at a database without a file.
	if driver := viper.GetString("store.driver"); driver != "" {
		cfg.Store.Driver = driver
	}
	if dsn := viper.GetString("store.dsn"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	return cfg, nil
}

// openTokenStore opens the configured token store. The embedded sqlite
// default lives under the data directory.
func openTokenStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Store.Driver == "sqlite" && cfg.Store.DSN == "" {
		return store.OpenDefault(resolveDataDir())
	}
	return store.Open(cfg.Store.Driver, cfg.Store.DSN)
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
