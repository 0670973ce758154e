package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AppName is the canonical application name
const AppName = "chatpulse"

// HomeDir returns the configuration home: ~/.chatpulse
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}

// Bootstrap ensures ~/.chatpulse and the sqlite data directory exist and writes
// a default config.yaml on first run. Existing files are never overwritten.
func Bootstrap(cfg *Config, logger *zap.Logger) error {
	root := HomeDir()

	dirs := []string{root}
	if cfg != nil && cfg.Database.Type == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "" && dir != "." {
			dirs = append(dirs, dir)
		}
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	path := filepath.Join(root, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		logger.Debug("chatpulse home directory OK", zap.String("home", root))
		return nil
	}

	data, err := DefaultYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		logger.Warn("Failed to write default config", zap.String("path", path), zap.Error(err))
		return nil
	}

	logger.Info("chatpulse bootstrap complete",
		zap.String("home", root),
		zap.String("config", path),
	)
	return nil
}

// DefaultYAML renders the default settings as a commented config.yaml.
func DefaultYAML() ([]byte, error) {
	v := viper.New()
	setDefaults(v)

	body, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	return append([]byte(defaultHeader), body...), nil
}

const defaultHeader = `# chatpulse configuration
# Auto-generated on first launch, feel free to edit.
# Every key can be overridden with CHATPULSE_<SECTION>_<KEY>, e.g. CHATPULSE_TELEGRAM_BOT_TOKEN.
#
# database.type:        sqlite | postgres
# telegram.group_policy: open | allowlist | disabled
# log.format:           json | console

`
