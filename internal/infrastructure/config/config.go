package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 如 CHATPULSE_TELEGRAM_BOT_TOKEN
const EnvPrefix = "CHATPULSE"

var envKeyReplacer = strings.NewReplacer(".", "_")

// Config 应用配置
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Stats    StatsConfig    `mapstructure:"stats"`
}

// TelegramConfig Telegram 配置
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	Debug       bool   `mapstructure:"debug"`
	PollTimeout int    `mapstructure:"poll_timeout" validate:"gte=0,lte=600"` // seconds
	SkipPending bool   `mapstructure:"skip_pending"`

	// 群组策略
	GroupPolicy    string   `mapstructure:"group_policy" validate:"oneof=open allowlist disabled"`
	GroupAllowFrom []string `mapstructure:"group_allow_from"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type        string `mapstructure:"type" validate:"oneof=sqlite postgres"`
	DSN         string `mapstructure:"dsn" validate:"required"`
	BusyTimeout int    `mapstructure:"busy_timeout_ms" validate:"gte=0"` // sqlite only
	LogSQL      bool   `mapstructure:"log_sql"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// HTTPConfig HTTP API 配置
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Mode    string `mapstructure:"mode" validate:"oneof=debug release"`
}

// StatsConfig 统计报告配置
type StatsConfig struct {
	TopN           int           `mapstructure:"top_n" validate:"gte=1,lte=50"`
	ChartWidth     int           `mapstructure:"chart_width" validate:"gte=200,lte=4000"`
	ChartHeight    int           `mapstructure:"chart_height" validate:"gte=100,lte=4000"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// Load 加载配置
// 优先级 (低 → 高): 默认值 → ~/.chatpulse/config.yaml → ./config/config.yaml | ./config.yaml → 环境变量
func Load() (*Config, error) {
	v, err := newViper("")
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadFile loads defaults, then the given file, then the environment.
// Used by the --config flag.
func LoadFile(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch re-reads the active config file on change and hands the result to fn.
// Invalid edits are reported through onErr and otherwise ignored.
func Watch(path string, fn func(*Config), onErr func(error)) error {
	v, err := newViper(path)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return errors.New("no config file in use")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper(explicitPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", explicitPath, err)
		}
	} else {
		// Layer 1: 全局配置 ~/.chatpulse/config.yaml
		v.SetConfigName("config")
		v.AddConfigPath(HomeDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read global config: %w", err)
			}
		}

		// Layer 2: 项目本地配置, 只取第一个找到的
		for _, localDir := range []string{"./config", "."} {
			localPath := filepath.Join(localDir, "config.yaml")
			if _, err := os.Stat(localPath); err == nil {
				v.SetConfigFile(localPath)
				if err := v.MergeInConfig(); err != nil {
					return nil, fmt.Errorf("failed to merge %s: %w", localPath, err)
				}
				break
			}
		}
	}

	// 环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置取值
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.skip_pending", true)
	v.SetDefault("telegram.group_policy", "open")
	v.SetDefault("telegram.group_allow_from", []string{})

	// Database
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", filepath.Join(HomeDir(), "data", "engagement.db"))
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.log_sql", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// HTTP
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 18790)
	v.SetDefault("http.mode", "release")

	// Stats
	v.SetDefault("stats.top_n", 5)
	v.SetDefault("stats.chart_width", 1000)
	v.SetDefault("stats.chart_height", 500)
	v.SetDefault("stats.request_timeout", "15s")
}
