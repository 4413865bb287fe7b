package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	// EnvPrefix prefixes every environment override, e.g. FOLKOMATIC_CHAT_BOT_TOKEN.
	EnvPrefix = "FOLKOMATIC_"
	// EnvConfigPath selects an explicit settings file.
	EnvConfigPath = EnvPrefix + "CONFIG"

	DefaultPath = "settings.toml"
)

//go:embed template.toml
var template []byte

// Config is the resolved, read-only settings snapshot. It is loaded once and
// handed to every component at construction.
type Config struct {
	Chat     ChatConfig     `koanf:"chat"`
	URL      URLConfig      `koanf:"url"`
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Log      LogConfig      `koanf:"log"`
}

type ChatConfig struct {
	BotToken        string `koanf:"bot_token"`
	APIURL          string `koanf:"api_url"`
	GalleryChannel  string `koanf:"gallery_channel"`
	NewsChannel     string `koanf:"news_channel"`
	StatusChannel   string `koanf:"status_channel"`
	StatusMessageID int    `koanf:"status_message_id"`
	DelaySeconds    int    `koanf:"delay_seconds"`
}

type URLConfig struct {
	GalleryURLs []string `koanf:"gallery_urls"`
	NewsURL     string   `koanf:"news_url"`
	StatusURL   string   `koanf:"status_url"`
	PledgeURL   string   `koanf:"pledge_url"`
	AgeGateURL  string   `koanf:"age_gate_url"`
}

type DatabaseConfig struct {
	Path  string `koanf:"path"`
	Table string `koanf:"table"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	File  string `koanf:"file"`
	Level string `koanf:"level"`
}

// Delay is the sleep between two delivery cycles.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Chat.DelaySeconds) * time.Second
}

// LogLevel parses Log.Level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load resolves the settings file, applies environment overrides and
// defaults, and validates the result. When no settings file exists a template
// is written next to the expected path and ErrConfigMissing is returned, so
// the operator can fill it in before the next start.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = []string{DefaultPath, "settings.yaml", "settings.yml", "settings.json"}
	}

	configFile, found := lo.Find(candidates, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})
	if !found {
		target := candidates[0]
		if err := WriteTemplate(target); err != nil {
			return nil, oops.With("config_file", target).Wrap(err)
		}
		return nil, oops.
			With("config_file", target).
			Hint("a settings template was created, fill it in and restart").
			Wrapf(errors.ErrConfigMissing, "settings file not found")
	}

	k := koanf.New(".")

	parser, err := parserFor(configFile)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return nil, oops.With("config_file", configFile).Wrap(err)
	}

	// FOLKOMATIC_CHAT_BOT_TOKEN -> chat.bot_token
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config", "config_file", configFile).Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, oops.With("config_file", configFile).Wrap(err)
	}

	return &cfg, nil
}

// Validate rejects empty required keys and untouched template placeholders.
func (c *Config) Validate() error {
	required := map[string]string{
		"chat.bot_token":      c.Chat.BotToken,
		"chat.news_channel":   c.Chat.NewsChannel,
		"chat.status_channel": c.Chat.StatusChannel,
		"url.news_url":        c.URL.NewsURL,
		"url.status_url":      c.URL.StatusURL,
	}

	missing := lo.Filter(lo.Keys(required), func(key string, _ int) bool {
		return isPlaceholder(required[key])
	})
	if len(missing) > 0 {
		return oops.With("keys", missing).Wrapf(errors.ErrConfigMissing, "required settings are not filled in")
	}

	if c.Chat.DelaySeconds <= 0 {
		return oops.With("delay_seconds", c.Chat.DelaySeconds).Errorf("delay must be positive")
	}
	return nil
}

// WriteTemplate writes the settings template to path, creating parent
// directories as needed. Existing files are never overwritten.
func WriteTemplate(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return oops.With("dir", dir, "context", "failed to create config directory").Wrap(err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return oops.With("context", "failed to create settings template").Wrap(err)
	}
	defer f.Close()

	if _, err := f.Write(template); err != nil {
		return oops.With("context", "failed to write settings template").Wrap(err)
	}
	slog.Warn("Settings file created, please fill it in", "path", path)
	return nil
}

func parserFor(configFile string) (koanf.Parser, error) {
	switch ext := filepath.Ext(configFile); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml", ".ini":
		return toml.Parser(), nil
	default:
		return nil, oops.Errorf("unsupported config file extension: %s", ext)
	}
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"chat.delay_seconds": 3600,
		"chat.api_url":       "https://api.telegram.org",
		"url.gallery_urls": []string{
			"https://www.deviantart.com/tag/sexycosplay?offset=%d",
			"https://www.deviantart.com/tag/cosplayfemale?offset=%d",
		},
		"url.age_gate_url": "https://www.elderscrollsonline.com/en-gb/agegate",
		"database.path":    "db.sqlite",
		"database.table":   "TESO",
		"http.addr":        ":8080",
		"log.level":        "info",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || (strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">"))
}
