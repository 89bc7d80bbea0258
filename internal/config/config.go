package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/socialchef/recipebot/internal/errors"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	TelegramBotToken string
	BotDebug         bool

	EdamamAppID   string
	EdamamAppKey  string
	EdamamBaseURL string

	RedisURL string

	WebhookURL    string
	WebhookSecret string

	OtelExporterOTLPEndpoint string
	SentryDSN                string

	Port string

	Bot         BotConfig
	Translation TranslationConfig
}

type BotConfig struct {
	Locale    string `yaml:"locale"`
	MenuStyle string `yaml:"menu_style"`
}

type TranslationConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Source  string `yaml:"source"`
	Target  string `yaml:"target"`
	BaseURL string `yaml:"base_url"`
	Email   string `yaml:"email"`
}

// IsEnabled reports whether ingredient lines should be translated.
func (t TranslationConfig) IsEnabled() bool {
	return t.Enabled != nil && *t.Enabled
}

func Load() (*Config, error) {
	return load(true)
}

func load(requireToken bool) (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		TelegramBotToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		EdamamAppID:              os.Getenv("EDAMAM_APP_ID"),
		EdamamAppKey:             os.Getenv("EDAMAM_APP_KEY"),
		EdamamBaseURL:            os.Getenv("EDAMAM_BASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		WebhookURL:               os.Getenv("WEBHOOK_URL"),
		WebhookSecret:            os.Getenv("WEBHOOK_SECRET"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		Bot: BotConfig{
			Locale:    os.Getenv("BOT_LOCALE"),
			MenuStyle: os.Getenv("BOT_MENU_STYLE"),
		},
		Translation: TranslationConfig{
			Source:  os.Getenv("TRANSLATION_SOURCE"),
			Target:  os.Getenv("TRANSLATION_TARGET"),
			BaseURL: os.Getenv("TRANSLATION_BASE_URL"),
			Email:   os.Getenv("TRANSLATION_EMAIL"),
		},
	}

	cfg.BotDebug, _ = strconv.ParseBool(os.Getenv("BOT_DEBUG"))

	if v := os.Getenv("TRANSLATION_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRANSLATION_ENABLED %q: %w", v, err)
		}
		cfg.Translation.Enabled = &enabled
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "recipebot"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.EdamamBaseURL == "" {
		cfg.EdamamBaseURL = "https://api.edamam.com/search"
	}

	cfg.SetBotDefaults()
	cfg.SetTranslationDefaults()

	if requireToken && cfg.TelegramBotToken == "" {
		return nil, errors.NewConfigError("TELEGRAM_BOT_TOKEN is required", "MISSING_TELEGRAM_BOT_TOKEN")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromYAML overlays the bot and translation sections of a YAML file.
// Values already set from the environment win over the file.
func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Bot         BotConfig         `yaml:"bot"`
		Translation TranslationConfig `yaml:"translation"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if c.Bot.Locale == "" {
		c.Bot.Locale = yamlConfig.Bot.Locale
	}
	if c.Bot.MenuStyle == "" {
		c.Bot.MenuStyle = yamlConfig.Bot.MenuStyle
	}
	if c.Translation.Enabled == nil {
		c.Translation.Enabled = yamlConfig.Translation.Enabled
	}
	if c.Translation.Source == "" {
		c.Translation.Source = yamlConfig.Translation.Source
	}
	if c.Translation.Target == "" {
		c.Translation.Target = yamlConfig.Translation.Target
	}
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = yamlConfig.Translation.BaseURL
	}
	if c.Translation.Email == "" {
		c.Translation.Email = yamlConfig.Translation.Email
	}

	return nil
}

func (c *Config) SetBotDefaults() {
	c.Bot.Locale = strings.ToLower(c.Bot.Locale)
	if c.Bot.Locale == "" {
		c.Bot.Locale = "en"
	}
	c.Bot.MenuStyle = strings.ToLower(c.Bot.MenuStyle)
	if c.Bot.MenuStyle == "" {
		// The Russian bot always used inline buttons, the English one a reply keyboard.
		if c.Bot.Locale == "ru" {
			c.Bot.MenuStyle = "inline"
		} else {
			c.Bot.MenuStyle = "reply"
		}
	}
}

func (c *Config) SetTranslationDefaults() {
	if c.Translation.Source == "" {
		c.Translation.Source = "en"
	}
	if c.Translation.Target == "" {
		c.Translation.Target = "ru"
	}
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = "https://api.mymemory.translated.net/get"
	}
	if c.Translation.Enabled == nil {
		enabled := c.Bot.Locale == c.Translation.Target
		c.Translation.Enabled = &enabled
	}
}

func (c *Config) validate() error {
	if c.EdamamAppID == "" {
		return errors.NewConfigError("EDAMAM_APP_ID is required", "MISSING_EDAMAM_APP_ID")
	}
	if c.EdamamAppKey == "" {
		return errors.NewConfigError("EDAMAM_APP_KEY is required", "MISSING_EDAMAM_APP_KEY")
	}
	switch c.Bot.Locale {
	case "en", "ru":
	default:
		return errors.NewConfigError(fmt.Sprintf("unsupported BOT_LOCALE %q", c.Bot.Locale), "INVALID_BOT_LOCALE")
	}
	switch c.Bot.MenuStyle {
	case "reply", "inline":
	default:
		return errors.NewConfigError(fmt.Sprintf("unsupported BOT_MENU_STYLE %q", c.Bot.MenuStyle), "INVALID_BOT_MENU_STYLE")
	}
	for _, code := range []string{c.Translation.Source, c.Translation.Target} {
		if _, err := language.Parse(code); err != nil {
			return errors.NewConfigError(fmt.Sprintf("invalid translation language %q: %v", code, err), "INVALID_TRANSLATION_LANGUAGE")
		}
	}
	if c.Translation.Source == c.Translation.Target {
		return errors.NewConfigError("translation source and target must differ", "INVALID_TRANSLATION_PAIR")
	}
	return nil
}

// LoadForLookup loads the configuration needed to call the recipe and
// translation APIs without running a bot, so TELEGRAM_BOT_TOKEN may be empty.
func LoadForLookup() (*Config, error) {
	return load(false)
}
