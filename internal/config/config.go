package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jask/realcheck/internal/media"
)

// Config holds application configuration.
type Config struct {
	Inference InferenceConfig `mapstructure:"inference"`
	Media     MediaConfig     `mapstructure:"media"`
	Staging   StagingConfig   `mapstructure:"staging"`
	UI        UIConfig        `mapstructure:"ui"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// Path is the config file that was read, empty when none was found.
	Path string `mapstructure:"-"`
}

// InferenceConfig locates the classifier.
type InferenceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	ImagePath string        `mapstructure:"image_path"`
	VideoPath string        `mapstructure:"video_path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MediaConfig holds the accepted extensions per mode.
type MediaConfig struct {
	ImageExtensions []string `mapstructure:"image_extensions"`
	VideoExtensions []string `mapstructure:"video_extensions"`
	DefaultMode     string   `mapstructure:"default_mode"`
}

type StagingConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ThumbnailWidth int `mapstructure:"thumbnail_width"`
}

type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Dir is the default configuration directory.
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "realcheck")
}

// Load reads configuration from file and env. Env var overrides use prefix
// REALCHECK_. path wins over $REALCHECK_CONFIG, which wins over
// ~/.config/realcheck/config.toml. A missing default file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("inference.base_url", "http://localhost:5000")
	v.SetDefault("inference.image_path", "predict_image")
	v.SetDefault("inference.video_path", "predict_video")
	v.SetDefault("inference.timeout", "2m")
	v.SetDefault("media.image_extensions", media.DefaultImageExtensions)
	v.SetDefault("media.video_extensions", media.DefaultVideoExtensions)
	v.SetDefault("media.default_mode", "video")
	v.SetDefault("staging.timeout", "15s")
	v.SetDefault("ui.thumbnail_width", 32)
	v.SetDefault("log.path", filepath.Join(os.Getenv("HOME"), ".local", "state", "realcheck", "realcheck.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.listen", "")

	v.SetConfigType("toml")

	explicit := strings.TrimSpace(path)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv("REALCHECK_CONFIG"))
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("REALCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Path = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if _, err := c.Ruleset(); err != nil {
		return err
	}
	if _, err := media.ParseMode(c.Media.DefaultMode); err != nil {
		return fmt.Errorf("config: media.default_mode: %w", err)
	}
	if c.Staging.Timeout < 0 {
		return fmt.Errorf("config: staging.timeout must not be negative")
	}
	if c.Inference.Timeout < 0 {
		return fmt.Errorf("config: inference.timeout must not be negative")
	}
	return nil
}

// Ruleset builds the extension rules from the media section.
func (c Config) Ruleset() (media.Ruleset, error) {
	rules, err := media.NewRuleset(c.Media.ImageExtensions, c.Media.VideoExtensions)
	if err != nil {
		return media.Ruleset{}, fmt.Errorf("config: %w", err)
	}
	return rules, nil
}

// Mode is the parsed media.default_mode. Load has already validated it.
func (c Config) Mode() media.Mode {
	m, err := media.ParseMode(c.Media.DefaultMode)
	if err != nil {
		return media.Video
	}
	return m
}

// KeybindingsPath is keybindings.toml beside the config file in use.
func (c Config) KeybindingsPath() string {
	if c.Path != "" {
		return filepath.Join(filepath.Dir(c.Path), "keybindings.toml")
	}
	return filepath.Join(Dir(), "keybindings.toml")
}
