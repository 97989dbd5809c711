package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appName   = "mistral-ocr"
	envPrefix = "MISTRAL_OCR"
)

type Config struct {
	Mistral MistralConfig `mapstructure:"mistral" toml:"mistral"`
	Output  OutputConfig  `mapstructure:"output" toml:"output"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

type MistralConfig struct {
	APIKey             string `mapstructure:"api_key" toml:"api_key"`
	Model              string `mapstructure:"model" toml:"model" validate:"required"`
	BaseURL            string `mapstructure:"base_url" toml:"base_url" validate:"required,url"`
	Timeout            int    `mapstructure:"timeout" toml:"timeout" validate:"gte=0"`
	IncludeImageBase64 bool   `mapstructure:"include_image_base64" toml:"include_image_base64"`
	MaxImageDimension  int    `mapstructure:"max_image_dimension" toml:"max_image_dimension" validate:"gte=0"`
}

type OutputConfig struct {
	Dir            string `mapstructure:"dir" toml:"dir"`
	Format         string `mapstructure:"format" toml:"format" validate:"oneof=markdown text"`
	MetadataFormat string `mapstructure:"metadata_format" toml:"metadata_format" validate:"oneof=json yaml"`
	LineWidth      int    `mapstructure:"line_width" toml:"line_width" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" toml:"level" validate:"oneof=debug info warn error"`
}

func Default() *Config {
	return &Config{
		Mistral: MistralConfig{
			APIKey:             "",
			Model:              "mistral-ocr-latest",
			BaseURL:            "https://api.mistral.ai",
			Timeout:            120,
			IncludeImageBase64: false,
			MaxImageDimension:  0,
		},
		Output: OutputConfig{
			Dir:            ".",
			Format:         "markdown",
			MetadataFormat: "json",
			LineWidth:      0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/mistral-ocr/config.toml, or "" when
// no home directory can be found.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.toml")
}

// Load reads configuration from configFile, or from the default location when
// configFile is empty. A missing default file is not an error. Values from a
// .env file in the working directory and MISTRAL_OCR_* variables override the
// file.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setDefaults registers every key so environment variables can override
// values that are absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("mistral.api_key", cfg.Mistral.APIKey)
	v.SetDefault("mistral.model", cfg.Mistral.Model)
	v.SetDefault("mistral.base_url", cfg.Mistral.BaseURL)
	v.SetDefault("mistral.timeout", cfg.Mistral.Timeout)
	v.SetDefault("mistral.include_image_base64", cfg.Mistral.IncludeImageBase64)
	v.SetDefault("mistral.max_image_dimension", cfg.Mistral.MaxImageDimension)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.metadata_format", cfg.Output.MetadataFormat)
	v.SetDefault("output.line_width", cfg.Output.LineWidth)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# mistral-ocr configuration file

[mistral]
# API key (empty = read MISTRAL_API_KEY from the environment or .env)
api_key = ""
model = "mistral-ocr-latest"
base_url = "https://api.mistral.ai"
timeout = 120                 # seconds per HTTP request

# Return base64 page images in the OCR response (increases cost)
include_image_base64 = false

# Downscale images larger than this many pixels on either side before upload
max_image_dimension = 0       # 0 = send images unchanged

[output]
dir = "."                     # where <name>.ocr.md and <name>.ocr.json are written
format = "markdown"           # markdown, text
metadata_format = "json"      # json, yaml
line_width = 0                # wrap width for text output (0 = unlimited)

[logging]
level = "info"                # debug, info, warn, error
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
