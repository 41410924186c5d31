package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL   string `mapstructure:"DATABASE_URL" validate:"omitempty,url"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS" validate:"min=1"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS" validate:"min=0,ltefield=DBMaxConns"`
	DBRetries     uint64 `mapstructure:"DB_RETRIES"`
	InputFile     string `mapstructure:"INPUT_FILE"`
	Port          string `mapstructure:"PORT" validate:"required,numeric"`
	MinSupport    int    `mapstructure:"MIN_SUPPORT" validate:"min=0"`
	TopN          int    `mapstructure:"TOP_N" validate:"min=1"`
	LongestStaysN int    `mapstructure:"LONGEST_STAYS_N" validate:"min=1"`
	BatchSize     int    `mapstructure:"BATCH_SIZE" validate:"min=1"`
	LogLevel      string `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogFormat     string `mapstructure:"LOG_FORMAT" validate:"oneof=console json"`
	OutputFormat  string `mapstructure:"OUTPUT_FORMAT" validate:"oneof=text csv json"`
}

var keys = []string{
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_RETRIES", "INPUT_FILE", "PORT",
	"MIN_SUPPORT", "TOP_N", "LONGEST_STAYS_N", "BATCH_SIZE",
	"LOG_LEVEL", "LOG_FORMAT", "OUTPUT_FORMAT",
}

var ErrNoDatabase = errors.New("DATABASE_URL is required")

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_RETRIES", 5)
	v.SetDefault("PORT", "8080")
	v.SetDefault("MIN_SUPPORT", 5)
	v.SetDefault("TOP_N", 10)
	v.SetDefault("LONGEST_STAYS_N", 20)
	v.SetDefault("BATCH_SIZE", 1000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("OUTPUT_FORMAT", "text")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireDatabase reports ErrNoDatabase when no DATABASE_URL is set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrNoDatabase
	}
	return nil
}
