package config

import (
	"github.com/caarlos0/env/v11"
)

// Config carries environment-driven defaults. CLI flags take precedence over
// everything here.
type Config struct {
	DatabaseURL string `env:"GOLDENDAVID_DB_URL"`

	FFmpegBin string `env:"GOLDENDAVID_FFMPEG"  envDefault:"ffmpeg"`
	ChromeBin string `env:"GOLDENDAVID_CHROME"`

	LogLevel string `env:"GOLDENDAVID_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
