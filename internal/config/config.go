package config

import (
	"fmt"
)

type Config struct {
	Mongo      MongoConfig
	Data       DataConfig
	Log        LogConfig
	Serve      ServeConfig
	Anthropic  AnthropicConfig
	Enrichment EnrichmentConfig
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type DataConfig struct {
	File string
}

type LogConfig struct {
	Level string
	File  string
}

type ServeConfig struct {
	Port int
}

type AnthropicConfig struct {
	APIKey string
}

type EnrichmentConfig struct {
	Model    string
	MaxPages int
	Delay    string
}

func defaults() Config {
	return Config{
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017/",
			Database:   "nonprofit_jobs",
			Collection: "organizations",
		},
		Data: DataConfig{
			File: "data/publicserviceopenings.jsonl",
		},
		Log: LogConfig{
			Level: "INFO",
			File:  "logs/anajobs.log",
		},
		Serve: ServeConfig{
			Port: 4622,
		},
		Enrichment: EnrichmentConfig{
			Model:    "claude-sonnet-4-20250514",
			MaxPages: 10,
			Delay:    "5s",
		},
	}
}

// Load reads configuration in precedence order: hard-coded defaults, then the
// JSON config file (config/config.json, or the path in ANAJOBS_CONFIG), then
// ANAJOBS_* environment variables. Secrets (the Anthropic API key) are never
// read from the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	required := []struct {
		name, value string
	}{
		{"mongo.uri", cfg.Mongo.URI},
		{"mongo.database", cfg.Mongo.Database},
		{"mongo.collection", cfg.Mongo.Collection},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required config: %s. Set it via `anajobs config set %s <value>` or the matching ANAJOBS_* environment variable", r.name, r.name)
		}
	}
	return nil
}
