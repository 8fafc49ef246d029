package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "mongo.uri", typ: kString, env: "ANAJOBS_MONGODB_URI",
		apply:   func(cfg *Config, v any) { cfg.Mongo.URI = v.(string) },
		extract: func(cfg Config) any { return cfg.Mongo.URI },
	},
	{
		key: "mongo.database", typ: kString, env: "ANAJOBS_DATABASE_NAME",
		apply:   func(cfg *Config, v any) { cfg.Mongo.Database = v.(string) },
		extract: func(cfg Config) any { return cfg.Mongo.Database },
	},
	{
		key: "mongo.collection", typ: kString, env: "ANAJOBS_COLLECTION_NAME",
		apply:   func(cfg *Config, v any) { cfg.Mongo.Collection = v.(string) },
		extract: func(cfg Config) any { return cfg.Mongo.Collection },
	},
	{
		key: "data.file", typ: kString, env: "ANAJOBS_DATA_FILE",
		apply:   func(cfg *Config, v any) { cfg.Data.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.File },
	},
	{
		key: "log.level", typ: kString, env: "ANAJOBS_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "ANAJOBS_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
	{
		key: "serve.port", typ: kInt, env: "ANAJOBS_SERVE_PORT",
		apply:   func(cfg *Config, v any) { cfg.Serve.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Serve.Port },
	},
	{
		key: "anthropic.api_key", typ: kString, env: "ANTHROPIC_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Anthropic.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Anthropic.APIKey },
	},
	{
		key: "enrichment.model", typ: kString, env: "ANAJOBS_ENRICHMENT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Enrichment.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Enrichment.Model },
	},
	{
		key: "enrichment.max_pages", typ: kInt, env: "ANAJOBS_ENRICHMENT_MAX_PAGES",
		apply:   func(cfg *Config, v any) { cfg.Enrichment.MaxPages = v.(int) },
		extract: func(cfg Config) any { return cfg.Enrichment.MaxPages },
	},
	{
		key: "enrichment.delay", typ: kString, env: "ANAJOBS_ENRICHMENT_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Enrichment.Delay = v.(string) },
		extract: func(cfg Config) any { return cfg.Enrichment.Delay },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
