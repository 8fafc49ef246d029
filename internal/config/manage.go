package config

import (
	"fmt"
	"os"
	"strconv"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all non-secret config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey writes a config key to the config file.
func SetKey(key, value string) error {
	return setKey(newFileBackend(configFilePath()), key, value)
}

func setKey(b Backend, key, value string) error {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return fmt.Errorf("cannot set secret %q via config file; use environment variable %s", key, s.env)
		}
		switch s.typ {
		case kString:
			return b.SetString(key, value)
		case kInt:
			i, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %w", key, err)
			}
			return b.SetInt(key, i)
		}
	}

	return fmt.Errorf("unknown config key: %q", key)
}

// WriteDefaults creates the config file populated with default values. It
// refuses to overwrite an existing file.
func WriteDefaults() (string, error) {
	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	}

	b := newFileBackend(path)
	cfg := defaults()
	for _, s := range specs {
		if s.secret {
			continue
		}
		var err error
		switch s.typ {
		case kString:
			err = b.SetString(s.key, s.extract(cfg).(string))
		case kInt:
			err = b.SetInt(s.key, s.extract(cfg).(int))
		}
		if err != nil {
			return path, err
		}
	}
	return path, nil
}
