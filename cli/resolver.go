package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/cflat/log"
)

// resolve returns a [kong.ConfigurationLoader] that reads flag values from
// the mapping named section of a YAML document.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve("config"), "/path/to/config.yaml")
//
// Flag names with hyphens (e.g., "log-level") may use underscores in the
// file (e.g., "log_level"). Numbers are passed to Kong as strings and
// sequences as comma-separated lists.
//
// Example config file:
//
//	config:
//	  log-level: debug
//	  include-path: [lib, vendor/lib]
//	  cache-size: 32
//
// Command-line flags override config file values.
func resolve(section string) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if err != io.EOF {
				log.Default().Warn("configuration ignored", slog.Any("error", err))
			}

			return config{}, nil
		}

		values, ok := doc[section].(map[string]any)
		if !ok {
			return config{}, nil
		}

		cfg := make(config, len(values))
		for k, v := range values {
			cfg[k] = flagText(v)
		}

		return cfg, nil
	}
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}

// flagText converts a decoded YAML value to a form Kong parses.
func flagText(v any) any {
	switch v := v.(type) {
	case nil, bool, string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(flagText(item))
		}

		return strings.Join(items, ",")
	default:
		return fmt.Sprint(v)
	}
}
