package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"sessionlearn/internal/trigger"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	triggersKey       = "triggers"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SESSIONLEARN_"
)

// Load builds the configuration from defaults, the file at path and the
// environment, in increasing precedence.
//
// The file is parsed as YAML, which also accepts JSON, so the conventional
// config.json with its "triggers" mapping loads unchanged. A missing file
// is not an error; an unreadable, oversized or malformed one is logged and
// skipped.
//
// Environment variables drop the prefix and split on the first underscore:
//
//	SESSIONLEARN_PATTERNS_MAX_PER_RUN -> patterns.max_per_run
//	SESSIONLEARN_TIMEOUT              -> timeout
func Load(path string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	k := koanf.New(".")

	content, err := readConfigFile(path)
	switch {
	case err != nil:
		logger.Warn("ignoring config file", zap.String("path", path), zap.Error(err))
	case content != nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			logger.Warn("ignoring malformed config file", zap.String("path", path), zap.Error(err))
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	triggers := decodeTriggers(k, logger)
	k.Delete(triggersKey)

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Triggers = triggers
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// decodeTriggers decodes each trigger entry on its own. A malformed entry
// is logged and dropped so the rest of the configuration still loads.
func decodeTriggers(k *koanf.Koanf, logger *zap.Logger) map[string]trigger.Spec {
	raw, ok := k.Get(triggersKey).(map[string]interface{})
	if !ok {
		if k.Exists(triggersKey) {
			logger.Warn("ignoring triggers", zap.Error(errors.New("expected a mapping of trigger names")))
		}
		return nil
	}

	var specs map[string]trigger.Spec
	for name, v := range raw {
		var spec trigger.Spec
		var err error
		if _, ok := v.(map[string]interface{}); !ok {
			err = fmt.Errorf("expected a mapping with enabled and pattern, got %T", v)
		} else {
			err = k.Unmarshal(triggersKey+"."+name, &spec)
		}
		if err != nil {
			logger.Warn("trigger dropped", zap.String("trigger", name), zap.Error(err))
			continue
		}
		if specs == nil {
			specs = make(map[string]trigger.Spec, len(raw))
		}
		specs[name] = spec
	}
	return specs
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns nil content with no error when path is empty or
// does not exist.
func readConfigFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return io.ReadAll(f)
}
