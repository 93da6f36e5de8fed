package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"short-creator/internal/domain"
)

// Environment variables that override stored settings.
const (
	EnvInterpreter    = "SHORTS_INTERPRETER"
	EnvScript         = "SHORTS_SCRIPT"
	EnvResultMode     = "SHORTS_RESULT_MODE"
	EnvTimeoutSeconds = "SHORTS_TIMEOUT_SECONDS"
)

// LoadDotEnv loads a .env file from the working directory when present.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv overrides settings fields from the environment.
func ApplyEnv(cfg domain.Settings, lookup func(string) (string, bool)) (domain.Settings, error) {
	if v, ok := lookup(EnvInterpreter); ok {
		cfg.Interpreter = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvScript); ok && strings.TrimSpace(v) != "" {
		cfg.ScriptPath = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvResultMode); ok && strings.TrimSpace(v) != "" {
		mode := domain.ResultMode(strings.TrimSpace(v))
		if !mode.Valid() {
			return domain.Settings{}, fmt.Errorf("%s: unknown result mode %q", EnvResultMode, v)
		}
		cfg.ResultMode = mode
	}
	if v, ok := lookup(EnvTimeoutSeconds); ok && strings.TrimSpace(v) != "" {
		seconds, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || seconds < 0 {
			return domain.Settings{}, fmt.Errorf("%s: invalid timeout %q", EnvTimeoutSeconds, v)
		}
		cfg.TimeoutSeconds = seconds
	}
	return cfg, nil
}
