package config

import (
	"os"
	"path/filepath"

	"short-creator/internal/domain"
)

const (
	// DefaultInterpreter runs the short-creation script.
	DefaultInterpreter = "python"
	// DefaultScriptPath is resolved relative to the working directory.
	DefaultScriptPath = "electron_short_creation.py"
	// DefaultSegmentDuration is the initial slider position in seconds.
	DefaultSegmentDuration = 60
	// DefaultWorkerCount is the initial number of simultaneous videos.
	DefaultWorkerCount = 4
)

// AppDir returns the per-user directory holding settings and logs.
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".short-creator")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		Interpreter:     DefaultInterpreter,
		ScriptPath:      DefaultScriptPath,
		OutputDir:       filepath.Join(homeDir, "Videos", "Shorts"),
		SegmentDuration: DefaultSegmentDuration,
		WorkerCount:     DefaultWorkerCount,
		ResultMode:      domain.ResultModeFirstOutput,
	}
}

// Normalize fills zero values with defaults so older settings files keep working.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()
	if cfg.ScriptPath == "" {
		cfg.ScriptPath = defaults.ScriptPath
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = defaults.SegmentDuration
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if !cfg.ResultMode.Valid() {
		cfg.ResultMode = defaults.ResultMode
	}
	if cfg.TimeoutSeconds < 0 {
		cfg.TimeoutSeconds = 0
	}
	return cfg
}
