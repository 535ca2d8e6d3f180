package fsh

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/patchkit/pkg/fileio"
)

// Backends accepted by the backend setting. "auto" uses
// [fileio.OpenFilename]; "memory" loads the whole file into a growable
// buffer.
var Backends = []string{"auto", "stream", "fd", "handle", "memory"}

// Config holds all configuration options.
type Config struct {
	// Search buffer size in bytes; 0 selects the library default.
	BufferSize int `json:"buffer_size,omitempty"`
	// Backend used to open the file. See [Backends].
	Backend string `json:"backend,omitempty"`
	// Open mode name, as printed by [fileio.OpenMode.String].
	Mode string `json:"mode,omitempty"`
	// History is the REPL history file. Empty uses ~/.fsh_history.
	History string `json:"history,omitempty"`
	// MaxMatches limits search results; negative means unlimited.
	MaxMatches *int64 `json:"max_matches,omitempty"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	unlimited := int64(-1)

	return Config{
		Backend:    "auto",
		Mode:       fileio.ModeReadWrite.String(),
		MaxMatches: &unlimited,
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".fsh.json"

// OpenMode returns the parsed Mode. Only valid after [LoadConfig].
func (c Config) OpenMode() fileio.OpenMode {
	m, _ := fileio.ParseOpenMode(c.Mode)

	return m
}

// SearchMax returns the configured match limit.
func (c Config) SearchMax() int64 {
	if c.MaxMatches == nil {
		return -1
	}

	return *c.MaxMatches
}

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/fsh/config.json if set, otherwise ~/.config/fsh/config.json.
// Returns empty string if home directory cannot be determined.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "fsh", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "fsh", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDir    string            // directory searched for the project config
	ConfigPath string            // -c/--config flag value
	Overrides  Config            // values set by flags; zero fields are ignored
	Env        map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/fsh/config.json or $XDG_CONFIG_HOME/fsh/config.json)
// 3. Project config file at default location (.fsh.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty), replacing 3
// 5. Flag overrides.
func LoadConfig(input LoadConfigInput) (Config, error) {
	cfg := DefaultConfig()

	if path := getGlobalConfigPath(input.Env); path != "" {
		globalCfg, loaded, err := loadConfigFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = mergeConfig(cfg, globalCfg)
		}
	}

	projectPath := filepath.Join(input.WorkDir, ConfigFileName)
	mustExist := false

	if input.ConfigPath != "" {
		projectPath = input.ConfigPath
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(input.WorkDir, projectPath)
		}

		mustExist = true
	}

	projectCfg, loaded, err := loadConfigFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = mergeConfig(cfg, projectCfg)
	}

	cfg = mergeConfig(cfg, input.Overrides)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadConfigFile loads a config file. If mustExist is false, a missing file
// is not an error and reports loaded=false.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.BufferSize != 0 {
		base.BufferSize = overlay.BufferSize
	}

	if overlay.Backend != "" {
		base.Backend = overlay.Backend
	}

	if overlay.Mode != "" {
		base.Mode = overlay.Mode
	}

	if overlay.History != "" {
		base.History = overlay.History
	}

	if overlay.MaxMatches != nil {
		base.MaxMatches = overlay.MaxMatches
	}

	return base
}

func validateConfig(cfg Config) error {
	if !slices.Contains(Backends, cfg.Backend) {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if _, ok := fileio.ParseOpenMode(cfg.Mode); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}

	if cfg.BufferSize < 0 {
		return ErrBufferSizeNegative
	}

	return nil
}

// FormatConfig renders cfg as indented JSON.
func FormatConfig(cfg Config) (string, error) {
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(out), nil
}
