// Package config manages shaderdex configuration loading and validation.
//
// Configuration is resolved in layers: built-in defaults, then the user
// config file (~/.config/shaderdex/config.yaml), then a project-local
// .shaderdex.yaml, then SHADERDEX_* environment variables. Later layers
// override earlier ones field by field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
)

// Version is the current config schema version.
const Version = 1

// CacheDirName is the directory created under the corpus root for
// derived artifacts (index blob, telemetry database).
const CacheDirName = ".shaderdex"

// ProjectConfigName is the canonical project config file name. A .yml
// variant is also accepted on discovery.
const ProjectConfigName = ".shaderdex.yaml"

// Config holds all shaderdex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Corpus    CorpusConfig    `yaml:"corpus" json:"corpus"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// CorpusConfig controls where shader documents are read from and how
// they are loaded.
type CorpusConfig struct {
	// JSONDir is the directory containing per-shader JSON documents.
	JSONDir string `yaml:"json_dir" json:"json_dir"`

	// TagSources lists directories (relative to JSONDir's parent or
	// absolute) holding tag files: each file's name is a tag, each
	// line a shader id.
	TagSources []string `yaml:"tag_sources" json:"tag_sources"`

	// Workers caps the parallel file loaders. Zero means NumCPU.
	Workers int `yaml:"workers" json:"workers"`

	// MaxFileSizeKB skips JSON documents larger than this.
	MaxFileSizeKB int `yaml:"max_file_size_kb" json:"max_file_size_kb"`
}

// LoggingConfig controls the structured log output.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// ServerConfig controls the HTTP query server.
type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	PageSize    int    `yaml:"page_size" json:"page_size"`
	MaxPageSize int    `yaml:"max_page_size" json:"max_page_size"`

	// QueryCache is the number of query results kept in the LRU.
	// Zero disables result caching.
	QueryCache int `yaml:"query_cache" json:"query_cache"`

	// Watch enables filesystem watching for live index updates.
	Watch bool `yaml:"watch" json:"watch"`

	// DebounceMS is the quiet period before a batch of filesystem
	// events is applied to the index.
	DebounceMS int `yaml:"debounce_ms" json:"debounce_ms"`
}

// TelemetryConfig controls local query-metrics recording.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: Version,
		Corpus: CorpusConfig{
			JSONDir:       "json",
			TagSources:    []string{"search_results"},
			Workers:       0,
			MaxFileSizeKB: 4096,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
		Server: ServerConfig{
			Addr:        ":8081",
			PageSize:    20,
			MaxPageSize: 200,
			QueryCache:  256,
			Watch:       true,
			DebounceMS:  500,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// GetUserConfigPath returns the path of the user-level config file,
// honoring XDG_CONFIG_HOME.
func GetUserConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shaderdex", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "shaderdex", "config.yaml"), nil
}

func loadUserConfig() (*Config, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return nil, nil // no home dir, skip the layer
	}
	if !fileExists(path) {
		return nil, nil
	}
	return loadYAML(path)
}

// Load resolves configuration for a project directory. Missing config
// files are not errors; a malformed file is.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if user, err := loadUserConfig(); err != nil {
		return nil, err
	} else if user != nil {
		cfg.mergeWith(user)
	}

	if project, err := loadFromFile(dir); err != nil {
		return nil, err
	} else if project != nil {
		cfg.mergeWith(project)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeConfigInvalid, err)
	}
	return cfg, nil
}

// LoadFile resolves configuration from an explicit config file,
// bypassing the user and project discovery layers. Environment
// overrides still apply.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	file, err := loadYAML(path)
	if err != nil {
		return nil, err
	}
	cfg.mergeWith(file)
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, sderrors.Wrap(sderrors.ErrCodeConfigInvalid, err)
	}
	return cfg, nil
}

func loadFromFile(dir string) (*Config, error) {
	for _, name := range []string{ProjectConfigName, ".shaderdex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return loadYAML(path)
		}
	}
	return nil, nil
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sderrors.New(sderrors.ErrCodeConfigRead,
			fmt.Sprintf("reading config %s", path), err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, sderrors.New(sderrors.ErrCodeConfigRead,
			fmt.Sprintf("parsing config %s", path), err).
			WithSuggestion("check the file for YAML syntax errors")
	}
	return &cfg, nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Corpus.JSONDir != "" {
		c.Corpus.JSONDir = other.Corpus.JSONDir
	}
	if len(other.Corpus.TagSources) > 0 {
		c.Corpus.TagSources = other.Corpus.TagSources
	}
	if other.Corpus.Workers != 0 {
		c.Corpus.Workers = other.Corpus.Workers
	}
	if other.Corpus.MaxFileSizeKB != 0 {
		c.Corpus.MaxFileSizeKB = other.Corpus.MaxFileSizeKB
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.PageSize != 0 {
		c.Server.PageSize = other.Server.PageSize
	}
	if other.Server.MaxPageSize != 0 {
		c.Server.MaxPageSize = other.Server.MaxPageSize
	}
	if other.Server.QueryCache != 0 {
		c.Server.QueryCache = other.Server.QueryCache
	}
	if other.Server.Watch {
		c.Server.Watch = true
	}
	if other.Server.DebounceMS != 0 {
		c.Server.DebounceMS = other.Server.DebounceMS
	}
	if other.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHADERDEX_JSON_DIR"); v != "" {
		c.Corpus.JSONDir = v
	}
	if v := os.Getenv("SHADERDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Corpus.Workers = n
		}
	}
	if v := os.Getenv("SHADERDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SHADERDEX_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("SHADERDEX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SHADERDEX_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

// FindProjectRoot walks up from dir looking for a .shaderdex.yaml or a
// .git directory. Returns dir itself when neither is found.
func FindProjectRoot(dir string) string {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for {
		if fileExists(filepath.Join(cur, ProjectConfigName)) ||
			fileExists(filepath.Join(cur, ".shaderdex.yml")) ||
			dirExists(filepath.Join(cur, ".git")) {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.Corpus.JSONDir == "" {
		return fmt.Errorf("corpus.json_dir must not be empty")
	}
	if c.Corpus.Workers < 0 {
		return fmt.Errorf("corpus.workers must be >= 0, got %d", c.Corpus.Workers)
	}
	if c.Corpus.MaxFileSizeKB <= 0 {
		return fmt.Errorf("corpus.max_file_size_kb must be positive, got %d", c.Corpus.MaxFileSizeKB)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Server.PageSize <= 0 {
		return fmt.Errorf("server.page_size must be positive, got %d", c.Server.PageSize)
	}
	if c.Server.MaxPageSize < c.Server.PageSize {
		return fmt.Errorf("server.max_page_size (%d) must be >= server.page_size (%d)",
			c.Server.MaxPageSize, c.Server.PageSize)
	}
	if c.Server.QueryCache < 0 {
		return fmt.Errorf("server.query_cache must be >= 0, got %d", c.Server.QueryCache)
	}
	if c.Server.DebounceMS < 0 {
		return fmt.Errorf("server.debounce_ms must be >= 0, got %d", c.Server.DebounceMS)
	}
	return nil
}

// WriteYAML writes the config to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// CacheDir returns the derived-artifact directory for a corpus root.
func CacheDir(jsonDir string) string {
	return filepath.Join(jsonDir, CacheDirName)
}

// IndexPath returns the index blob location for a corpus root.
func IndexPath(jsonDir string) string {
	return filepath.Join(CacheDir(jsonDir), "index.bin")
}

// TelemetryPath returns the telemetry database location for a corpus root.
func TelemetryPath(jsonDir string) string {
	return filepath.Join(CacheDir(jsonDir), "telemetry.db")
}
