package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// ProjectConfigName is the per-project configuration file name.
const ProjectConfigName = "choralmind.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHORALMIND_"

// Config represents the complete ChoralMind configuration.
type Config struct {
	Version    int                     `yaml:"version" json:"version"`
	DataDir    string                  `yaml:"data_dir" json:"data_dir"`
	Sources    map[string]SourceConfig `yaml:"sources" json:"sources"`
	Segment    SegmentConfig           `yaml:"segment" json:"segment"`
	Chunk      ChunkConfig             `yaml:"chunk" json:"chunk"`
	Retrieval  RetrievalConfig         `yaml:"retrieval" json:"retrieval"`
	Embeddings EmbeddingsConfig        `yaml:"embeddings" json:"embeddings"`
	Completion CompletionConfig        `yaml:"completion" json:"completion"`
	Server     ServerConfig            `yaml:"server" json:"server"`
	Store      StoreConfig             `yaml:"store" json:"store"`
	Telemetry  TelemetryConfig         `yaml:"telemetry" json:"telemetry"`
}

// SourceConfig locates the hymnal documents for one language.
type SourceConfig struct {
	// Path is a directory of .pdf/.txt files or a single file.
	Path string `yaml:"path" json:"path"`
	// Layout is "columns" (two-column pages split at the midpoint) or "single".
	Layout hymn.Layout `yaml:"layout" json:"layout"`
}

// SegmentConfig configures hymn boundary detection.
// Empty vocabularies fall back to the built-in lists.
type SegmentConfig struct {
	// Anchors are regex fragments that open an English hymn.
	Anchors []string `yaml:"anchors,omitempty" json:"anchors,omitempty"`
	// MinWords drops English segments with fewer words.
	MinWords int `yaml:"min_words" json:"min_words"`
	// TitleWords are the upper-case words accepted after a Yoruba hymn number.
	TitleWords []string `yaml:"title_words,omitempty" json:"title_words,omitempty"`
}

// ChunkConfig configures the chunker. Sizes are in runes.
type ChunkConfig struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// RetrievalConfig configures nearest-neighbour search.
type RetrievalConfig struct {
	// K is the default number of results.
	K int `yaml:"k" json:"k"`
	// M is the HNSW max neighbours per node.
	M int `yaml:"hnsw_m" json:"hnsw_m"`
	// EfSearch is the HNSW search breadth.
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider   string        `yaml:"provider" json:"provider"`
	Model      string        `yaml:"model" json:"model"`
	Host       string        `yaml:"host" json:"host"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	// RateLimit caps provider requests per second (0 = unlimited).
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	// CacheSize is the number of query embeddings kept in memory.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// CompletionConfig configures the generative model used for synthesis.
type CompletionConfig struct {
	// Provider is "ollama" or "none" (retrieval only).
	Provider        string        `yaml:"provider" json:"provider"`
	Model           string        `yaml:"model" json:"model"`
	Host            string        `yaml:"host" json:"host"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	MaxPromptTokens int           `yaml:"max_prompt_tokens" json:"max_prompt_tokens"`
	// MaxFailures opens the circuit after this many consecutive failures.
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// ServerConfig configures the front ends.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
	HTTPAddr string `yaml:"http_addr" json:"http_addr"`
	// Transport is the MCP transport; only "stdio" is supported.
	Transport string `yaml:"transport" json:"transport"`
	// Debounce delays interactive searches and index reloads.
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// StoreConfig selects the vector backend.
type StoreConfig struct {
	// Backend is "hnsw" (embedded, default) or "pgvector".
	Backend     string `yaml:"backend" json:"backend"`
	PostgresURL string `yaml:"postgres_url" json:"postgres_url"`
}

// TelemetryConfig controls local query statistics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// FlushInterval is how often counts are written to telemetry.db
	// (0 = only on shutdown).
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: defaultDataDir(),
		Sources: map[string]SourceConfig{
			hymn.English.String(): {Path: filepath.Join("docs", "English"), Layout: hymn.LayoutColumns},
			hymn.Yoruba.String():  {Path: filepath.Join("docs", "Yoruba"), Layout: hymn.LayoutSingle},
		},
		Segment: SegmentConfig{
			MinWords: 10,
		},
		Chunk: ChunkConfig{
			Size:    1000,
			Overlap: 100,
		},
		Retrieval: RetrievalConfig{
			K:        3,
			M:        16,
			EfSearch: 64,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			Host:      "http://localhost:11434",
			BatchSize: 32,
			Timeout:   60 * time.Second,
			CacheSize: 1000,
		},
		Completion: CompletionConfig{
			Provider:        "ollama",
			Model:           "llama3.2",
			Host:            "http://localhost:11434",
			Timeout:         90 * time.Second,
			MaxPromptTokens: 6000,
			MaxFailures:     5,
			ResetTimeout:    30 * time.Second,
		},
		Server: ServerConfig{
			LogLevel:  "info",
			HTTPAddr:  "127.0.0.1:8080",
			Transport: "stdio",
			Debounce:  300 * time.Millisecond,
		},
		Store: StoreConfig{
			Backend: "hnsw",
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			FlushInterval: time.Minute,
		},
	}
}

// Source returns the source configuration for lang.
func (c *Config) Source(lang hymn.Language) SourceConfig {
	return c.Sources[lang.String()]
}

// LanguageDir returns <data_dir>/<language>.
func (c *Config) LanguageDir(lang hymn.Language) string {
	return filepath.Join(c.DataDir, lang.String())
}

// defaultDataDir returns ~/.choralmind/data.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".choralmind", "data")
	}
	return filepath.Join(home, ".choralmind", "data")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/choralmind/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/choralmind/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "choralmind", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "choralmind", "config.yaml")
	}
	return filepath.Join(home, ".config", "choralmind", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the project rooted at dir.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config ($XDG_CONFIG_HOME/choralmind/config.yaml)
//  3. Project config (choralmind.yaml in dir)
//  4. dir/.env (never overrides variables already set)
//  5. CHORALMIND_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := filepath.Join(dir, ProjectConfigName); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if path := filepath.Join(dir, ".env"); fileExists(path) {
		if err := godotenv.Load(path); err != nil {
			return nil, errors.ConfigError("failed to load .env", err).WithDetail("path", path)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML decodes path on top of the current values.
// Keys missing from the file keep their current value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.ErrCodeConfigNotFound, fmt.Sprintf("failed to read config file %s", path), err)
	}

	sources := c.Sources
	c.Sources = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		c.Sources = sources
		return errors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	// Source entries merge per language instead of replacing the map.
	for name, src := range c.Sources {
		base := sources[name]
		if src.Path != "" {
			base.Path = src.Path
		}
		if src.Layout != "" {
			base.Layout = src.Layout
		}
		sources[name] = base
	}
	c.Sources = sources
	return nil
}

// applyEnvOverrides applies CHORALMIND_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"DATA_DIR":            &c.DataDir,
		"EMBEDDINGS_PROVIDER": &c.Embeddings.Provider,
		"EMBEDDINGS_MODEL":    &c.Embeddings.Model,
		"COMPLETION_PROVIDER": &c.Completion.Provider,
		"COMPLETION_MODEL":    &c.Completion.Model,
		"LOG_LEVEL":           &c.Server.LogLevel,
		"HTTP_ADDR":           &c.Server.HTTPAddr,
		"STORE_BACKEND":       &c.Store.Backend,
		"POSTGRES_URL":        &c.Store.PostgresURL,
	}
	for key, dst := range str {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	// One host override for both Ollama clients.
	if v := os.Getenv(EnvPrefix + "OLLAMA_HOST"); v != "" {
		c.Embeddings.Host = v
		c.Completion.Host = v
	}

	for _, lang := range hymn.Languages() {
		key := EnvPrefix + strings.ToUpper(lang.String()) + "_SOURCE"
		if v := os.Getenv(key); v != "" {
			src := c.Sources[lang.String()]
			src.Path = v
			c.Sources[lang.String()] = src
		}
	}

	ints := map[string]*int{
		"RETRIEVAL_K":   &c.Retrieval.K,
		"CHUNK_SIZE":    &c.Chunk.Size,
		"CHUNK_OVERLAP": &c.Chunk.Overlap,
	}
	for key, dst := range ints {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("%s%s must be an integer, got %q", EnvPrefix, key, v), err)
		}
		*dst = n
	}

	if v := os.Getenv(EnvPrefix + "DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("%sDEBOUNCE must be a duration, got %q", EnvPrefix, v), err)
		}
		c.Server.Debounce = d
	}

	if v := os.Getenv(EnvPrefix + "TELEMETRY"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("%sTELEMETRY must be a boolean, got %q", EnvPrefix, v), err)
		}
		c.Telemetry.Enabled = on
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.ConfigError("data_dir must not be empty", nil)
	}

	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := hymn.ParseLanguage(name); err != nil {
			return errors.ConfigError(fmt.Sprintf("sources: unknown language %q", name), err)
		}
		if layout := c.Sources[name].Layout; layout != "" && !layout.Valid() {
			return errors.ConfigError(fmt.Sprintf("sources.%s.layout must be 'columns' or 'single', got %s", name, layout), nil)
		}
	}

	if c.Segment.MinWords < 0 {
		return errors.ConfigError(fmt.Sprintf("segment.min_words must be non-negative, got %d", c.Segment.MinWords), nil)
	}
	if c.Chunk.Size <= 0 {
		return errors.ConfigError(fmt.Sprintf("chunk.size must be positive, got %d", c.Chunk.Size), nil)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return errors.ConfigError(fmt.Sprintf("chunk.overlap must be in [0, size), got %d", c.Chunk.Overlap), nil)
	}
	if c.Retrieval.K < 0 {
		return errors.ConfigError(fmt.Sprintf("retrieval.k must be non-negative, got %d", c.Retrieval.K), nil)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "ollama", "static":
	default:
		return errors.ConfigError(fmt.Sprintf("embeddings.provider must be 'ollama' or 'static', got %s", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.BatchSize <= 0 {
		return errors.ConfigError(fmt.Sprintf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize), nil)
	}
	if c.Embeddings.RateLimit < 0 {
		return errors.ConfigError("embeddings.rate_limit must be non-negative", nil)
	}

	switch strings.ToLower(c.Completion.Provider) {
	case "ollama", "none":
	default:
		return errors.ConfigError(fmt.Sprintf("completion.provider must be 'ollama' or 'none', got %s", c.Completion.Provider), nil)
	}

	if !strings.EqualFold(c.Server.Transport, "stdio") {
		return errors.ConfigError(fmt.Sprintf("server.transport must be 'stdio', got %s", c.Server.Transport), nil)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return errors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	switch strings.ToLower(c.Store.Backend) {
	case "hnsw":
	case "pgvector":
		if c.Store.PostgresURL == "" {
			return errors.ConfigError("store.postgres_url is required for the pgvector backend", nil).
				WithSuggestion("Set CHORALMIND_POSTGRES_URL or store.postgres_url")
		}
	default:
		return errors.ConfigError(fmt.Sprintf("store.backend must be 'hnsw' or 'pgvector', got %s", c.Store.Backend), nil)
	}

	if c.Telemetry.FlushInterval < 0 {
		return errors.ConfigError("telemetry.flush_interval must be non-negative", nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
