package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is tried when neither --config nor CONFIG_PATH is set.
const DefaultPath = "config/config.toml"

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// LLMConfig selects the text generation provider used for bundle extraction.
type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type EmbeddingConfig struct {
	Provider       string  `toml:"provider"`
	Model          string  `toml:"model"`
	Endpoint       string  `toml:"endpoint"`
	APIKey         string  `toml:"api_key"`
	Dimensions     int     `toml:"dimensions"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	Burst          int     `toml:"burst"`
}

type RetrievalConfig struct {
	TopK      int     `toml:"top_k"`
	Threshold float64 `toml:"threshold"`
}

type ImportConfig struct {
	// MergeRelationships makes relationship writes idempotent (MERGE instead of CREATE).
	MergeRelationships bool `toml:"merge_relationships"`
	// EnforceRelationshipRules skips edges whose endpoints the schema does not allow.
	EnforceRelationshipRules bool `toml:"enforce_relationship_rules"`
}

type SchemaConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type NATSConfig struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
	Queue         string `toml:"queue"`
}

type LogConfig struct {
	ServiceName string `toml:"service_name"`
	Level       string `toml:"level"`
	Format      string `toml:"format"`
	File        string `toml:"file"`
	MaxSize     int    `toml:"max_size"`
	MaxBackups  int    `toml:"max_backups"`
	MaxAge      int    `toml:"max_age"`
	Compress    bool   `toml:"compress"`
}

type ExtractionConfig struct {
	// Prompt takes the schema description and the input text, in that order.
	Prompt string `toml:"prompt"`
}

type Config struct {
	Neo4j      Neo4jConfig      `toml:"neo4j"`
	LLM        LLMConfig        `toml:"llm"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Import     ImportConfig     `toml:"import"`
	Schema     SchemaConfig     `toml:"schema"`
	Server     ServerConfig     `toml:"server"`
	NATS       NATSConfig       `toml:"nats"`
	Log        LogConfig        `toml:"log"`
	Extraction ExtractionConfig `toml:"extraction"`
}

func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j"},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "qwen2.5:7b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-v3",
			Dimensions:     1024,
			TimeoutSeconds: 30,
		},
		Retrieval: RetrievalConfig{TopK: 5, Threshold: 0.7},
		Import:    ImportConfig{EnforceRelationshipRules: true},
		Server:    ServerConfig{Port: "8080"},
		NATS:      NATSConfig{SubjectPrefix: "weaver.tools", Queue: "weaver"},
		Log: LogConfig{
			ServiceName: "weaver",
			Level:       "info",
			Format:      "json",
			MaxSize:     100,
			MaxBackups:  3,
			MaxAge:      28,
		},
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// Resolve finds and loads the configuration, then applies environment
// overrides. An explicit path must exist. Otherwise CONFIG_PATH and then
// DefaultPath are tried, falling back to the built-in defaults.
func Resolve(path string) (*Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg, err := Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg, path = Default(), ""
	default:
		return nil, "", err
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ApplyEnv overrides file values with environment variables.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.Neo4j.URI, "NEO4J_URI")
	setString(&cfg.Neo4j.User, "NEO4J_USER")
	setString(&cfg.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&cfg.Neo4j.Database, "NEO4J_DATABASE")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")

	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "LLM_EMBEDDING_MODEL")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL_NAME")
	setString(&cfg.Embedding.Endpoint, "EMBEDDING_MODEL_ENDPOINT")
	setString(&cfg.Embedding.APIKey, "EMBEDDING_MODEL_APIKEY")
	if v := os.Getenv("EMBEDDING_DIMENSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EMBEDDING_DIMENSIONS %q: %w", v, err)
		}
		cfg.Embedding.Dimensions = n
	}

	setString(&cfg.Schema.Path, "SCHEMA_PATH")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	return nil
}

func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return errors.New("neo4j.uri must be set")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		return fmt.Errorf("retrieval.threshold must be within [0,1], got %v", c.Retrieval.Threshold)
	}
	if c.Embedding.RateLimit < 0 {
		return fmt.Errorf("embedding.rate_limit must not be negative, got %v", c.Embedding.RateLimit)
	}
	return nil
}
