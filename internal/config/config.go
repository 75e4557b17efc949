package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "config.yaml"

type Config struct {
	Workspace string         `yaml:"workspace"`
	Database  DatabaseConfig `yaml:"database"`
	Server    ServerConfig   `yaml:"server"`
	LLM       LLMConfig      `yaml:"llm"`
	Policy    PolicyConfig   `yaml:"policy"`
	Workers   int            `yaml:"workers"`
	Log       LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type LLMConfig struct {
	// Provider is one of none, ollama or gemini.
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	Endpoint          string        `yaml:"endpoint"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	MaxContentChars   int           `yaml:"max_content_chars"`
}

type PolicyConfig struct {
	PlagiarismThreshold float64 `yaml:"plagiarism_threshold"`
	AIThreshold         float64 `yaml:"ai_threshold"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: ""},
		Server:   ServerConfig{Addr: "127.0.0.1:8080", MaxUploadBytes: 10 << 20},
		LLM: LLMConfig{
			Provider:          "none",
			Model:             "llama3.1:8b",
			Endpoint:          "http://127.0.0.1:11434",
			APIKeyEnv:         "GEMINI_API_KEY",
			Timeout:           90 * time.Second,
			RequestsPerMinute: 30,
			MaxContentChars:   12000,
		},
		Policy: PolicyConfig{
			PlagiarismThreshold: 0.3,
			AIThreshold:         0.6,
			SimilarityThreshold: 0.3,
			TopK:                10,
		},
		Workers: 4,
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies ADASH_* environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q: want sqlite or postgres", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "none", "ollama", "gemini":
	default:
		return fmt.Errorf("llm.provider %q: want none, ollama or gemini", c.LLM.Provider)
	}
	for name, v := range map[string]float64{
		"policy.plagiarism_threshold": c.Policy.PlagiarismThreshold,
		"policy.ai_threshold":         c.Policy.AIThreshold,
		"policy.similarity_threshold": c.Policy.SimilarityThreshold,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s %.3f: want a value in [0,1]", name, v)
		}
	}
	if c.Policy.TopK < 1 {
		return fmt.Errorf("policy.top_k %d: want at least 1", c.Policy.TopK)
	}
	return nil
}

// DatabaseDSN resolves the sqlite default location under the workspace.
func (c Config) DatabaseDSN() string {
	if c.Database.DSN != "" || c.Database.Driver != "sqlite" {
		return c.Database.DSN
	}
	return filepath.Join(c.Workspace, "data", "artifacts.db")
}

func applyEnv(cfg *Config) {
	cfg.Workspace = getenv("ADASH_WORKSPACE", cfg.Workspace)
	cfg.Database.Driver = getenv("ADASH_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getenv("ADASH_DB_DSN", cfg.Database.DSN)
	cfg.Server.Addr = getenv("ADASH_ADDR", cfg.Server.Addr)
	cfg.LLM.Provider = strings.ToLower(getenv("ADASH_LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = getenv("ADASH_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Endpoint = getenv("ADASH_LLM_ENDPOINT", cfg.LLM.Endpoint)
	cfg.LLM.Timeout = time.Duration(getenvInt("ADASH_LLM_TIMEOUT_MS", int(cfg.LLM.Timeout/time.Millisecond))) * time.Millisecond
	cfg.LLM.RequestsPerMinute = getenvInt("ADASH_LLM_RPM", cfg.LLM.RequestsPerMinute)
	cfg.Policy.PlagiarismThreshold = getenvFloat("ADASH_PLAGIARISM_THRESHOLD", cfg.Policy.PlagiarismThreshold)
	cfg.Policy.AIThreshold = getenvFloat("ADASH_AI_THRESHOLD", cfg.Policy.AIThreshold)
	cfg.Policy.SimilarityThreshold = getenvFloat("ADASH_SIMILARITY_THRESHOLD", cfg.Policy.SimilarityThreshold)
	cfg.Policy.TopK = getenvInt("ADASH_TOP_K", cfg.Policy.TopK)
	cfg.Workers = getenvInt("ADASH_WORKERS", cfg.Workers)
	cfg.Log.Level = getenv("ADASH_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Development = getenvBool("ADASH_LOG_DEV", cfg.Log.Development)
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	return raw == "1" || raw == "true" || raw == "yes" || raw == "on"
}
