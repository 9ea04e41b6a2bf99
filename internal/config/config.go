package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Graph backend connection
	Neo4j Neo4jConfig `yaml:"neo4j"`

	// Document store connection
	CouchDB CouchDBConfig `yaml:"couchdb"`

	// Identifier sequence settings
	Sequence SequenceConfig `yaml:"sequence"`

	// Logging settings
	Log LogConfig `yaml:"log"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type CouchDBConfig struct {
	URL       string `yaml:"url"`
	Database  string `yaml:"database"`
	RateLimit int    `yaml:"rate_limit"` // Requests per second
}

type SequenceConfig struct {
	Source   string `yaml:"source"` // "graph", "bolt"
	BoltPath string `yaml:"bolt_path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
	OutputFile string `yaml:"output_file"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		CouchDB: CouchDBConfig{
			URL:       "http://localhost:5984",
			Database:  "gridstore",
			RateLimit: 10,
		},
		Sequence: SequenceConfig{
			Source:   "graph",
			BoltPath: filepath.Join(homeDir, ".gridstore", "sequences.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("couchdb", cfg.CouchDB)
	v.SetDefault("sequence", cfg.Sequence)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("GRIDSTORE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".gridstore")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".gridstore"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".gridstore", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}
	if database := os.Getenv("NEO4J_DATABASE"); database != "" {
		cfg.Neo4j.Database = database
	}

	if url := os.Getenv("COUCHDB_URL"); url != "" {
		cfg.CouchDB.URL = url
	}
	if database := os.Getenv("COUCHDB_DATABASE"); database != "" {
		cfg.CouchDB.Database = database
	}
	if rateLimit := os.Getenv("COUCHDB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.Atoi(rateLimit); err == nil {
			cfg.CouchDB.RateLimit = rate
		}
	}

	if source := os.Getenv("SEQUENCE_SOURCE"); source != "" {
		cfg.Sequence.Source = source
	}
	if path := os.Getenv("SEQUENCE_BOLT_PATH"); path != "" {
		cfg.Sequence.BoltPath = path
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}
