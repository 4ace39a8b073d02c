/*
Package config handles loading and saving ifs-cloud-mcp settings.

Configuration is stored in ~/.ifs-cloud-mcp.json. Every field is optional;
missing fields take the built-in defaults, and command-line flags override
the file.

Schema:
  {
    "dataDir": "/srv/ifs",
    "defaultVersion": "25.1.0",
    "logLevel": "INFO",
    "transport": {
      "type": "stdio",
      "host": "0.0.0.0",
      "port": 8000
    },
    "search": {
      "semanticWeight": 0.6,
      "keywordWeight": 0.4,
      "rankWeight": 0.1,
      "popularityWeight": 0.05,
      "cacheTTLSeconds": 600,
      "defaultLimit": 10
    }
  }

The environment variables IFS_CLOUD_MCP_DATA_DIR and IFS_CLOUD_MCP_LOG_LEVEL
override dataDir and logLevel.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

// FileName is the name of the config file in the home directory.
const FileName = ".ifs-cloud-mcp.json"

// EnvLogLevel overrides logLevel.
const EnvLogLevel = "IFS_CLOUD_MCP_LOG_LEVEL"

// Config represents the root configuration structure.
type Config struct {
	// DataDir is the data directory. Empty uses the platform default.
	DataDir string `json:"dataDir,omitempty"`

	// DefaultVersion is served when no version is given on the command line.
	DefaultVersion string `json:"defaultVersion,omitempty"`

	// LogLevel is one of DEBUG, INFO, WARNING, ERROR.
	LogLevel string `json:"logLevel,omitempty"`

	Transport *TransportConfig `json:"transport,omitempty"`
	Search    *SearchConfig    `json:"search,omitempty"`
}

// TransportConfig selects the default MCP transport.
type TransportConfig struct {
	// Type is stdio, streamable-http or sse.
	Type string `json:"type,omitempty"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// SearchConfig tunes result fusion and caching.
type SearchConfig struct {
	SemanticWeight   float64 `json:"semanticWeight"`
	KeywordWeight    float64 `json:"keywordWeight"`
	RankWeight       float64 `json:"rankWeight"`
	PopularityWeight float64 `json:"popularityWeight"`

	// CacheTTLSeconds is how long query results stay cached. 0 uses the default.
	CacheTTLSeconds int `json:"cacheTTLSeconds"`

	DefaultLimit int `json:"defaultLimit,omitempty"`
}

// NewConfig creates a configuration holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "INFO",
		Transport: &TransportConfig{
			Type: "stdio",
			Host: "0.0.0.0",
			Port: 8000,
		},
		Search: defaultSearchConfig(),
	}
}

func defaultSearchConfig() *SearchConfig {
	d := search.DefaultConfig()
	return &SearchConfig{
		SemanticWeight:   d.Fusion.SemanticWeight,
		KeywordWeight:    d.Fusion.KeywordWeight,
		RankWeight:       d.Fusion.RankWeight,
		PopularityWeight: d.Fusion.PopularityWeight,
		CacheTTLSeconds:  int(d.CacheTTL / time.Second),
		DefaultLimit:     d.DefaultLimit,
	}
}

// fillDefaults sets every missing field to its default.
func (c *Config) fillDefaults() {
	defaults := NewConfig()
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Transport == nil {
		c.Transport = defaults.Transport
	} else {
		if c.Transport.Type == "" {
			c.Transport.Type = defaults.Transport.Type
		}
		if c.Transport.Host == "" {
			c.Transport.Host = defaults.Transport.Host
		}
		if c.Transport.Port == 0 {
			c.Transport.Port = defaults.Transport.Port
		}
	}
	if c.Search == nil {
		c.Search = defaults.Search
	} else if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = defaults.Search.DefaultLimit
	}
}

// EngineConfig converts the search settings for the search engine.
func (c *Config) EngineConfig() search.Config {
	s := c.Search
	if s == nil {
		s = defaultSearchConfig()
	}
	return search.Config{
		Fusion: search.FusionConfig{
			SemanticWeight:   s.SemanticWeight,
			KeywordWeight:    s.KeywordWeight,
			RankWeight:       s.RankWeight,
			PopularityWeight: s.PopularityWeight,
		},
		CacheTTL:     time.Duration(s.CacheTTLSeconds) * time.Second,
		DefaultLimit: s.DefaultLimit,
	}
}

// ResolveDataDir returns the configured data directory, else the platform
// default.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return dirs.DataDirectory()
}

// GetDefaultConfigPath returns the path to ~/.ifs-cloud-mcp.json
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}
