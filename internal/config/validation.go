package config

import (
	"fmt"

	"github.com/khanglvm/ifs-cloud-mcp/internal/logging"
	"github.com/khanglvm/ifs-cloud-mcp/internal/search"
)

var transportTypes = map[string]bool{
	"stdio":           true,
	"streamable-http": true,
	"sse":             true,
}

// Validate checks that every set value is usable.
func Validate(cfg *Config) error {
	if cfg.LogLevel != "" {
		if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	if t := cfg.Transport; t != nil {
		if t.Type != "" && !transportTypes[t.Type] {
			return fmt.Errorf("transport.type %q is not one of stdio, streamable-http, sse", t.Type)
		}
		if t.Port < 0 || t.Port > 65535 {
			return fmt.Errorf("transport.port %d is out of range", t.Port)
		}
	}

	if s := cfg.Search; s != nil {
		weights := map[string]float64{
			"semanticWeight":   s.SemanticWeight,
			"keywordWeight":    s.KeywordWeight,
			"rankWeight":       s.RankWeight,
			"popularityWeight": s.PopularityWeight,
		}
		for name, w := range weights {
			if w < 0 {
				return fmt.Errorf("search.%s must not be negative", name)
			}
		}
		if s.CacheTTLSeconds < 0 {
			return fmt.Errorf("search.cacheTTLSeconds must not be negative")
		}
		if s.DefaultLimit < 0 || s.DefaultLimit > search.MaxLimit {
			return fmt.Errorf("search.defaultLimit must be between 1 and %d", search.MaxLimit)
		}
	}

	return nil
}
