package config

import (
	"fmt"
	"strings"
)

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	switch c.Database.Driver {
	case "memory", "sqlite", "sqlite3", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if (c.Database.Driver == "sqlite" || c.Database.Driver == "sqlite3") && c.Database.Name == "" {
		errs = append(errs, "sqlite requires database.name (file path)")
	}

	switch c.Cache.Backend {
	case "", "memory", "database":
	case "fs":
		if c.Cache.Dir == "" {
			errs = append(errs, "fs cache requires cache.dir")
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis cache requires redis.addr")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			errs = append(errs, "mongo cache requires mongo.uri")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported cache backend %q", c.Cache.Backend))
	}
	if c.Cache.Backend == "database" && c.Database.Driver == "memory" {
		errs = append(errs, "database cache requires a SQL database driver")
	}

	if c.Agent.UniqueThreshold < 0 || c.Agent.UniqueThreshold > 1 {
		errs = append(errs, "agent.unique_threshold must be between 0 and 1")
	}
	if c.Knowledge.MatchThreshold < 0 || c.Knowledge.MatchThreshold > 1 {
		errs = append(errs, "knowledge.match_threshold must be between 0 and 1")
	}
	if c.Model.VerifierSecret != "" && len(c.Model.VerifierSecret) < 16 {
		errs = append(errs, "model.verifier_secret must be at least 16 bytes")
	}
	if c.Breaker.Threshold <= 0 {
		errs = append(errs, "breaker.threshold must be positive")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
