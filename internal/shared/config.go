package shared

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./pipelift.db"
	} `yaml:"database"`

	Scan struct {
		Sources []string `yaml:"sources"` // roots to scan when no path is given
		Include []string `yaml:"include"` // glob allowlist, empty = all
		Exclude []string `yaml:"exclude"` // glob denylist
		Workers int      `yaml:"workers"` // 0 = GOMAXPROCS
	} `yaml:"scan"`

	Aggregation struct {
		NonCompliantAt string `yaml:"non_compliant_at"` // severity that flips a category, default MEDIUM
		FailOn         string `yaml:"fail_on"`          // severity that flips the exit code, default HIGH
	} `yaml:"aggregation"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	API struct {
		Addr           string   `yaml:"addr"`          // ":8787"
		SessionHours   int      `yaml:"session_hours"` // 12
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./pipelift.db"
	c.Aggregation.NonCompliantAt = "MEDIUM"
	c.Aggregation.FailOn = "HIGH"
	c.Reporting.OutDir = "./reports"
	c.API.Addr = ":8787"
	c.API.SessionHours = 12
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("PIPELIFT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PIPELIFT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.Workers = n
		}
	}
	if v := os.Getenv("PIPELIFT_FAIL_ON"); v != "" {
		c.Aggregation.FailOn = strings.ToUpper(v)
	}
	if v := os.Getenv("PIPELIFT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PIPELIFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PIPELIFT_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("PIPELIFT_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	return c, nil
}
