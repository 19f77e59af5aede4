// Package config handles configuration for the notekeeper engine,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the engine and its driver.
//
// Fields:
//   - DataDir: working directory for engine data (created on start).
//   - UsersFile: path of the credential JSON document, relative to DataDir
//     unless absolute.
//   - OwnerID: the single privileged identity allowed to call admin intents.
//   - SecretKey: HMAC secret for owner-marker tokens and the backup
//     encryption key. Do not use test defaults in prod.
//   - BcryptCost: cost factor for password hashing.
//   - FlowIdleTimeout: optional idle expiry for stalled conversations
//     (0 disables).
//   - SectionBackend: "memory", "sqlite" or "postgres".
//   - DatabaseDSN: DSN for the sqlite/postgres section backends.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: backup object storage settings.
type Config struct {
	DataDir         string
	UsersFile       string
	OwnerID         int64
	SecretKey       string
	BcryptCost      int
	FlowIdleTimeout time.Duration
	SectionBackend  string
	DatabaseDSN     string
	S3RootUser      string
	S3RootPassword  string
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.UsersFile = "users.json"
	c.OwnerID = 0
	c.SecretKey = "secretKey"
	c.BcryptCost = 10
	c.FlowIdleTimeout = 0
	c.SectionBackend = "memory"
	c.DatabaseDSN = ""
	c.S3RootUser = ""
	c.S3RootPassword = ""
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
