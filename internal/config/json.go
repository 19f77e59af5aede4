package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Interval fields use timex.Duration, which accepts both string values
// such as "15m" and integer nanoseconds. After unmarshalling, values are
// copied into the runtime Config.
//
// Zero-valued fields are treated as "not set" and keep the defaults.
type JsonConfig struct {
	DataDir         string         `json:"data_dir"`
	UsersFile       string         `json:"users_file"`
	OwnerID         int64          `json:"owner_id"`
	SecretKey       string         `json:"secret_key"`
	BcryptCost      int            `json:"bcrypt_cost"`
	FlowIdleTimeout timex.Duration `json:"flow_idle_timeout"`
	SectionBackend  string         `json:"section_backend"`
	DatabaseDSN     string         `json:"database_dsn"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config command-line flags. If neither flag is set, nothing is loaded.
// If the file cannot be read or contains invalid JSON, the function panics:
// a half-applied configuration is worse than refusing to start.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DataDir != "" {
		config.DataDir = c.DataDir
	}
	if c.UsersFile != "" {
		config.UsersFile = c.UsersFile
	}
	if c.OwnerID != 0 {
		config.OwnerID = c.OwnerID
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.FlowIdleTimeout.Duration != 0 {
		config.FlowIdleTimeout = time.Duration(c.FlowIdleTimeout.Duration)
	}
	if c.SectionBackend != "" {
		config.SectionBackend = c.SectionBackend
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
