package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory
//	-f string   credential file name
//	-o int      owner (privileged) user id
//	-s string   secret key for owner markers and backup encryption
//	-w int      bcrypt cost factor
//	-i string   flow idle timeout (Go duration, e.g. "15m"; "0" disables)
//	-k string   section backend: memory | sqlite | postgres
//	-n string   database DSN for sqlite/postgres backends
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-d", "-f", "-o", "-s", "-w", "-i", "-k", "-n", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.UsersFile, "f", config.UsersFile, "credential file name")
	fs.Int64Var(&config.OwnerID, "o", config.OwnerID, "owner user id")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.BcryptCost, "w", config.BcryptCost, "bcrypt cost factor")

	flowIdleTimeout := fs.String("i", config.FlowIdleTimeout.String(), "flow idle timeout (duration)")

	fs.StringVar(&config.SectionBackend, "k", config.SectionBackend, "section backend (memory|sqlite|postgres)")
	fs.StringVar(&config.DatabaseDSN, "n", config.DatabaseDSN, "database DSN")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if d, err := time.ParseDuration(*flowIdleTimeout); err == nil {
		config.FlowIdleTimeout = d
	}
}
