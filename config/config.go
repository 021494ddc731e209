package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

type Config struct {
	LogFile    string // access log to analyze
	LogFormat  string // common, squid, csv or auto
	OutputCSV  string // CSV report path
	OutputFmt  string // console format: table or json
	StatusCode string // status code that marks a failed login
	LoginPath  string // endpoint that counts as a login attempt
	Threshold  int    // failed logins above this are suspicious

	DebugLog string // mirror status lines to this file

	RedisAddr     string // empty disables the Redis sink
	RedisPassword string
	RedisDB       int
	RedisKey      string        // namespace for the stored result
	RedisTTL      time.Duration // expiry of the stored result

	Quiet       bool
	ShowVersion bool
}

// Parse reads the command line. name is used in usage messages and usage
// output goes to out.
func Parse(name string, args []string, out io.Writer, usage func()) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	if usage != nil {
		fs.Usage = func() {
			usage()
			fs.PrintDefaults()
		}
	}

	fs.StringVar(&cfg.LogFile, "file", "sample.log", "Path to the access log to analyze")
	fs.StringVar(&cfg.LogFormat, "format", "auto", "Log format: common, squid, csv, auto")
	fs.StringVar(&cfg.OutputCSV, "out", "log_analysis_results.csv", "Path of the CSV report")
	fs.StringVar(&cfg.OutputFmt, "output", "table", "Console output format: table, json")
	fs.StringVar(&cfg.StatusCode, "status", "401", "Status code that marks a failed login")
	fs.StringVar(&cfg.LoginPath, "login-path", "/login", "Endpoint treated as the login endpoint")
	fs.IntVar(&cfg.Threshold, "threshold", 3, "Flag addresses with more failed logins than this")
	fs.StringVar(&cfg.DebugLog, "log-file", "", "Also append status messages to this file")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address to store results in (disabled when empty)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&cfg.RedisKey, "redis-key", "", "Redis key namespace (default: base name of -file)")
	fs.DurationVar(&cfg.RedisTTL, "redis-ttl", 7*24*time.Hour, "Expiry of results stored in Redis")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress banner and progress messages")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the flag package cannot.
func (c *Config) Validate() error {
	if c.LogFile == "" {
		return fmt.Errorf("-file must not be empty")
	}
	if c.OutputCSV == "" {
		return fmt.Errorf("-out must not be empty")
	}
	if c.Threshold < 0 {
		return fmt.Errorf("-threshold must be >= 0, got %d", c.Threshold)
	}
	if c.StatusCode == "" || strings.Trim(c.StatusCode, "0123456789") != "" {
		return fmt.Errorf("-status must be a numeric status code, got %q", c.StatusCode)
	}
	switch strings.ToLower(c.OutputFmt) {
	case "table", "json":
	default:
		return fmt.Errorf("-output must be table or json, got %q", c.OutputFmt)
	}
	switch strings.ToLower(c.LogFormat) {
	case "auto", "common", "combined", "apache", "nginx", "squid", "csv":
	default:
		return fmt.Errorf("unknown -format %q", c.LogFormat)
	}
	if c.RedisTTL < 0 {
		return fmt.Errorf("-redis-ttl must not be negative")
	}
	return nil
}
