package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/access-log-analyzer/analyzer"
	"github.com/access-log-analyzer/config"
	"github.com/access-log-analyzer/logger"
	"github.com/access-log-analyzer/parsers"
	"github.com/access-log-analyzer/reporter"
	"github.com/access-log-analyzer/storage"
)

const version = "1.0.0"

const banner = `
  _                                 _
 | | ___   __ _        __ _ _ __   __ _| |_   _ _______ _ __
 | |/ _ \ / _' |_____ / _' | '_ \ / _' | | | | |_  / _ \ '__|
 | | (_) | (_| |_____| (_| | | | | (_| | | |_| |/ /  __/ |
 |_|\___/ \__, |      \__,_|_| |_|\__,_|_|\__, /___\___|_|
          |___/                           |___/

  Log Analyzer v%s - request volume, hot endpoints and brute-force logins
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one analysis and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	usage := func() {
		fmt.Fprintf(stderr, banner, version)
		fmt.Fprintf(stderr, "\nUsage:\n")
		fmt.Fprintf(stderr, "  log-analyzer -file <access.log> [options]\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  log-analyzer -file /var/log/nginx/access.log\n")
		fmt.Fprintf(stderr, "  log-analyzer -file access.log -threshold 10 -out report.csv\n")
		fmt.Fprintf(stderr, "  log-analyzer -file squid.log -format squid -output json\n")
		fmt.Fprintf(stderr, "  log-analyzer -file access.log -redis-addr localhost:6379\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
	}

	cfg, err := config.Parse("log-analyzer", args, stderr, usage)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "[!] %v\n", err)
		return 2
	}

	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "log-analyzer v%s\n", version)
		return 0
	}

	logger.SetOutput(stderr)
	logger.SetQuiet(cfg.Quiet)
	if err := logger.Init(cfg.DebugLog); err != nil {
		fmt.Fprintf(stderr, "[!] Error opening log file: %v\n", err)
		return 1
	}
	defer logger.Close()

	if !cfg.Quiet {
		fmt.Fprintf(stderr, banner, version)
	}

	if err := analyze(cfg, stdout); err != nil {
		if errors.Is(err, parsers.ErrFileNotFound) {
			fmt.Fprintf(stdout, "Error: File '%s' not found.\n", cfg.LogFile)
			logger.Warn("%v", err)
			return 1
		}
		fmt.Fprintf(stdout, "An error occurred: %v\n", err)
		logger.Warn("%v", err)
		return 1
	}
	return 0
}

// analyze parses, reports and writes the CSV. The CSV is only written once
// parsing and console output succeeded.
func analyze(cfg *config.Config, stdout io.Writer) error {
	p := parsers.Select(cfg.LogFormat, cfg.LogFile)
	if p == nil {
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	rules := analyzer.Rules{
		FailedStatus: cfg.StatusCode,
		LoginPath:    cfg.LoginPath,
		Threshold:    cfg.Threshold,
	}

	logger.Info("Parsing %s (%s format)", cfg.LogFile, p.Name())
	summary, err := analyzer.New(rules).AnalyzeFile(cfg.LogFile, p)
	if err != nil {
		return err
	}
	logger.Info("%d of %d lines matched", summary.MatchedLines, summary.TotalLines)
	if summary.MatchedLines == 0 {
		logger.Warn("No log lines matched the %s format", p.Name())
	}

	if err := reporter.Report(summary, reporter.Format(strings.ToLower(cfg.OutputFmt)), stdout); err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	if err := reporter.WriteToFile(summary, reporter.FormatCSV, cfg.OutputCSV); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nResults have been saved to %s\n", cfg.OutputCSV)

	if cfg.RedisAddr != "" {
		saveToRedis(cfg, summary)
	}

	if n := len(summary.Suspicious()); n > 0 {
		logger.Warn("ALERT: %d address(es) exceeded %d failed logins on %s",
			n, cfg.Threshold, cfg.LoginPath)
	} else {
		logger.Success("No suspicious login activity detected.")
	}
	return nil
}

// saveToRedis stores the summary. Failures are logged; console and CSV
// output are already complete at this point.
func saveToRedis(cfg *config.Config, summary analyzer.Summary) {
	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Skipping Redis: %v", err)
		return
	}
	defer store.Close()

	name := cfg.RedisKey
	if name == "" {
		name = filepath.Base(cfg.LogFile)
	}
	if err := store.Save(ctx, name, summary, cfg.RedisTTL); err != nil {
		logger.Warn("Error saving to Redis: %v", err)
		return
	}
	logger.Success("Results stored in Redis under LOGANALYSIS:%s", name)
}
