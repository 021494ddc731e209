package parsers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrFileNotFound is returned when the input log cannot be opened.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidEncoding is returned when a line is not valid UTF-8.
var ErrInvalidEncoding = errors.New("invalid UTF-8")

// LogEntry is the normalized record every parser produces.
type LogEntry struct {
	SourceIP   string
	Method     string
	Path       string // requested endpoint, as written in the log
	StatusCode string // digits only
	RawLine    string
}

// Stats describes one parse pass.
type Stats struct {
	TotalLines   int
	MatchedLines int
}

// Skipped returns how many lines did not produce an entry.
func (s Stats) Skipped() int {
	return s.TotalLines - s.MatchedLines
}

// Parser is the interface every log format must implement. Parse streams
// entries to emit in file order; lines it cannot match are skipped.
type Parser interface {
	Name() string
	Parse(r io.Reader, emit func(LogEntry)) (Stats, error)
}

// ParseFile opens path and runs p over it. The file is closed on return.
func ParseFile(path string, p Parser, emit func(LogEntry)) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return Stats{}, fmt.Errorf("opening %s: %w", path, ErrFileNotFound)
		}
		return Stats{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.IsDir() {
		return Stats{}, fmt.Errorf("opening %s: is a directory: %w", path, ErrFileNotFound)
	}

	stats, err := p.Parse(file, emit)
	if err != nil {
		return stats, fmt.Errorf("reading %s: %w", path, err)
	}
	return stats, nil
}

// Select returns the parser for format, guessing from the path when format
// is "auto". It returns nil for an unknown format.
func Select(format, path string) Parser {
	switch strings.ToLower(format) {
	case "common", "combined", "apache", "nginx":
		return &CommonParser{}
	case "squid":
		return &SquidParser{}
	case "csv":
		return &CSVParser{}
	case "auto", "":
		return autoDetect(path)
	default:
		return nil
	}
}

// autoDetect guesses the parser based on file extension and name.
func autoDetect(path string) Parser {
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.ToLower(filepath.Base(path))

	if ext == ".csv" {
		return &CSVParser{}
	}
	if strings.Contains(base, "squid") {
		return &SquidParser{}
	}

	// Web server access logs are the common case.
	return &CommonParser{}
}

// readLines calls fn for every line of r and returns the number of lines.
// Lines end at "\n", "\r\n" or a lone "\r" and have no length limit.
// Reading stops at the first line that is not valid UTF-8.
func readLines(r io.Reader, fn func(line string)) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	n := 0
	for {
		chunk, err := br.ReadString('\n')
		if chunk != "" {
			chunk = strings.TrimSuffix(chunk, "\n")
			chunk = strings.TrimSuffix(chunk, "\r")
			for _, line := range strings.Split(chunk, "\r") {
				n++
				if !utf8.ValidString(line) {
					return n, fmt.Errorf("line %d: %w", n, ErrInvalidEncoding)
				}
				fn(line)
			}
		}
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}
