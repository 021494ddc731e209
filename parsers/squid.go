package parsers

import (
	"fmt"
	"io"
	"net/url"
	"strings"
)

// SquidParser handles Squid proxy access.log format.
// Format: timestamp elapsed client action/code size method URL ident hierarchy/from content-type
// Example: 1718000000.000    200 192.168.1.50 TCP_MISS/401 1500 POST http://intranet.local/login - DIRECT/10.0.0.5 text/html
type SquidParser struct{}

func (p *SquidParser) Name() string {
	return "squid"
}

func (p *SquidParser) Parse(r io.Reader, emit func(LogEntry)) (Stats, error) {
	var stats Stats
	total, err := readLines(r, func(line string) {
		if strings.HasPrefix(line, "#") {
			return
		}
		entry, err := parseSquidLine(line)
		if err != nil {
			return // skip malformed lines
		}
		stats.MatchedLines++
		emit(entry)
	})
	stats.TotalLines = total
	return stats, err
}

func parseSquidLine(line string) (LogEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 7 {
		return LogEntry{}, fmt.Errorf("not enough fields")
	}

	// Action/status code is field 3 (e.g., TCP_MISS/200)
	parts := strings.SplitN(fields[3], "/", 2)
	if len(parts) != 2 || !isDigits(parts[1]) {
		return LogEntry{}, fmt.Errorf("bad action/status field %q", fields[3])
	}

	return LogEntry{
		SourceIP:   fields[2],
		Method:     fields[5],
		Path:       extractPath(fields[6]),
		StatusCode: parts[1],
		RawLine:    line,
	}, nil
}

// extractPath returns the request path of a proxied URL. CONNECT targets
// (host:port) and unparseable URLs are returned unchanged.
func extractPath(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
