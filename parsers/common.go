package parsers

import (
	"io"
	"regexp"
)

// CommonParser handles web server access logs in Common/Combined Log Format.
// Format: address - - [timestamp] "METHOD path protocol" status rest
// Example: 192.168.1.1 - - [03/Dec/2024:10:12:34 +0000] "GET /home HTTP/1.1" 200 512
type CommonParser struct{}

var commonLineRe = regexp.MustCompile(
	`^(?P<ip>[\d.]+) - - \[.*\] "(?P<method>\S+) (?P<endpoint>\S+) .*" (?P<status>\d+) .*`,
)

var (
	ipIdx       = commonLineRe.SubexpIndex("ip")
	methodIdx   = commonLineRe.SubexpIndex("method")
	endpointIdx = commonLineRe.SubexpIndex("endpoint")
	statusIdx   = commonLineRe.SubexpIndex("status")
)

func (p *CommonParser) Name() string {
	return "common"
}

func (p *CommonParser) Parse(r io.Reader, emit func(LogEntry)) (Stats, error) {
	var stats Stats
	total, err := readLines(r, func(line string) {
		entry, ok := ParseCommonLine(line)
		if !ok {
			return
		}
		stats.MatchedLines++
		emit(entry)
	})
	stats.TotalLines = total
	return stats, err
}

// ParseCommonLine matches one line against the access log pattern. A line
// that does not match is reported as !ok, never as an error.
func ParseCommonLine(line string) (LogEntry, bool) {
	m := commonLineRe.FindStringSubmatch(line)
	if m == nil {
		return LogEntry{}, false
	}
	return LogEntry{
		SourceIP:   m[ipIdx],
		Method:     m[methodIdx],
		Path:       m[endpointIdx],
		StatusCode: m[statusIdx],
		RawLine:    line,
	}, true
}
