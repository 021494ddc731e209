package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser handles access logs exported as CSV.
// Expected columns (case-insensitive header matching):
//
//	ip (or source_ip, client_ip, remote_addr), path (or endpoint, uri, url),
//	status (or status_code), method (optional)
type CSVParser struct{}

func (p *CSVParser) Name() string {
	return "csv"
}

func (p *CSVParser) Parse(r io.Reader, emit func(LogEntry)) (Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("parsing CSV header: %w", err)
	}
	stats.TotalLines++
	if err := checkEncoding(header, stats.TotalLines); err != nil {
		return stats, err
	}

	// Map column names to indices
	colMap := mapColumns(header)

	srcCol := findCol(colMap, "ip", "ip_address", "source_ip", "src_ip", "client_ip", "remote_addr")
	pathCol := findCol(colMap, "path", "endpoint", "uri", "url", "request_path")
	statusCol := findCol(colMap, "status", "status_code", "response_code")
	methodCol := findCol(colMap, "method", "http_method", "verb")

	if srcCol == -1 || pathCol == -1 || statusCol == -1 {
		return stats, fmt.Errorf("CSV missing required ip/path/status column")
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.TotalLines++
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue // skip malformed rows
		}
		if err != nil {
			return stats, err
		}
		if err := checkEncoding(row, stats.TotalLines); err != nil {
			return stats, err
		}

		entry := LogEntry{RawLine: strings.Join(row, ",")}
		entry.SourceIP = column(row, srcCol)
		entry.Path = column(row, pathCol)
		entry.StatusCode = column(row, statusCol)
		entry.Method = column(row, methodCol)

		if entry.SourceIP == "" || entry.Path == "" || !isDigits(entry.StatusCode) {
			continue
		}
		stats.MatchedLines++
		emit(entry)
	}

	return stats, nil
}

func checkEncoding(row []string, record int) error {
	for _, field := range row {
		if !utf8.ValidString(field) {
			return fmt.Errorf("record %d: %w", record, ErrInvalidEncoding)
		}
	}
	return nil
}

func column(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func mapColumns(header []string) map[string]int {
	m := make(map[string]int)
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func findCol(colMap map[string]int, names ...string) int {
	for _, name := range names {
		if idx, ok := colMap[name]; ok {
			return idx
		}
	}
	return -1
}
