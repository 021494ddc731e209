package reporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/access-log-analyzer/analyzer"
)

// ErrWriteFailure wraps any failure to produce an output file.
var ErrWriteFailure = errors.New("write failure")

// Format specifies the output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Section titles and column headers shared by every format.
const (
	titleRequests   = "Requests per IP Address"
	titleEndpoint   = "Most Frequently Accessed Endpoint"
	titleSuspicious = "Suspicious Activity Detected"
)

var (
	headerRequests   = []string{"IP Address", "Request Count"}
	headerEndpoint   = []string{"Endpoint", "Access Count"}
	headerSuspicious = []string{"IP Address", "Failed Login Attempts"}
)

// Report outputs the analysis summary in the requested format.
func Report(summary analyzer.Summary, format Format, w io.Writer) error {
	switch format {
	case FormatTable:
		return reportTable(summary, w)
	case FormatJSON:
		return reportJSON(summary, w)
	case FormatCSV:
		return reportCSV(summary, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteToFile writes the report to path. The report is written to a
// temporary file in the same directory and renamed into place, so path is
// either the complete report or untouched.
func WriteToFile(summary analyzer.Summary, format Format, path string) (err error) {
	tmp, err := createTemp(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w: %w", ErrWriteFailure, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := Report(summary, format, tmp); err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrWriteFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w: %w", path, ErrWriteFailure, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming to %s: %w: %w", path, ErrWriteFailure, err)
	}
	return nil
}

// createTemp creates a new file next to path with the same permissions
// os.Create would give it (0666 less the umask).
func createTemp(path string) (*os.File, error) {
	dir, base := filepath.Split(path)
	for i := 0; i < 100; i++ {
		name := filepath.Join(dir, "."+base+"."+strconv.FormatUint(uint64(rand.Uint32()), 10)+".tmp")
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("no free temporary name for %s", path)
}

// endpointRows is the single most-accessed row, or no rows when nothing matched.
func endpointRows(s analyzer.Summary) ([][]string, error) {
	top, err := s.MostAccessed()
	if errors.Is(err, analyzer.ErrEmptyResult) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return [][]string{{top.Key, strconv.Itoa(top.Count)}}, nil
}

func countRows(counts []analyzer.Count) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Key, strconv.Itoa(c.Count)})
	}
	return rows
}

func reportTable(s analyzer.Summary, w io.Writer) error {
	endpoint, err := endpointRows(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s:\n", titleRequests)
	writeGrid(w, headerRequests, countRows(s.RankRequests()))

	fmt.Fprintf(w, "\n%s:\n", titleEndpoint)
	writeGrid(w, headerEndpoint, endpoint)

	fmt.Fprintf(w, "\n%s:\n", titleSuspicious)
	writeGrid(w, headerSuspicious, countRows(s.Suspicious()))

	return nil
}

// writeGrid renders a bordered table with a rule after every row. The
// first column is left aligned, the counts right aligned.
func writeGrid(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetRowLine(true)
	table.AppendBulk(rows)
	table.Render()
}

// jsonReport mirrors the summary for clean JSON output.
type jsonReport struct {
	TotalLines    int              `json:"total_lines"`
	MatchedLines  int              `json:"matched_lines"`
	FailedStatus  string           `json:"failed_login_status"`
	LoginPath     string           `json:"login_path"`
	Threshold     int              `json:"failed_login_threshold"`
	RequestsPerIP []analyzer.Count `json:"requests_per_ip"`
	MostAccessed  *analyzer.Count  `json:"most_accessed_endpoint"`
	SuspiciousIPs []analyzer.Count `json:"suspicious_activity"`
}

func reportJSON(s analyzer.Summary, w io.Writer) error {
	report := jsonReport{
		TotalLines:    s.TotalLines,
		MatchedLines:  s.MatchedLines,
		FailedStatus:  s.Rules.FailedStatus,
		LoginPath:     s.Rules.LoginPath,
		Threshold:     s.Rules.Threshold,
		RequestsPerIP: s.RankRequests(),
		SuspiciousIPs: s.Suspicious(),
	}
	if report.RequestsPerIP == nil {
		report.RequestsPerIP = []analyzer.Count{}
	}
	if report.SuspiciousIPs == nil {
		report.SuspiciousIPs = []analyzer.Count{}
	}

	top, err := s.MostAccessed()
	switch {
	case err == nil:
		report.MostAccessed = &top
	case !errors.Is(err, analyzer.ErrEmptyResult):
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// reportCSV writes the three titled sections separated by blank rows.
func reportCSV(s analyzer.Summary, w io.Writer) error {
	endpoint, err := endpointRows(s)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	sections := []struct {
		title  string
		header []string
		rows   [][]string
	}{
		{titleRequests, headerRequests, countRows(s.RankRequests())},
		{titleEndpoint, headerEndpoint, endpoint},
		{titleSuspicious, headerSuspicious, countRows(s.Suspicious())},
	}

	for i, sec := range sections {
		if i > 0 {
			// encoding/csv writes an empty record as a blank line
			if err := cw.Write([]string{""}); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{sec.title}); err != nil {
			return err
		}
		if err := cw.Write(sec.header); err != nil {
			return err
		}
		if err := cw.WriteAll(sec.rows); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
