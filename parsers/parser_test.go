package parsers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCommonLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		ip     string
		method string
		path   string
		status string
	}{
		{
			name: "common log format",
			line: `192.168.1.1 - - [03/Dec/2024:10:12:34 +0000] "GET /home HTTP/1.1" 200 512`,
			ok:   true, ip: "192.168.1.1", method: "GET", path: "/home", status: "200",
		},
		{
			name: "combined log format",
			line: `203.0.113.5 - - [03/Dec/2024:10:12:35 +0000] "POST /login HTTP/1.1" 401 128 "-" "curl/8.0"`,
			ok:   true, ip: "203.0.113.5", method: "POST", path: "/login", status: "401",
		},
		{
			name: "short timestamp",
			line: `10.0.0.1 - - [1/1/24] "GET /login HTTP/1.1" 401 0`,
			ok:   true, ip: "10.0.0.1", method: "GET", path: "/login", status: "401",
		},
		{
			name: "path kept verbatim",
			line: `10.0.0.1 - - [x] "GET /Login/?a=1 HTTP/1.1" 404 0`,
			ok:   true, ip: "10.0.0.1", method: "GET", path: "/Login/?a=1", status: "404",
		},
		{name: "empty", line: "", ok: false},
		{name: "garbage", line: "not a log line at all", ok: false},
		{
			name: "non numeric status",
			line: `10.0.0.1 - - [1/1/24] "GET /login HTTP/1.1" abc 0`,
			ok:   false,
		},
		{
			name: "truncated after status",
			line: `10.0.0.1 - - [1/1/24] "GET /login HTTP/1.1" 401`,
			ok:   false,
		},
		{
			name: "hostname instead of address",
			line: `example.com - - [1/1/24] "GET / HTTP/1.1" 200 0`,
			ok:   false,
		},
		{
			name: "request without protocol",
			line: `10.0.0.1 - - [1/1/24] "GET /" 200 0`,
			ok:   false,
		},
		{
			name: "authenticated user",
			line: `10.0.0.1 - frank [1/1/24] "GET / HTTP/1.1" 200 0`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := ParseCommonLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if entry.SourceIP != tt.ip || entry.Method != tt.method || entry.Path != tt.path || entry.StatusCode != tt.status {
				t.Errorf("got %+v, want ip=%s method=%s path=%s status=%s",
					entry, tt.ip, tt.method, tt.path, tt.status)
			}
			if entry.RawLine != tt.line {
				t.Errorf("RawLine = %q, want %q", entry.RawLine, tt.line)
			}
		})
	}
}

func TestCommonParserSkipsUnmatchedLines(t *testing.T) {
	input := strings.Join([]string{
		`10.0.0.1 - - [1/1/24] "GET /a HTTP/1.1" 200 0`,
		``,
		`garbage`,
		`10.0.0.2 - - [1/1/24] "GET /b HTTP/1.1" 200 0`,
		`10.0.0.3 - - [1/1/24] "GET /c HTTP/1.1" 2OO 0`,
	}, "\n")

	var got []string
	stats, err := (&CommonParser{}).Parse(strings.NewReader(input), func(e LogEntry) {
		got = append(got, e.SourceIP)
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stats.TotalLines != 5 || stats.MatchedLines != 2 || stats.Skipped() != 3 {
		t.Errorf("stats = %+v, want 5 total, 2 matched", stats)
	}
	if strings.Join(got, ",") != "10.0.0.1,10.0.0.2" {
		t.Errorf("emitted %v, want [10.0.0.1 10.0.0.2] in order", got)
	}
}

func TestSquidParser(t *testing.T) {
	input := strings.Join([]string{
		`# comment`,
		`1718000000.000    200 192.168.1.50 TCP_MISS/401 1500 POST http://intranet.local/login - DIRECT/10.0.0.5 text/html`,
		`1718000001.000    120 192.168.1.51 TCP_TUNNEL/200 0 CONNECT api.example.com:443 - HIER_DIRECT/1.2.3.4 -`,
		`1718000002.000    120 192.168.1.52 TCP_DENIED/- 0 GET http://x/ - NONE/- -`,
		`short line`,
	}, "\n")

	var got []LogEntry
	stats, err := (&SquidParser{}).Parse(strings.NewReader(input), func(e LogEntry) {
		got = append(got, e)
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stats.MatchedLines != 2 {
		t.Fatalf("matched %d lines, want 2", stats.MatchedLines)
	}
	if got[0].SourceIP != "192.168.1.50" || got[0].Path != "/login" || got[0].StatusCode != "401" || got[0].Method != "POST" {
		t.Errorf("first entry = %+v", got[0])
	}
	if got[1].Path != "api.example.com:443" || got[1].StatusCode != "200" {
		t.Errorf("CONNECT entry = %+v", got[1])
	}
}

func TestCSVParser(t *testing.T) {
	input := "Client_IP,Method,Endpoint,Status\n" +
		"10.0.0.1,POST,/login,401\n" +
		"10.0.0.2,GET,/home,200\n" +
		",GET,/home,200\n" +
		"10.0.0.3,GET,/home,OK\n"

	var got []LogEntry
	stats, err := (&CSVParser{}).Parse(strings.NewReader(input), func(e LogEntry) {
		got = append(got, e)
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stats.MatchedLines != 2 {
		t.Fatalf("matched %d rows, want 2", stats.MatchedLines)
	}
	if got[0].SourceIP != "10.0.0.1" || got[0].Path != "/login" || got[0].StatusCode != "401" {
		t.Errorf("first entry = %+v", got[0])
	}
}

func TestCSVParserMissingColumns(t *testing.T) {
	_, err := (&CSVParser{}).Parse(strings.NewReader("ip,method\n1.1.1.1,GET\n"), func(LogEntry) {})
	if err == nil {
		t.Fatal("expected error for missing path/status columns")
	}
}

func TestParseFileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	_, err := ParseFile(path, &CommonParser{}, func(LogEntry) {})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestParseFileDirectory(t *testing.T) {
	_, err := ParseFile(t.TempDir(), &CommonParser{}, func(LogEntry) {})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	content := `10.0.0.1 - - [1/1/24] "GET /a HTTP/1.1" 200 0` + "\n" +
		`10.0.0.1 - - [1/1/24] "GET /b HTTP/1.1" 200 0` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	count := 0
	stats, err := ParseFile(path, &CommonParser{}, func(LogEntry) { count++ })
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if count != 2 || stats.MatchedLines != 2 || stats.TotalLines != 2 {
		t.Errorf("count=%d stats=%+v, want 2 matched of 2", count, stats)
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		format, path, want string
	}{
		{"auto", "access.log", "common"},
		{"auto", "export.CSV", "csv"},
		{"auto", "/var/log/squid/access.log", "common"},
		{"auto", "squid-access.log", "squid"},
		{"squid", "access.log", "squid"},
		{"nginx", "x", "common"},
		{"CSV", "x.log", "csv"},
	}
	for _, tt := range tests {
		p := Select(tt.format, tt.path)
		if p == nil || p.Name() != tt.want {
			t.Errorf("Select(%q, %q) = %v, want %s", tt.format, tt.path, p, tt.want)
		}
	}
	if p := Select("dns", "x"); p != nil {
		t.Errorf("Select(dns) = %v, want nil", p)
	}
}

func TestCommonParserLongLine(t *testing.T) {
	long := `10.0.0.9 - - [1/1/24] "GET /` + strings.Repeat("a", 2<<20) + ` HTTP/1.1" 200 0`
	input := strings.Join([]string{
		`10.0.0.1 - - [1/1/24] "GET /a HTTP/1.1" 200 0`,
		long,
		`10.0.0.2 - - [1/1/24] "GET /b HTTP/1.1" 200 0`,
	}, "\n")

	var got []string
	stats, err := (&CommonParser{}).Parse(strings.NewReader(input), func(e LogEntry) {
		got = append(got, e.SourceIP)
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stats.TotalLines != 3 || stats.MatchedLines != 3 {
		t.Errorf("stats = %+v, want 3 matched of 3", stats)
	}
	if strings.Join(got, ",") != "10.0.0.1,10.0.0.9,10.0.0.2" {
		t.Errorf("emitted %v", got)
	}
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name   string
		parser Parser
		input  string
	}{
		{"common", &CommonParser{}, "10.0.0.1 - - [1/1/24] \"GET /\xff\xfe HTTP/1.1\" 200 0\n"},
		{"common unmatched line", &CommonParser{}, "garbage \xff\n"},
		{"squid", &SquidParser{}, "1718000000.000 200 10.0.0.1 TCP_MISS/200 0 GET http://x/\xff - DIRECT/- -\n"},
		{"csv", &CSVParser{}, "ip,path,status\n10.0.0.1,/\xff,200\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitted := 0
			_, err := tt.parser.Parse(strings.NewReader(tt.input), func(LogEntry) { emitted++ })
			if !errors.Is(err, ErrInvalidEncoding) {
				t.Fatalf("err = %v, want ErrInvalidEncoding", err)
			}
			if emitted != 0 {
				t.Errorf("emitted %d entries from undecodable input", emitted)
			}
		})
	}
}

func TestReadLinesTerminators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lf", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"lone cr", "a\rb\n", []string{"a", "b"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"blank lines", "\n\r\n", []string{"", ""}},
		{"cr then crlf", "a\r\r\n", []string{"a", ""}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			n, err := readLines(strings.NewReader(tt.input), func(line string) {
				got = append(got, line)
			})
			if err != nil {
				t.Fatalf("readLines: %v", err)
			}
			if n != len(tt.want) || strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("got %q (n=%d), want %q", got, n, tt.want)
			}
		})
	}
}

func TestParseCommonLineASCIIDigitsOnly(t *testing.T) {
	// Arabic-Indic digits are not accepted as a status code.
	line := `10.0.0.1 - - [1/1/24] "GET /login HTTP/1.1" ٤٠١ 0`
	if _, ok := ParseCommonLine(line); ok {
		t.Errorf("line with non-ASCII status matched")
	}
}
