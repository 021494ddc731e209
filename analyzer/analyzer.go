package analyzer

import (
	"errors"

	"github.com/access-log-analyzer/parsers"
)

// ErrEmptyResult is returned by lookups that need at least one matched line.
var ErrEmptyResult = errors.New("no matching log entries")

// Rules configure failed-login detection.
type Rules struct {
	FailedStatus string // status code marking a failed login, e.g. "401"
	LoginPath    string // endpoint that counts as a login attempt
	Threshold    int    // an address is suspicious above this many failures
}

// DefaultRules mirrors the usual brute-force heuristic: more than three 401s on /login.
func DefaultRules() Rules {
	return Rules{
		FailedStatus: "401",
		LoginPath:    "/login",
		Threshold:    3,
	}
}

// Analyzer aggregates parsed log entries in a single pass.
type Analyzer struct {
	rules        Rules
	requests     *Counter // source_ip -> request count
	endpoints    *Counter // path -> request count
	failedLogins *Counter // source_ip -> failed login count
}

// New creates an empty Analyzer.
func New(rules Rules) *Analyzer {
	return &Analyzer{
		rules:        rules,
		requests:     NewCounter(),
		endpoints:    NewCounter(),
		failedLogins: NewCounter(),
	}
}

// Rules returns the rules the Analyzer was created with.
func (a *Analyzer) Rules() Rules {
	return a.rules
}

// Add counts one entry. Fields are compared exactly, without normalization.
func (a *Analyzer) Add(entry parsers.LogEntry) {
	a.requests.Inc(entry.SourceIP)
	a.endpoints.Inc(entry.Path)

	if entry.StatusCode == a.rules.FailedStatus && entry.Path == a.rules.LoginPath {
		a.failedLogins.Inc(entry.SourceIP)
	}
}

// AnalyzeFile parses path with p, feeding every matched entry to Add, and
// returns the resulting Summary. Nothing is returned on failure.
func (a *Analyzer) AnalyzeFile(path string, p parsers.Parser) (Summary, error) {
	stats, err := parsers.ParseFile(path, p, a.Add)
	if err != nil {
		return Summary{}, err
	}
	return a.Summary(stats), nil
}

// Summary snapshots the current counts. Later calls to Add do not affect
// the returned Summary.
func (a *Analyzer) Summary(stats parsers.Stats) Summary {
	return Summary{
		Rules:        a.rules,
		TotalLines:   stats.TotalLines,
		MatchedLines: stats.MatchedLines,
		Requests:     a.requests.Clone(),
		Endpoints:    a.endpoints.Clone(),
		FailedLogins: a.failedLogins.Clone(),
	}
}

// Summary is the read-only result of one analysis run.
type Summary struct {
	Rules        Rules
	TotalLines   int
	MatchedLines int
	Requests     *Counter
	Endpoints    *Counter
	FailedLogins *Counter
}

// RankRequests returns requests per address, busiest first. Ties keep the
// order in which addresses first appeared in the log.
func (s Summary) RankRequests() []Count {
	return s.Requests.Ranked()
}

// MostAccessed returns the endpoint with the most requests. The endpoint
// seen first wins ties. It returns ErrEmptyResult when nothing matched.
func (s Summary) MostAccessed() (Count, error) {
	top, ok := s.Endpoints.Top()
	if !ok {
		return Count{}, ErrEmptyResult
	}
	return top, nil
}

// Suspicious returns addresses whose failed logins strictly exceed the
// threshold, in first-seen order.
func (s Summary) Suspicious() []Count {
	var out []Count
	for _, c := range s.FailedLogins.Entries() {
		if c.Count > s.Rules.Threshold {
			out = append(out, c)
		}
	}
	return out
}
