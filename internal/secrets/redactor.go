package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// previewLen is the number of secret characters kept in a marker.
const previewLen = 4

// Finding is a detected secret with its position.
type Finding struct {
	RuleID   string
	RuleDesc string
	Line     int // 1-based
	StartCol int
	EndCol   int
	Match    string
}

// Result holds redacted content and the matching audit record.
type Result struct {
	Content string
	Audit   AuditLog
}

// Options configures a Redactor.
type Options struct {
	Enabled       bool
	AllowlistFile string
	Allowlist     *Allowlist
}

// Redactor scans text with the default gitleaks rules. A nil or disabled
// Redactor returns text unchanged. It is safe for concurrent use.
type Redactor struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// New builds a Redactor. The allowlist file, when set, is merged with
// opts.Allowlist.
func New(opts Options) (*Redactor, error) {
	if !opts.Enabled {
		return &Redactor{}, nil
	}

	allow, err := LoadAllowlist(opts.AllowlistFile)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}
	allow = allow.Merge(opts.Allowlist)
	if err := allow.validate(); err != nil {
		return nil, err
	}

	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}
	if !allow.IsEmpty() {
		applyAllowlist(&d.Config, allow)
	}
	return &Redactor{detector: d}, nil
}

// Enabled reports whether the redactor scans anything.
func (r *Redactor) Enabled() bool {
	return r != nil && r.detector != nil
}

// Detect returns the secrets found in content.
func (r *Redactor) Detect(content string) []Finding {
	if !r.Enabled() || content == "" {
		return nil
	}

	r.mu.Lock()
	raw := r.detector.DetectString(content)
	r.mu.Unlock()

	out := make([]Finding, 0, len(raw))
	for _, f := range raw {
		out = append(out, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
			StartCol: f.StartColumn,
			EndCol:   f.EndColumn,
			Match:    f.Secret,
		})
	}
	return out
}

// Redact replaces every finding with a [REDACTED:rule:preview] marker.
func (r *Redactor) Redact(content string) Result {
	start := time.Now()
	findings := r.Detect(content)
	res := Result{Content: content, Audit: buildAuditLog(findings, time.Since(start))}
	if len(findings) > 0 {
		res.Content = replaceFindings(content, findings)
	}
	return res
}

// String is Redact without the audit record.
func (r *Redactor) String(content string) string {
	return r.Redact(content).Content
}

func applyAllowlist(cfg *gitleaksConfig.Config, allow *Allowlist) {
	entry := &gitleaksConfig.Allowlist{Description: "wbs allowlist"}
	for _, p := range allow.Regexes {
		// Patterns were validated by New.
		entry.Regexes = append(entry.Regexes, (*gitleaksRegexp.Regexp)(regexp.MustCompile(p)))
	}
	entry.StopWords = append(entry.StopWords, allow.StopWords...)
	cfg.Allowlists = append(cfg.Allowlists, entry)
}

// replaceFindings works from the last finding backwards so earlier
// column offsets stay valid.
func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line > sorted[j].Line
		}
		return sorted[i].StartCol > sorted[j].StartCol
	})

	lines := strings.Split(content, "\n")
	var unplaced []Finding
	for _, f := range sorted {
		if f.Line < 1 || f.Line > len(lines) {
			unplaced = append(unplaced, f)
			continue
		}
		line := lines[f.Line-1]
		if f.StartCol >= 0 && f.StartCol <= f.EndCol && f.EndCol <= len(line) &&
			line[f.StartCol:f.EndCol] == f.Match {
			lines[f.Line-1] = line[:f.StartCol] + marker(f) + line[f.EndCol:]
			continue
		}
		unplaced = append(unplaced, f)
	}

	// Column data does not always line up with the raw text; fall back to
	// replacing the secret wherever it occurs.
	out := strings.Join(lines, "\n")
	for _, f := range unplaced {
		if f.Match != "" {
			out = strings.ReplaceAll(out, f.Match, marker(f))
		}
	}
	return out
}

func marker(f Finding) string {
	return fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, preview(f.Match))
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen]
}
