package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist holds content patterns and stop words that suppress findings.
//
// Files use the gitleaks layout:
//
//	[allowlist]
//	regexes = ['''example-key-\d+''']
//	stopwords = ["dummy"]
type Allowlist struct {
	Regexes   []string `toml:"regexes"`
	StopWords []string `toml:"stopwords"`
}

// LoadAllowlist reads an allowlist file. An empty path or a missing file
// yields an empty allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return &Allowlist{}, nil
	}

	var file struct {
		Allowlist Allowlist `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}
	if err := file.Allowlist.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &file.Allowlist, nil
}

// Merge returns the union of a and b.
func (a *Allowlist) Merge(b *Allowlist) *Allowlist {
	out := &Allowlist{}
	for _, l := range []*Allowlist{a, b} {
		if l == nil {
			continue
		}
		out.Regexes = append(out.Regexes, l.Regexes...)
		out.StopWords = append(out.StopWords, l.StopWords...)
	}
	return out
}

func (a *Allowlist) validate() error {
	for _, p := range a.Regexes {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, p, err)
		}
	}
	return nil
}

// IsEmpty reports whether the allowlist has no entries.
func (a *Allowlist) IsEmpty() bool {
	return a == nil || (len(a.Regexes) == 0 && len(a.StopWords) == 0)
}

