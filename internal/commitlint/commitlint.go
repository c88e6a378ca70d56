// Package commitlint checks commit messages on a branch against a required
// header pattern and extracts the WBS task ids they reference.
package commitlint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/fyrsmithlabs/wbs/internal/config"
	"github.com/fyrsmithlabs/wbs/internal/secrets"
)

// DefaultPattern accepts conventional commit headers.
const DefaultPattern = config.DefaultCommitPattern

var (
	// ErrNotRepository is returned when the path is not a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrBranchNotFound is returned when the branch cannot be resolved.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrNoCommits is returned when the branch has no commits to check.
	ErrNoCommits = errors.New("no commits found")

	// ErrInvalidPattern is returned for a pattern that does not compile.
	ErrInvalidPattern = errors.New("invalid commit pattern")
)

// taskRefPattern matches bracketed task ids such as "[1.2.3]".
var taskRefPattern = regexp.MustCompile(`\[(\d+(?:\.\d+)*)\]`)

// Options configures Lint.
type Options struct {
	// Branch to walk. Empty means HEAD.
	Branch string

	// Pattern the first line of each message must match. Nil uses
	// DefaultPattern.
	Pattern *regexp.Regexp

	// MaxCommits limits the walk to the most recent commits. Zero means
	// no limit.
	MaxCommits int

	// Redactor scrubs messages in the result.
	Redactor *secrets.Redactor
}

// Commit is one checked commit.
type Commit struct {
	Hash    string   `json:"hash"`
	Subject string   `json:"subject"`
	Message string   `json:"message"`
	Tasks   []string `json:"tasks,omitempty"`
	Valid   bool     `json:"valid"`
}

// Result summarizes a lint run. Commits are ordered oldest first.
type Result struct {
	Branch     string    `json:"branch"`
	Commits    []Commit  `json:"commits"`
	Violations []Commit  `json:"violations"`
	TaskRefs   TaskIndex `json:"task_refs"`
}

// OK reports whether every commit matched.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// TaskIndex maps a task id to the hashes of commits that reference it.
type TaskIndex map[string][]string

// CompilePattern compiles a header pattern. An empty string yields
// DefaultPattern.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// TaskRefs returns the distinct task ids referenced in msg, in order of
// first appearance.
func TaskRefs(msg string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range taskRefPattern.FindAllStringSubmatch(msg, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}
	return refs
}

// Lint walks the branch in repoPath and checks every commit message.
func Lint(ctx context.Context, repoPath string, opts Options) (*Result, error) {
	pattern := opts.Pattern
	if pattern == nil {
		var err error
		if pattern, err = CompilePattern(""); err != nil {
			return nil, err
		}
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotRepository, repoPath, err)
	}

	from, branch, err := resolve(repo, opts.Branch)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("reading log of %s: %w", branch, err)
	}
	defer iter.Close()

	var newestFirst []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		newestFirst = append(newestFirst, c)
		if opts.MaxCommits > 0 && len(newestFirst) >= opts.MaxCommits {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", branch, err)
	}
	if len(newestFirst) == 0 {
		return nil, fmt.Errorf("%w on %s", ErrNoCommits, branch)
	}

	res := &Result{
		Branch:     branch,
		Commits:    make([]Commit, 0, len(newestFirst)),
		Violations: []Commit{},
		TaskRefs:   TaskIndex{},
	}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		c := check(newestFirst[i], pattern, opts.Redactor)
		res.Commits = append(res.Commits, c)
		if !c.Valid {
			res.Violations = append(res.Violations, c)
		}
		for _, id := range c.Tasks {
			res.TaskRefs[id] = append(res.TaskRefs[id], c.Hash)
		}
	}
	return res, nil
}

func resolve(repo *git.Repository, branch string) (plumbing.Hash, string, error) {
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				return plumbing.ZeroHash, "HEAD", fmt.Errorf("%w on HEAD", ErrNoCommits)
			}
			return plumbing.ZeroHash, "HEAD", fmt.Errorf("resolving HEAD: %w", err)
		}
		name := "HEAD"
		if head.Name().IsBranch() {
			name = head.Name().Short()
		}
		return head.Hash(), name, nil
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err == nil {
		return ref.Hash(), branch, nil
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(branch))
	if err != nil {
		return plumbing.ZeroHash, branch, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	return *hash, branch, nil
}

func check(c *object.Commit, pattern *regexp.Regexp, r *secrets.Redactor) Commit {
	msg := strings.TrimSpace(c.Message)
	subject, _, _ := strings.Cut(msg, "\n")
	subject = strings.TrimSpace(subject)

	return Commit{
		Hash:    c.Hash.String(),
		Subject: r.String(subject),
		Message: r.String(msg),
		Tasks:   TaskRefs(msg),
		Valid:   pattern.MatchString(subject),
	}
}
