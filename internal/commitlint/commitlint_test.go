package commitlint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepo creates a repository on branch main with one commit per message.
func setupRepo(t *testing.T, messages ...string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, msg := range messages {
		name := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(name, []byte(msg), 0o600))
		_, err := wt.Add("file.txt")
		require.NoError(t, err)
		_, err = wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: when.Add(time.Duration(i) * time.Minute)},
		})
		require.NoError(t, err)
	}
	return dir
}

func TestTaskRefs(t *testing.T) {
	tests := []struct {
		msg  string
		want []string
	}{
		{msg: "feat: add parser [1.1]", want: []string{"1.1"}},
		{msg: "fix: [1.2.3] and [2] and [1.2.3] again", want: []string{"1.2.3", "2"}},
		{msg: "chore: [a.b] [1.] none", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, TaskRefs(tt.msg))
		})
	}
}

func TestCompilePattern(t *testing.T) {
	re, err := CompilePattern("")
	require.NoError(t, err)
	assert.True(t, re.MatchString("feat(parser): handle tabs"))
	assert.True(t, re.MatchString("fix!: drop field"))
	assert.False(t, re.MatchString("Update stuff"))

	_, err = CompilePattern("(")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestLint(t *testing.T) {
	dir := setupRepo(t,
		"feat: outline parser [1.1]",
		"wip",
		"fix(merge): keep first root [1.2]\n\nAlso touches [1.1].",
	)

	res, err := Lint(context.Background(), dir, Options{Branch: "main"})
	require.NoError(t, err)

	assert.Equal(t, "main", res.Branch)
	require.Len(t, res.Commits, 3)
	assert.Equal(t, "feat: outline parser [1.1]", res.Commits[0].Subject)
	assert.Equal(t, "wip", res.Commits[1].Subject)
	assert.False(t, res.OK())
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "wip", res.Violations[0].Subject)

	assert.Len(t, res.TaskRefs["1.1"], 2)
	assert.Equal(t, []string{res.Commits[2].Hash}, res.TaskRefs["1.2"])
	assert.Equal(t, []string{"1.2", "1.1"}, res.Commits[2].Tasks)
}

func TestLint_HeadAndLimit(t *testing.T) {
	dir := setupRepo(t, "bad one", "feat: a", "feat: b")

	res, err := Lint(context.Background(), dir, Options{MaxCommits: 2})
	require.NoError(t, err)
	assert.Equal(t, "main", res.Branch)
	require.Len(t, res.Commits, 2)
	assert.Equal(t, "feat: a", res.Commits[0].Subject)
	assert.True(t, res.OK())
}

func TestLint_CustomPattern(t *testing.T) {
	dir := setupRepo(t, "[NEW STANDARD] tidy", "tidy")

	re, err := CompilePattern(`^\[NEW STANDARD\]`)
	require.NoError(t, err)
	res, err := Lint(context.Background(), dir, Options{Pattern: re})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "tidy", res.Violations[0].Subject)
}

func TestLint_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Lint(ctx, t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrNotRepository)

	empty := t.TempDir()
	_, err = git.PlainInit(empty, false)
	require.NoError(t, err)
	_, err = Lint(ctx, empty, Options{})
	assert.ErrorIs(t, err, ErrNoCommits)

	dir := setupRepo(t, "feat: a")
	_, err = Lint(ctx, dir, Options{Branch: "release"})
	assert.ErrorIs(t, err, ErrBranchNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Lint(cancelled, dir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
