// Package report renders scored task lists as markdown documents and as
// styled terminal summaries.
package report

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/secrets"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// DefaultTopN is the length of the ranked sections.
const DefaultTopN = 10

// Options configures report rendering.
type Options struct {
	TopN   int
	Labels priority.LabelSet

	// Redactor scrubs task titles. Nil leaves titles unchanged.
	Redactor *secrets.Redactor
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return DefaultTopN
	}
	return o.TopN
}

// TaskLine formats one task as a markdown bullet.
func TaskLine(t *priority.Task, r *secrets.Redactor) string {
	return fmt.Sprintf("- **%s** (Status: %s, Importance: %.2f, Urgency: %.2f, Score: %.2f, Progress: %.1f%%)",
		r.String(t.Title), t.Status, t.Importance, t.Urgency, t.Score(), t.Progress*100)
}

// PriorityMarkdown lists the most important and most urgent tasks and the
// full quadrant matrix.
func PriorityMarkdown(tasks []*priority.Task, opts Options) string {
	n := opts.topN()
	var b strings.Builder

	b.WriteString("# Task Priority and Urgency Report\n\n")
	if !hasScores(tasks) {
		b.WriteString("> No importance or urgency data was provided; every task scores 0.\n\n")
	}

	fmt.Fprintf(&b, "## Top %d Important Tasks\n", n)
	writeTasks(&b, priority.TopN(tasks, n, priority.ByImportance), opts.Redactor)

	fmt.Fprintf(&b, "\n## Top %d Urgent Tasks\n", n)
	writeTasks(&b, priority.TopN(tasks, n, priority.ByUrgency), opts.Redactor)

	b.WriteString("\n## Eisenhower Matrix\n")
	m := priority.Classify(tasks)
	for _, q := range priority.Quadrants {
		bucket := m.Tasks(q)
		fmt.Fprintf(&b, "\n### %s (%d tasks)\n", q.Label(opts.Labels), len(bucket))
		writeTasks(&b, bucket, opts.Redactor)
	}
	return b.String()
}

// Progress counts tasks by status.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"in_progress"`
	Pending    int     `json:"pending"`
	Percent    float64 `json:"percent"`
}

// Summarize counts statuses. Percent is the share of completed tasks.
func Summarize(tasks []*priority.Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case wbs.StatusCompleted:
			p.Completed++
		case wbs.StatusInProgress:
			p.InProgress++
		}
	}
	p.Pending = p.Total - p.Completed - p.InProgress
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// ProgressMarkdown reports status totals followed by every task.
func ProgressMarkdown(tasks []*priority.Task, opts Options) string {
	p := Summarize(tasks)
	var b strings.Builder

	b.WriteString("# Progress Report Dashboard\n\n")
	fmt.Fprintf(&b, "- Total Tasks: %d\n", p.Total)
	fmt.Fprintf(&b, "- Completed: %d\n", p.Completed)
	fmt.Fprintf(&b, "- In Progress: %d\n", p.InProgress)
	fmt.Fprintf(&b, "- Pending: %d\n", p.Pending)
	fmt.Fprintf(&b, "- Progress Percentage: %.2f%%\n\n", p.Percent)
	b.WriteString("## Task Details\n")
	writeTasks(&b, tasks, opts.Redactor)
	return b.String()
}

func writeTasks(b *strings.Builder, tasks []*priority.Task, r *secrets.Redactor) {
	if len(tasks) == 0 {
		b.WriteString("- None\n")
		return
	}
	for _, t := range tasks {
		b.WriteString(TaskLine(t, r))
		b.WriteByte('\n')
	}
}

func hasScores(tasks []*priority.Task) bool {
	for _, t := range tasks {
		if t.Importance != 0 || t.Urgency != 0 {
			return true
		}
		if n := t.Node(); n != nil && n.HasScores() {
			return true
		}
	}
	return false
}
