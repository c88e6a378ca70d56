package report

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/wbs/internal/priority"
)

const (
	barWidth        = 40
	sparklineWidth  = 30
	sparklineHeight = 3
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// quadrantStyles colour buckets from most to least pressing.
var quadrantStyles = map[priority.Quadrant]lipgloss.Style{
	priority.UrgentImportant:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	priority.UrgentNotImportant:    lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	priority.NotUrgentImportant:    lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	priority.NotUrgentNotImportant: dimStyle,
}

// Terminal renders a compact, styled overview of a scored project.
func Terminal(name string, tasks []*priority.Task, opts Options) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("WBS "+opts.Redactor.String(name)) + "\n\n")

	p := Summarize(tasks)
	bar := progress.New(
		progress.WithGradient("#ff0000", "#00ff00"),
		progress.WithWidth(barWidth),
	)
	b.WriteString(sectionStyle.Render("┃ Progress") + "\n")
	b.WriteString(labelStyle.Render("  Completed: ") +
		bar.ViewAs(p.Percent/100) + " " +
		dimStyle.Render(fmt.Sprintf("%d/%d (%.1f%%)", p.Completed, p.Total, p.Percent)) + "\n")
	b.WriteString(labelStyle.Render("  In progress: ") + valueStyle.Render(fmt.Sprint(p.InProgress)) +
		labelStyle.Render("  Pending: ") + valueStyle.Render(fmt.Sprint(p.Pending)) + "\n\n")

	b.WriteString(sectionStyle.Render("┃ Quadrants") + "\n")
	m := priority.Classify(tasks)
	for _, q := range priority.Quadrants {
		b.WriteString("  " + quadrantStyles[q].Render(fmt.Sprintf("%-26s", q.Label(opts.Labels))) +
			valueStyle.Render(fmt.Sprintf("%4d", len(m.Tasks(q)))) + "\n")
	}

	top := priority.TopN(tasks, opts.topN(), priority.ByCombined)
	b.WriteString("\n" + sectionStyle.Render("┃ Top tasks") + "\n")
	if len(top) == 0 {
		b.WriteString(dimStyle.Render("  no tasks") + "\n")
	}
	for _, t := range top {
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			dimStyle.Render(fmt.Sprintf("%-8s", t.ID)),
			valueStyle.Render(fmt.Sprintf("%.2f", t.Score())),
			opts.Redactor.String(t.Title)))
	}
	b.WriteString("\n" + labelStyle.Render("  Scores: ") + scoreSparkline(top) + "\n")

	return containerStyle.Render(b.String())
}

// scoreSparkline plots combined scores of the ranked tasks.
func scoreSparkline(tasks []*priority.Task) string {
	if len(tasks) == 0 {
		return dimStyle.Render("no data")
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, t := range tasks {
		spark.Push(t.Score())
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}
