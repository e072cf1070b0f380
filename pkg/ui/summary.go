package ui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"flickrbackup/pkg/queue"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	topicStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	totalsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
)

// RunSummary is what a one-shot backup reports when it finishes
type RunSummary struct {
	Command     string
	Topics      map[string]queue.TopicStats
	Saved       int64
	DeadLetters int
	Elapsed     time.Duration
}

// Failed reports whether any message was dead-lettered
func (s RunSummary) Failed() bool {
	return s.DeadLetters > 0
}

// PrintSummary renders per-topic counters and totals in a panel, followed
// by the outcome line
func PrintSummary(s RunSummary) {
	names := make([]string, 0, len(s.Topics))
	width := 0
	for name := range s.Topics {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	lines := []string{
		panelTitleStyle.Render(fmt.Sprintf("[%s] finished in %s", s.Command, s.Elapsed.Round(time.Millisecond))),
		"",
	}
	for _, name := range names {
		st := s.Topics[name]
		lines = append(lines, topicStyle.Render(fmt.Sprintf("%-*s  published=%d acked=%d redelivered=%d dead=%d",
			width, name, st.Published, st.Acked, st.Redelivered, st.DeadLettered)))
	}
	lines = append(lines, "", totalsStyle.Render(fmt.Sprintf("Files written: %d", s.Saved)))

	fmt.Fprintln(Output, panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	if s.Failed() {
		PrintWarning("Dead-lettered messages", s.DeadLetters)
		return
	}
	PrintSuccess("Backup complete")
}
