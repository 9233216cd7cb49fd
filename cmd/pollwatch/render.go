package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	chosenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const (
	minBarWidth = 10
	labelWidth  = 24
)

// renderPoll draws one bar per option. votedOption marks the option chosen
// locally; "?" means voted from another device.
func renderPoll(poll *domain.Poll, votedOption string, width int) string {
	if width <= 0 {
		width = 80
	}
	barWidth := max(width-labelWidth-16, minBarWidth)
	total := poll.TotalVotes()

	var b strings.Builder
	b.WriteString(titleStyle.Render(poll.Question))
	b.WriteString("\n")

	for _, opt := range poll.Options {
		share := 0.0
		if total > 0 {
			share = float64(opt.Votes) / float64(total)
		}
		filled := int(share*float64(barWidth) + 0.5)

		label := truncate(opt.Text, labelWidth)
		marker := "  "
		if opt.ID.String() == votedOption {
			marker = "✓ "
			label = chosenStyle.Render(label)
		}

		bar := barStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
		fmt.Fprintf(&b, "%s%s %s %5.1f%% (%s)\n",
			marker,
			lipgloss.NewStyle().Width(labelWidth).Render(label),
			bar,
			share*100,
			humanize.Comma(opt.Votes),
		)
	}

	footer := fmt.Sprintf("%s %s", humanize.Comma(total), plural(total, "vote", "votes"))
	if !poll.CreatedAt.IsZero() {
		footer += " · created " + humanize.Time(poll.CreatedAt)
	}
	if votedOption == "?" {
		footer += " · you already voted"
	}
	b.WriteString(mutedStyle.Render(footer))
	return b.String()
}

func renderList(title string, polls []domain.Poll) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if len(polls) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		return b.String()
	}
	for _, poll := range polls {
		total := poll.TotalVotes()
		fmt.Fprintf(&b, "  %s  %s %s\n",
			poll.ID,
			truncate(poll.Question, 48),
			mutedStyle.Render(fmt.Sprintf("(%s %s, %s)", humanize.Comma(total), plural(total, "vote", "votes"), humanize.Time(poll.CreatedAt))),
		)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
