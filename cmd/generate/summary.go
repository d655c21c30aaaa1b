package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"corpuslab/atogen/internal/corpus"
)

var (
	primary = lipgloss.Color("#7C3AED")
	muted   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(22)
	valueStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Right).Width(10)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1)
)

func row(label string, v any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(fmt.Sprint(v)))
}

// render draws the run totals, the archetype mix and the attack report.
func render(c *corpus.Corpus) string {
	totals := []string{
		titleStyle.Render("Corpus " + c.RunID),
		row("users", len(c.Users)),
		row("interactions", len(c.Interactions)),
		row("sessions", c.Sessions.Sessions()),
		row("victims", len(c.VictimPatterns)),
		row("attack events", len(c.Attacks.Events)),
		row("accepted requests", c.Accepted),
		row("dropped events", len(c.Dropped)),
	}

	mix := make(map[string]int)
	for _, p := range c.LegitPatterns {
		mix[p]++
	}
	names := make([]string, 0, len(mix))
	for p := range mix {
		names = append(names, p)
	}
	sort.Strings(names)
	legit := []string{titleStyle.Render("Legitimate archetypes")}
	for _, p := range names {
		legit = append(legit, row(p, mix[p]))
	}

	blocks := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			boxStyle.Render(strings.Join(totals, "\n")),
			" ",
			boxStyle.Render(strings.Join(legit, "\n")),
		),
	}
	if len(c.Attacks.Summary) > 0 {
		blocks = append(blocks, boxStyle.Render(titleStyle.Render("Attack techniques")+"\n"+
			strings.TrimRight(c.Attacks.Report(), "\n")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
