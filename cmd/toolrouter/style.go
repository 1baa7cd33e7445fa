package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/normanking/toolrouter/internal/toolrouter"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Width(14)
	toolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9ece6a"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))

	methodColors = map[toolrouter.Method]lipgloss.Color{
		toolrouter.MethodSkipped:  "#565f89",
		toolrouter.MethodKeyword:  "#7dcfff",
		toolrouter.MethodSemantic: "#bb9af7",
		toolrouter.MethodFallback: "#e0af68",
	}
)

func methodStyle(m toolrouter.Method) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(methodColors[m])
}

func printField(out io.Writer, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render(label+":"), value)
}
