package main

import "github.com/charmbracelet/lipgloss"

var (
	headerColor = lipgloss.Color("37")  // cyan
	labelColor  = lipgloss.Color("245") // grey
	valueColor  = lipgloss.Color("252") // near-white
	warnColor   = lipgloss.Color("226") // yellow

	headerStyle = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(labelColor)
	valueStyle  = lipgloss.NewStyle().Foreground(valueColor)
	warnStyle   = lipgloss.NewStyle().Foreground(warnColor)
)
