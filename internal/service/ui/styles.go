// Package ui holds the terminal styles shared by the CLI help and the
// setup wizard.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle ANSI 6 (cyan) reads well on dark and light terminals.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle ANSI 8 (bright black) keeps descriptions in the background.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	HeaderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	ItemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	SelectedStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	HintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)
