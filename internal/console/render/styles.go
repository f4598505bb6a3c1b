// Package render provides output styling for the debug console.
package render

import (
	"github.com/charmbracelet/lipgloss"
)

// ANSI colors used across the console output.
const (
	ColorCyan   = lipgloss.Color("12") // banner title
	ColorYellow = lipgloss.Color("11") // values, prompt
	ColorRed    = lipgloss.Color("9")  // errors
	ColorGray   = lipgloss.Color("8")  // dim/secondary info
)

var (
	// TitleStyle is used for the banner title line.
	TitleStyle = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)

	// PromptStyle is used for the input prompt.
	PromptStyle = lipgloss.NewStyle().Foreground(ColorYellow)

	// LabelStyle is used for key labels in banner and status output.
	LabelStyle = lipgloss.NewStyle().Foreground(ColorGray)

	// ValueStyle is used for values in banner and status output.
	ValueStyle = lipgloss.NewStyle().Foreground(ColorYellow)

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed)

	// DimStyle is used for secondary information like hints.
	DimStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
)
