// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5FAFFF")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#87D787")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFD75F")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF5F5F")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// FormatSubtle formats de-emphasized text.
func FormatSubtle(text string) string {
	return SubtleStyle.Render(text)
}
