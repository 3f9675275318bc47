package output

import (
	"fmt"

	"github.com/expressjs/perf-runner/internal/compare"
	"github.com/fatih/color"
)

// ColorHelper colors console text when stdout is a terminal.
type ColorHelper struct {
	enabled bool
}

// NewColorHelper creates a new color helper
// Colors are enabled only when outputting to a terminal
func NewColorHelper() *ColorHelper {
	return &ColorHelper{
		enabled: !color.NoColor,
	}
}

// Success returns green colored text
func (c *ColorHelper) Success(text string) string {
	if !c.enabled {
		return text
	}
	return color.GreenString(text)
}

// Failure returns red colored text
func (c *ColorHelper) Failure(text string) string {
	if !c.enabled {
		return text
	}
	return color.RedString(text)
}

// Warning returns yellow colored text
func (c *ColorHelper) Warning(text string) string {
	if !c.enabled {
		return text
	}
	return color.YellowString(text)
}

// Muted returns gray colored text
func (c *ColorHelper) Muted(text string) string {
	if !c.enabled {
		return text
	}
	return color.New(color.FgHiBlack).Sprint(text)
}

// Bold returns bold text
func (c *ColorHelper) Bold(text string) string {
	if !c.enabled {
		return text
	}
	return color.New(color.Bold).Sprint(text)
}

// Header returns bold cyan text for section headers
func (c *ColorHelper) Header(text string) string {
	if !c.enabled {
		return text
	}
	return color.New(color.FgCyan, color.Bold).Sprint(text)
}

// FormatStatus returns the colored outcome of a folder.
func (c *ColorHelper) FormatStatus(passed bool) string {
	if passed {
		return c.Success("✓ COMPARED")
	}
	return c.Failure("✗ FAILED")
}

// FormatComparison colors a comparison status by whether the candidate
// improved on the baseline.
func (c *ColorHelper) FormatComparison(metric, status string) string {
	switch {
	case status == compare.StatusSame:
		return c.Muted(status)
	case improved(metric, status):
		return c.Success(status)
	default:
		return c.Failure(status)
	}
}

// FormatCount returns a ratio colored green when complete and red when empty.
func (c *ColorHelper) FormatCount(done, total int) string {
	text := fmt.Sprintf("%d/%d", done, total)
	if done == total {
		return c.Success(text)
	}
	if done == 0 {
		return c.Failure(text)
	}
	return c.Warning(text)
}

func improved(metric, status string) bool {
	switch metric {
	case compare.MetricExecutionTime:
		return status == compare.StatusFaster
	case compare.MetricLatency:
		return status == compare.StatusLower
	case compare.MetricThroughput:
		return status == compare.StatusHigher
	case compare.MetricErrors:
		return status == compare.StatusFewer
	default:
		return false
	}
}
