// Package report renders comparison rows into markdown tables and assembles
// per-folder sections into the final comparison report.
package report

import (
	"fmt"
	"strings"

	"github.com/expressjs/perf-runner/internal/compare"
	"github.com/expressjs/perf-runner/internal/record"
)

// LoadTestUnavailableNote is appended to a section whose records could not be
// compared on latency, throughput and errors.
const LoadTestUnavailableNote = "*Note: Load test data not available for comparison*"

// Section is the report for a single test folder.
type Section struct {
	Folder     string
	Comparison compare.Result
	Table      string
	// Err is set when the folder could not be captured or compared.
	Err error
}

// BuildSection compares the two records of a folder and renders its table.
func BuildSection(renderer *Renderer, folder string, baseline, candidate *record.Record) Section {
	result := compare.Compare(baseline, candidate)

	return Section{
		Folder:     folder,
		Comparison: result,
		Table:      renderer.RenderToString(compare.Headers, result.Cells()),
	}
}

// FailedSection records a folder that produced no comparison.
func FailedSection(folder string, err error) Section {
	return Section{Folder: folder, Err: err}
}

// Failed reports whether the section carries an error instead of a table.
func (s Section) Failed() bool {
	return s.Err != nil
}

// Body renders the table and, when the optional metrics were skipped, the note.
func (s Section) Body() string {
	if s.Failed() {
		return fmt.Sprintf("*Comparison failed: %s*\n", s.Err)
	}

	body := s.Table
	if !s.Comparison.HasLoadTest {
		body += "\n" + LoadTestUnavailableNote + "\n"
	}

	return body
}

// Render renders the section with its folder heading.
func (s Section) Render() string {
	return fmt.Sprintf("### %s\n\n%s", s.Folder, s.Body())
}

// Report is the ordered collection of folder sections of one run.
type Report struct {
	Sections []Section
}

// Add appends a section, keeping discovery order.
func (r *Report) Add(s Section) {
	r.Sections = append(r.Sections, s)
}

// Failures returns the sections that carry an error.
func (r *Report) Failures() []Section {
	var failed []Section
	for _, s := range r.Sections {
		if s.Failed() {
			failed = append(failed, s)
		}
	}

	return failed
}

// Render concatenates all sections in order.
func (r *Report) Render() string {
	parts := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		parts = append(parts, s.Render())
	}

	return strings.Join(parts, "\n")
}

// Context names the run a report belongs to.
type Context struct {
	NodeVersion string
	// PullRequest is the pull request number in PR mode, empty otherwise.
	PullRequest string
}

// Title is the report heading for the run context.
func (c Context) Title() string {
	return fmt.Sprintf("## 📊 Performance Comparison (Node.js %s)", c.NodeVersion)
}

// Document renders the report under its title. In PR mode a line naming the
// pull request follows the title.
func (r *Report) Document(c Context) string {
	var sb strings.Builder

	sb.WriteString(c.Title() + "\n\n")

	if c.PullRequest != "" {
		fmt.Fprintf(&sb, "Results for pull request #%s\n\n", c.PullRequest)
	}

	if len(r.Sections) == 0 {
		sb.WriteString("*No test folders were compared.*\n")
		return sb.String()
	}

	sb.WriteString(r.Render())

	return sb.String()
}
