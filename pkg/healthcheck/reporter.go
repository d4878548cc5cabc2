/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2023-03-06
Modified: 2026-10-15

This file implements the reporting functionality for cluster probes. It:

- Generates JSON, YAML or plain-text summary reports of probe results
- Keeps results in registration order and counts them by status
- Handles report file naming and creation
*/

package healthcheck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/ayaseen/cluster-probes/pkg/types"
)

// ReportConfig defines the configuration for report generation
type ReportConfig struct {
	// Format is the report format to generate
	Format types.ReportFormat

	// OutputDir is where the report will be saved
	OutputDir string

	// Filename is the name of the report file
	Filename string

	// IncludeTimestamp adds a timestamp to the filename
	IncludeTimestamp bool

	// Title is the title of the report
	Title string
}

// Report is the serialisable form of a run
type Report struct {
	Title           string         `json:"title"`
	GeneratedAt     string         `json:"generated_at"`
	APIServerURL    string         `json:"api_server_url,omitempty"`
	Passed          bool           `json:"passed"`
	ResultsByStatus map[string]int `json:"results_by_status"`
	Results         []types.Result `json:"results"`
}

// Reporter generates reports for probe results
type Reporter struct {
	config ReportConfig
	runner *Runner
	now    func() time.Time

	apiServerURL string
}

// NewReporter creates a new reporter
func NewReporter(config ReportConfig, runner *Runner) *Reporter {
	return &Reporter{
		config: config,
		runner: runner,
		now:    time.Now,
	}
}

// SetAPIServerURL records the API server URL the run was made against
func (r *Reporter) SetAPIServerURL(url string) {
	r.apiServerURL = url
}

// Build assembles the report from the runner's results
func (r *Reporter) Build() Report {
	results := r.runner.GetResults()

	report := Report{
		Title:           r.config.Title,
		GeneratedAt:     r.now().Format(time.RFC3339),
		APIServerURL:    r.apiServerURL,
		Passed:          r.runner.Passed(),
		ResultsByStatus: make(map[string]int),
		Results:         []types.Result{},
	}

	for status, count := range r.runner.CountByStatus() {
		report.ResultsByStatus[string(status)] = count
	}

	for _, check := range r.runner.GetChecks() {
		if result, exists := results[check.ID()]; exists {
			report.Results = append(report.Results, result.ToTypesResult(check))
		}
	}

	return report
}

// Render renders the report content in the configured format
func (r *Reporter) Render() (string, error) {
	report := r.Build()

	switch r.config.Format {
	case types.FormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON report: %w", err)
		}
		return string(data), nil
	case types.FormatYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML report: %w", err)
		}
		return string(data), nil
	case types.FormatSummary:
		return r.renderSummary(report), nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", r.config.Format)
	}
}

// Generate writes the report and returns its path
func (r *Reporter) Generate() (string, error) {
	content, err := r.Render()
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.MkdirAll(r.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(r.config.OutputDir, r.getFilename())
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return outputPath, nil
}

// getFilename returns the filename for the report
func (r *Reporter) getFilename() string {
	filename := r.config.Filename

	if r.config.IncludeTimestamp {
		timestamp := r.now().Format("20060102-150405")

		if ext := filepath.Ext(filename); ext != "" {
			filename = filename[:len(filename)-len(ext)] + "-" + timestamp + ext
		} else {
			filename = filename + "-" + timestamp
		}
	}

	if filepath.Ext(filename) == "" {
		switch r.config.Format {
		case types.FormatJSON:
			filename += ".json"
		case types.FormatYAML:
			filename += ".yaml"
		case types.FormatSummary:
			filename += ".txt"
		}
	}

	return filename
}

func (r *Reporter) renderSummary(report Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s\n", report.Title))
	sb.WriteString(strings.Repeat("=", len(report.Title)))
	sb.WriteString("\n\n")

	if report.APIServerURL != "" {
		sb.WriteString(fmt.Sprintf("API server: %s\n", report.APIServerURL))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt))

	sb.WriteString("Summary:\n")
	for _, status := range []types.Status{types.StatusOK, types.StatusWarning, types.StatusCritical, types.StatusUnknown, types.StatusNotApplicable} {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", status, report.ResultsByStatus[string(status)]))
	}
	sb.WriteString("\n")

	for _, result := range report.Results {
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", result.Status, result.CheckName, result.Message))
		for _, rec := range result.Recommendations {
			sb.WriteString(fmt.Sprintf("  - %s\n", rec))
		}
	}

	if report.Passed {
		sb.WriteString("\nOverall: PASS\n")
	} else {
		sb.WriteString("\nOverall: FAIL\n")
	}

	return sb.String()
}
