package types

// Status represents the result status of a probe
type Status string

const (
	// StatusOK indicates the probe passed
	StatusOK Status = "OK"

	// StatusWarning indicates the probe passed but something looks off
	StatusWarning Status = "Warning"

	// StatusCritical indicates the probe failed
	StatusCritical Status = "Critical"

	// StatusUnknown indicates the status could not be determined
	StatusUnknown Status = "Unknown"

	// StatusNotApplicable indicates the probe does not apply to this cluster
	StatusNotApplicable Status = "NotApplicable"
)

// Passed reports whether a status counts as a pass in the overall result
func (s Status) Passed() bool {
	return s != StatusCritical && s != StatusUnknown
}

// Category represents a category of probes
type Category string

const (
	// CategoryCluster is for node and API server probes
	CategoryCluster Category = "Cluster"

	// CategoryNetworking is for console and routing layer probes
	CategoryNetworking Category = "Networking"

	// CategoryStorage is for storage backend and volume probes
	CategoryStorage Category = "Storage"

	// CategoryAdmission is for admission controller probes
	CategoryAdmission Category = "Admission"
)

// AllCategories lists every category in display order
var AllCategories = []Category{
	CategoryCluster,
	CategoryNetworking,
	CategoryStorage,
	CategoryAdmission,
}

// ReportFormat defines the format of the generated report
type ReportFormat string

const (
	// FormatJSON generates a JSON report
	FormatJSON ReportFormat = "json"

	// FormatYAML generates a YAML report
	FormatYAML ReportFormat = "yaml"

	// FormatSummary generates a brief text summary
	FormatSummary ReportFormat = "summary"

	// FormatNone skips report generation
	FormatNone ReportFormat = "none"
)

// Result represents the serialisable result of a probe
type Result struct {
	CheckID         string            `json:"check_id"`
	CheckName       string            `json:"check_name"`
	Category        Category          `json:"category"`
	Status          Status            `json:"status"`
	Message         string            `json:"message"`
	Detail          string            `json:"detail,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	ExecutionTime   string            `json:"execution_time"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Check defines the descriptive part of a probe
type Check interface {
	// ID returns a unique identifier for the probe
	ID() string

	// Name returns a human-readable name for the probe
	Name() string

	// Description returns a description of what the probe does
	Description() string

	// Category returns the category the probe belongs to
	Category() Category
}
