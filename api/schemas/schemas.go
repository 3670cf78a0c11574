package schemas

import "time"

// RunStatus is the terminal outcome of one wizard traversal.
type RunStatus string

const (
	StatusCompleted RunStatus = "Completed"
	StatusFailed    RunStatus = "Failed"
	StatusTimedOut  RunStatus = "TimedOut"
)

// CaseRecord is the upstream CRM record describing one registration attempt.
// It is immutable input to a single run; every field except RecordID is
// optional and the wizard substitutes documented defaults for absent values.
type CaseRecord struct {
	RecordID              string `json:"record_id"`
	EntityName            string `json:"entity_name,omitempty"`
	EntityType            string `json:"entity_type,omitempty"`
	FormationDate         string `json:"formation_date,omitempty"`
	BusinessCategory      string `json:"business_category,omitempty"`
	BusinessDescription   string `json:"business_description,omitempty"`
	EIN                   string `json:"ein,omitempty"`
	PINNumber             string `json:"pin_number,omitempty"`
	QuarterOfFirstPayroll string `json:"quarter_of_first_payroll,omitempty"`

	// JSONSummary is a nested JSON blob of party/address/business details.
	// SummaryRaw is an HTML fragment with key: value rows. Both are parsed
	// by the extractor; both fail soft when malformed.
	JSONSummary string `json:"json_summary,omitempty"`
	SummaryRaw  string `json:"summary_raw,omitempty"`

	AdditionalFields map[string]any `json:"additional_fields,omitempty"`
}

// RunResult is produced at the end of one wizard traversal. It is returned
// to the caller and reported upstream; it is not persisted by the driver
// itself (the optional run store records it separately).
type RunResult struct {
	RunID      string    `json:"run_id"`
	RecordID   string    `json:"record_id"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Screenshot is a base64-encoded PNG of the final page, captured only
	// when the confirmation flow is enabled.
	Screenshot string `json:"screenshot,omitempty"`
}

// Succeeded reports whether the run reached the final review page.
func (r RunResult) Succeeded() bool {
	return r.Status == StatusCompleted
}

// Confirmation is the proceed/abort decision delivered by the upstream CRM
// while a run is waiting on the review page.
type Confirmation struct {
	RecordID string `json:"record_id"`
	Proceed  bool   `json:"proceed"`
}

// CompletionNotice is the status callback posted to the CRM after a run.
type CompletionNotice struct {
	FormID     string    `json:"formId"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message"`
	Screenshot string    `json:"screenshot,omitempty"`
	ReportedAt time.Time `json:"reportedAt"`
}
