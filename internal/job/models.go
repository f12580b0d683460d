package job

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusComplete   Status = "complete"
	StatusGenerated  Status = "generated"
	StatusValidating Status = "validating"
	StatusValidated  Status = "validated"
	StatusExported   Status = "exported"
	StatusError      Status = "error"
)

// InputType distinguishes the two accepted job inputs.
type InputType string

const (
	InputZip    InputType = "zip"
	InputGitHub InputType = "github"
)

// ChangeType describes how a generated file relates to the uploaded project.
type ChangeType string

const (
	ChangeNew      ChangeType = "new"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// ExportType selects the export target.
type ExportType string

const (
	ExportZip        ExportType = "zip"
	ExportGitHub     ExportType = "github"
	ExportCloudflare ExportType = "cf"
)

// PerfectScore is the validation score that opens the export gate. The gate
// compares the literal string, not a numeric threshold.
const PerfectScore = "100/100"

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusComplete,
	StatusGenerated,
	StatusValidating,
	StatusValidated,
	StatusExported,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// inProgressStatuses are the states a detached background unit may leave a
// record parked in when it never reports back.
var inProgressStatuses = map[Status]struct{}{
	StatusAnalyzing:  {},
	StatusValidating: {},
}

// Analysis is the result of the analyze stage.
type Analysis struct {
	Platform            string `json:"platform"`
	DetectedStack       string `json:"detectedStack"`
	EntryFile           string `json:"entryFile"`
	ManifestPath        string `json:"manifestPath"`
	SWRegLocation       string `json:"swRegLocation"`
	TotalFiles          int    `json:"totalFiles"`
	PrePWAScoreEstimate string `json:"prePWA_LighthouseEstimate"`
	CloudflareOptimized bool   `json:"cloudflareOptimized"`
}

// GeneratedFile describes one file produced by the generate stage.
type GeneratedFile struct {
	Path       string     `json:"path"`
	Content    string     `json:"content"`
	ChangeType ChangeType `json:"changeType"`
}

// Check is one entry of the validation checklist.
type Check struct {
	ID      string `json:"id"`
	Pass    bool   `json:"pass"`
	Message string `json:"message"`
}

// Validation is the result of the validate stage.
type Validation struct {
	Score       string   `json:"score"`
	Checklist   []Check  `json:"checklist"`
	Remediation []string `json:"remediation"`
}

// Export describes the artifact produced by the export stage. Only the fields
// matching Type are populated.
type Export struct {
	Type ExportType `json:"type"`
	// zip
	Filename string `json:"filename,omitempty"`
	Payload  string `json:"payload,omitempty"` // base64-encoded archive
	// github
	Branch string `json:"branch,omitempty"`
	PRURL  string `json:"prUrl,omitempty"`
	// cf
	WorkerName string `json:"workerName,omitempty"`
	WorkerURL  string `json:"workerUrl,omitempty"`
}

// State is the durable record of one pipeline job.
type State struct {
	ID         string          `json:"id"`
	Input      string          `json:"input"`
	InputType  InputType       `json:"inputType"`
	Status     Status          `json:"status"`
	Analysis   *Analysis       `json:"analysis,omitempty"`
	Generated  []GeneratedFile `json:"generated,omitempty"`
	Validation *Validation     `json:"validation,omitempty"`
	Export     *Export         `json:"export,omitempty"`
	CreatedAt  int64           `json:"createdAt"` // epoch millis, immutable
	Error      string          `json:"error,omitempty"`
}

// EntityID implements entity.Record.
func (s State) EntityID() string { return s.ID }

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status has no outgoing transitions. A rerun
// creates a new record instead of reviving a terminal one.
func (s Status) IsTerminal() bool {
	return s == StatusError || s == StatusExported
}

// IsInProgress reports whether the status reflects a detached background unit
// that has not reported back yet.
func (s Status) IsInProgress() bool {
	_, ok := inProgressStatuses[s]
	return ok
}

// Age returns how long ago the record was created.
func (s State) Age(now time.Time) time.Duration {
	created := time.UnixMilli(s.CreatedAt)
	if created.After(now) {
		return 0
	}
	return now.Sub(created)
}

// IsStale reports whether an in-progress record has outlived the threshold.
// There is no watchdog to recover such records; this surfaces the hang to
// read paths instead of letting it pass silently.
func (s State) IsStale(now time.Time, threshold time.Duration) bool {
	if !s.Status.IsInProgress() {
		return false
	}
	return s.Age(now) > threshold
}
