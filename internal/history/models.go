package history

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	// StatusPartial marks a run that produced output with missing assets.
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Run is one ledger row.
//
// For the online strategy TotalItems counts manifest assets and
// RecoveredItems counts assets present in the staging area. For the offline
// strategy TotalItems counts signature matches and RecoveredItems counts the
// matches that decoded, duplicates included. In both cases RecoveredItems plus
// FailedItems equals TotalItems once a run completes.
type Run struct {
	ID             int64     `json:"id"`
	JobID          string    `json:"job_id"`
	Strategy       string    `json:"strategy"`
	Source         string    `json:"source"`
	Title          string    `json:"title,omitempty"`
	OutputPath     string    `json:"output_path,omitempty"`
	Status         Status    `json:"status"`
	TotalItems     int       `json:"total_items"`
	RecoveredItems int       `json:"recovered_items"`
	FailedItems    int       `json:"failed_items"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
}

// Duration is the elapsed time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is the terminal state written by Finish.
type Outcome struct {
	Status         Status
	Title          string
	OutputPath     string
	TotalItems     int
	RecoveredItems int
	FailedItems    int
	Err            error
}
