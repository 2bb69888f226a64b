package model

import "time"

// Status is the lifecycle state of a submission.
// Transitions are monotonic: queued -> processing -> completed | error.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Submission is one accepted code-execution request, tracked end-to-end.
type Submission struct {
	ID           string
	Language     string
	SourceCode   string
	Stdin        string
	CPUTimeLimit float64 // seconds, passed through to the upstream judge
	MemoryLimit  int     // kilobytes, passed through to the upstream judge
	MaxRetries   int     // poll budget for this submission
	RetryDelay   time.Duration
	Metadata     map[string]interface{} // caller-supplied, round-tripped unchanged

	Status Status
	Result *Outcome
	Error  string // set only when Status == StatusError

	CreatedAt time.Time
	UpdatedAt time.Time
}
