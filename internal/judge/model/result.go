package model

// StatusInfo is the status block of an upstream judge result.
type StatusInfo struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// RawResult is one upstream judge result as returned by
// GET /submissions/:token. Nullable fields stay pointers so the raw
// payload round-trips faithfully into diagnostics.
type RawResult struct {
	Token         string     `json:"token,omitempty"`
	Status        StatusInfo `json:"status"`
	Stdout        *string    `json:"stdout"`
	Stderr        *string    `json:"stderr"`
	CompileOutput *string    `json:"compile_output"`
	Message       *string    `json:"message"`
	Time          *string    `json:"time"`
	Memory        *int       `json:"memory"`
}

// Outcome is the normalized execution result surfaced to callers.
type Outcome struct {
	Success       bool       `json:"success"`
	Output        string     `json:"output"`
	Error         *string    `json:"error"`
	ExecutionTime int64      `json:"executionTime"` // wall-clock milliseconds around submit+poll
	JudgeResult   *RawResult `json:"judgeResult,omitempty"`
	Status        string     `json:"status,omitempty"`
	Time          *string    `json:"time"`
	Memory        *int       `json:"memory"`
}
