package client

import (
	"context"
	"strings"
	"time"

	"elevate/internal/judge/model"
)

// Upstream judge status identifiers.
const (
	StatusInQueue             = 1
	StatusProcessing          = 2
	StatusAccepted            = 3
	StatusWrongAnswer         = 4
	StatusTimeLimitExceeded   = 5
	StatusCompilationError    = 6
	StatusRuntimeErrorSIGSEGV = 7
	StatusRuntimeErrorSIGXFSZ = 8
	StatusRuntimeErrorSIGFPE  = 9
	StatusRuntimeErrorSIGABRT = 10
	StatusRuntimeErrorNZEC    = 11
	StatusRuntimeErrorOther   = 12
	StatusInternalError       = 13
	StatusExecFormatError     = 14
)

// ExecuteInput describes one code run.
type ExecuteInput struct {
	Language     string
	Code         string
	Input        string
	CPUTimeLimit float64
	MemoryLimit  int
	MaxRetries   int
	RetryDelay   time.Duration
}

// Execute orchestrates submit, poll-to-completion and interpretation.
// It is total: every failure, including language resolution, transport
// errors and malformed responses, becomes a failed Outcome. It never
// returns an error.
func (c *Client) Execute(ctx context.Context, in ExecuteInput) model.Outcome {
	start := time.Now()

	outcome, err := c.execute(ctx, in, start)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Unknown error occurred"
		}
		return model.Outcome{
			Success:       false,
			Output:        "",
			Error:         &msg,
			ExecutionTime: time.Since(start).Milliseconds(),
		}
	}
	return outcome
}

func (c *Client) execute(ctx context.Context, in ExecuteInput, start time.Time) (model.Outcome, error) {
	languageID, err := ResolveLanguage(in.Language)
	if err != nil {
		return model.Outcome{}, err
	}

	cpuTimeLimit := in.CPUTimeLimit
	if cpuTimeLimit <= 0 {
		cpuTimeLimit = c.cfg.DefaultCPUTimeLimit
	}
	memoryLimit := in.MemoryLimit
	if memoryLimit <= 0 {
		memoryLimit = c.cfg.DefaultMemoryLimit
	}

	token, err := c.Submit(ctx, SubmitParams{
		SourceCode:   in.Code,
		LanguageID:   languageID,
		Stdin:        in.Input,
		CPUTimeLimit: cpuTimeLimit,
		MemoryLimit:  memoryLimit,
	})
	if err != nil {
		return model.Outcome{}, err
	}

	result, err := c.pollResult(ctx, token, in.MaxRetries, in.RetryDelay)
	if err != nil {
		return model.Outcome{}, err
	}

	return interpret(result, time.Since(start).Milliseconds()), nil
}

// interpret maps an upstream result onto the normalized outcome.
func interpret(result *model.RawResult, executionTime int64) model.Outcome {
	statusDescription := result.Status.Description
	if statusDescription == "" {
		statusDescription = "Unknown"
	}

	var success bool
	var output, errText string

	switch result.Status.ID {
	case StatusAccepted:
		success = true
		output = deref(result.Stdout)
	case StatusCompilationError:
		errText = "Compilation Error: " + firstNonEmpty(deref(result.CompileOutput), deref(result.Stderr), statusDescription)
	case StatusRuntimeErrorSIGSEGV, StatusRuntimeErrorSIGXFSZ, StatusRuntimeErrorSIGFPE,
		StatusRuntimeErrorSIGABRT, StatusRuntimeErrorNZEC, StatusRuntimeErrorOther:
		errText = "Runtime Error: " + firstNonEmpty(deref(result.Stderr), deref(result.Message), statusDescription)
	case StatusTimeLimitExceeded:
		errText = "Time Limit Exceeded"
	case StatusWrongAnswer:
		errText = "Wrong Answer"
		output = deref(result.Stdout)
	case StatusInternalError:
		errText = "Internal Error: " + firstNonEmpty(deref(result.Message), statusDescription)
	default:
		errText = "Execution Error: " + firstNonEmpty(deref(result.Message), statusDescription)
		output = deref(result.Stdout)
	}

	outcome := model.Outcome{
		Success:       success,
		Output:        strings.TrimSpace(output),
		ExecutionTime: executionTime,
		JudgeResult:   result,
		Status:        statusDescription,
		Time:          result.Time,
		Memory:        result.Memory,
	}
	if errText != "" {
		trimmed := strings.TrimSpace(errText)
		outcome.Error = &trimmed
	}
	return outcome
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
