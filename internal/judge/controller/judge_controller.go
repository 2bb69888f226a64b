package controller

import (
	"time"

	"elevate/internal/judge/client"
	"elevate/internal/judge/model"
	"elevate/internal/judge/service"
	"elevate/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// JudgeController handles the code-execution HTTP endpoints.
type JudgeController struct {
	scheduler *service.Scheduler
	executor  service.Executor
}

// NewJudgeController creates a new JudgeController.
func NewJudgeController(scheduler *service.Scheduler, executor service.Executor) *JudgeController {
	return &JudgeController{scheduler: scheduler, executor: executor}
}

// Health reports liveness.
func (h *JudgeController) Health(c *gin.Context) {
	response.OK(c, gin.H{"ok": true})
}

// Submit accepts a submission for asynchronous execution.
func (h *JudgeController) Submit(c *gin.Context) {
	req, ok := bindJudgeRequest(c)
	if !ok {
		return
	}

	submission, err := h.scheduler.CreateSubmission(req.toCreateParams())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, SubmitResponse{
		Error:        false,
		SubmissionID: submission.ID,
		Status:       string(submission.Status),
	})
}

// Result returns the current state of a submission.
func (h *JudgeController) Result(c *gin.Context) {
	submissionID := c.Param("submissionId")
	submission, ok := h.scheduler.GetSubmission(submissionID)
	if !ok {
		response.NotFound(c, "Submission not found")
		return
	}

	response.OK(c, ResultResponse{
		Error:        false,
		SubmissionID: submission.ID,
		Status:       string(submission.Status),
		Result:       submission.Result,
		Metadata:     submission.Metadata,
		CreatedAt:    submission.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    submission.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Execute runs a submission synchronously, blocking until the judge
// run completes or the poll budget is exhausted.
func (h *JudgeController) Execute(c *gin.Context) {
	req, ok := bindJudgeRequest(c)
	if !ok {
		return
	}

	outcome := h.executor.Execute(c.Request.Context(), client.ExecuteInput{
		Language:     req.Language,
		Code:         req.SourceCode,
		Input:        req.Stdin,
		CPUTimeLimit: req.CPUTimeLimit,
		MemoryLimit:  req.MemoryLimit,
		MaxRetries:   req.MaxRetries,
		RetryDelay:   req.retryDelay(),
	})

	response.OK(c, ExecuteResponse{Error: false, Result: outcome})
}

func bindJudgeRequest(c *gin.Context) (JudgeRequest, bool) {
	var req JudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "language and sourceCode are required")
		return req, false
	}
	if req.Language == "" || req.SourceCode == "" {
		response.BadRequest(c, "language and sourceCode are required")
		return req, false
	}
	return req, true
}

// JudgeRequest is the shared payload of /submit and /execute.
type JudgeRequest struct {
	Language     string                 `json:"language"`
	SourceCode   string                 `json:"sourceCode"`
	Stdin        string                 `json:"stdin"`
	CPUTimeLimit float64                `json:"cpuTimeLimit"`
	MemoryLimit  int                    `json:"memoryLimit"`
	MaxRetries   int                    `json:"maxRetries"`
	RetryDelay   int                    `json:"retryDelay"` // milliseconds
	Metadata     map[string]interface{} `json:"metadata"`
}

func (r JudgeRequest) retryDelay() time.Duration {
	return time.Duration(r.RetryDelay) * time.Millisecond
}

func (r JudgeRequest) toCreateParams() service.CreateParams {
	return service.CreateParams{
		Language:     r.Language,
		SourceCode:   r.SourceCode,
		Stdin:        r.Stdin,
		CPUTimeLimit: r.CPUTimeLimit,
		MemoryLimit:  r.MemoryLimit,
		MaxRetries:   r.MaxRetries,
		RetryDelay:   r.retryDelay(),
		Metadata:     r.Metadata,
	}
}

// SubmitResponse is the asynchronous-path acknowledgment.
type SubmitResponse struct {
	Error        bool   `json:"error"`
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
}

// ResultResponse is the state of one submission.
type ResultResponse struct {
	Error        bool                   `json:"error"`
	SubmissionID string                 `json:"submissionId"`
	Status       string                 `json:"status"`
	Result       *model.Outcome         `json:"result"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    string                 `json:"createdAt"`
	UpdatedAt    string                 `json:"updatedAt"`
}

// ExecuteResponse is the synchronous-path result.
type ExecuteResponse struct {
	Error  bool          `json:"error"`
	Result model.Outcome `json:"result"`
}
