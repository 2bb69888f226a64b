package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Submission & Judge errors
const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	LanguageNotSupported   ErrorCode = 13003
	SubmitTooFrequently    ErrorCode = 13004

	// Judge (13100-13199)
	JudgeQueueFull   ErrorCode = 13100
	JudgeSystemError ErrorCode = 13101
	UpstreamError    ErrorCode = 13110
)

// errorMessages maps error codes to their default messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid request parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	CacheError: "Cache operation failed",

	ValidationFailed: "Validation failed",

	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	LanguageNotSupported:   "Programming language not supported",
	SubmitTooFrequently:    "Submitting too frequently, please wait",

	JudgeQueueFull:   "Judge queue is full, please try again later",
	JudgeSystemError: "Judge system error",
	UpstreamError:    "Upstream judge request failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == SubmissionNotFound:
		return 404
	case c == TooManyRequests, c == SubmitTooFrequently, c == JudgeQueueFull:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c == InvalidParams, c == ValidationFailed, c == LanguageNotSupported:
		return 400
	default:
		return 500
	}
}
