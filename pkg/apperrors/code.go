package apperrors

// ErrorCode identifies a class of failure across the judge engine.
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & common errors
// 13000-13999: Submission & judge pipeline errors
const (
	// Success is returned by GetCode for a nil error.
	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	ValidationFailed ErrorCode = 10300

	// Submission (13000-13099)
	SubmissionNotFound   ErrorCode = 13000
	LanguageNotSupported ErrorCode = 13003
	ProblemNotFound      ErrorCode = 13006

	// Judge pipeline (13100-13199)
	JudgeQueueFull      ErrorCode = 13100
	JudgeSystemError    ErrorCode = 13101
	CompilationError    ErrorCode = 13102
	RuntimeError        ErrorCode = 13103
	TimeLimitExceeded   ErrorCode = 13104
	MemoryLimitExceeded ErrorCode = 13105
	OutputLimitExceeded ErrorCode = 13106
	LintingError        ErrorCode = 13107
	Skipped             ErrorCode = 13108

	// Custom checker (13200-13299)
	CheckerFailed ErrorCode = 13200
)

var errorMessages = map[ErrorCode]string{
	Success:              "success",
	InternalServerError:  "internal server error",
	InvalidParams:        "invalid parameters",
	NotFound:             "resource not found",
	ServiceUnavailable:   "service temporarily unavailable",
	Timeout:              "request timeout",
	ValidationFailed:     "validation failed",
	SubmissionNotFound:   "submission not found",
	LanguageNotSupported: "programming language not supported",
	ProblemNotFound:      "problem not found",
	JudgeQueueFull:       "judge worker pool is full",
	JudgeSystemError:     "judge system error",
	CompilationError:     "compilation error",
	RuntimeError:         "runtime error",
	TimeLimitExceeded:    "time limit exceeded",
	MemoryLimitExceeded:  "memory limit exceeded",
	OutputLimitExceeded:  "output limit exceeded",
	LintingError:         "linting error",
	Skipped:              "skipped",
	CheckerFailed:        "checker execution failed",
}

// Message returns the default message for the error code.
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == SubmissionNotFound, c == ProblemNotFound:
		return 404
	case c == InvalidParams, c >= 10300 && c < 10400:
		return 400
	case c == ServiceUnavailable, c == JudgeQueueFull:
		return 503
	case c == Timeout:
		return 504
	default:
		return 500
	}
}
