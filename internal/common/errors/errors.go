// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Assistant conversation errors. These never reach the process as BPMN errors; the
// recommendation flow converts them into the fallback product and reports the code.
const (
	ErrCodeSessionCreationFailed   ErrorCode = "SESSION_CREATION_FAILED"
	ErrCodeMessageSubmissionFailed ErrorCode = "MESSAGE_SUBMISSION_FAILED"
	ErrCodeRunCreationFailed       ErrorCode = "RUN_CREATION_FAILED"
	ErrCodeRunPollFailed           ErrorCode = "RUN_POLL_FAILED"
	ErrCodeRunFailed               ErrorCode = "RUN_FAILED"
	ErrCodeRunTimeout              ErrorCode = "RUN_TIMEOUT"
	ErrCodeNoAssistantResponse     ErrorCode = "NO_ASSISTANT_RESPONSE"
)

// Worker input and coordination errors.
const (
	ErrCodeInputParsingFailed       ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeIntakeValidationFailed   ErrorCode = "INTAKE_VALIDATION_FAILED"
	ErrCodeRecommendationInProgress ErrorCode = "RECOMMENDATION_IN_PROGRESS"
	ErrCodeInflightGuardFailed      ErrorCode = "INFLIGHT_GUARD_FAILED"
)

// StandardError is the internal error shape every worker failure is normalized to.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value that is forwarded to the BPMN error variables.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputParsingFailedError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Job variables could not be parsed", err.Error(), false)
}

func NewIntakeValidationFailedError(details string) *StandardError {
	return newError(ErrCodeIntakeValidationFailed, "Intake record failed schema validation", details, false)
}

func NewRecommendationInProgressError(intakeID string) *StandardError {
	return newError(ErrCodeRecommendationInProgress,
		"A recommendation is already being generated for this intake",
		fmt.Sprintf("intakeId: %s", intakeID), false).
		WithMetadata("intakeId", intakeID)
}

func NewInflightGuardFailedError(err error) *StandardError {
	return newError(ErrCodeInflightGuardFailed, "In-flight guard unavailable", err.Error(), true)
}

// NewAssistantError builds the error reported for a failed conversation step.
func NewAssistantError(code ErrorCode, err error) *StandardError {
	return newError(code, "Assistant conversation failed", err.Error(), false)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError("BUSINESS_RULE_VIOLATION", message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes caught by boundary
// events in the intake process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputParsingFailed:       "INPUT_PARSING_FAILED",
	ErrCodeIntakeValidationFailed:   "INTAKE_VALIDATION_FAILED",
	ErrCodeRecommendationInProgress: "RECOMMENDATION_IN_PROGRESS",
	ErrCodeInflightGuardFailed:      "INFLIGHT_GUARD_FAILED",
}

// GetRetryCount returns the job retries granted for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeInflightGuardFailed, "EXTERNAL_SERVICE_ERROR", "TIMEOUT_ERROR":
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logging and dashboards.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "RUN_") || strings.Contains(codeStr, "SESSION") ||
		strings.Contains(codeStr, "MESSAGE") || strings.Contains(codeStr, "ASSISTANT"):
		return "ASSISTANT"
	case strings.Contains(codeStr, "INFLIGHT") || strings.Contains(codeStr, "IN_PROGRESS"):
		return "COORDINATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
