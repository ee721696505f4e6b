// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business rule errors
const (
	ErrCodeInvalidInput          ErrorCode = "INVALID_INPUT"
	ErrCodeEstimateInputInvalid  ErrorCode = "ESTIMATE_INPUT_INVALID"
	ErrCodeInvalidTransition     ErrorCode = "INVALID_TRANSITION"
	ErrCodeUnknownAction         ErrorCode = "UNKNOWN_ACTION"
	ErrCodePaymentDateRequired   ErrorCode = "PAYMENT_DATE_REQUIRED"
	ErrCodeInvalidPeriod         ErrorCode = "INVALID_PERIOD"
	ErrCodeBookingNotFound       ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeBookingNotCompleted   ErrorCode = "BOOKING_NOT_COMPLETED"
	ErrCodeJobNotFound           ErrorCode = "JOB_NOT_FOUND"
	ErrCodeClientNotFound        ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodeInvoiceNotFound       ErrorCode = "INVOICE_NOT_FOUND"
	ErrCodeInvoiceNotNeeded      ErrorCode = "INVOICE_NOT_NEEDED"
	ErrCodeInvoiceAlreadyExists  ErrorCode = "INVOICE_ALREADY_EXISTS"
	ErrCodeInvalidInvoiceStatus  ErrorCode = "INVALID_INVOICE_STATUS"
	ErrCodePartialPaymentSync    ErrorCode = "PARTIAL_PAYMENT_SYNC"
	ErrCodeRecordNotFound        ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeBusinessRuleViolation ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeAuthentication        ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeResourceNotFound      ErrorCode = "RESOURCE_NOT_FOUND"
)

// Technical errors
const (
	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed          ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout                  ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed          ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDatabaseDeleteFailed          ErrorCode = "DATABASE_DELETE_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchIndexFailed             ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeInvoiceNumberFailed           ErrorCode = "INVOICE_NUMBER_FAILED"
	ErrCodeNotificationSendFailed        ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEventPublishFailed            ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeCacheFailed                   ErrorCode = "CACHE_FAILED"
	ErrCodeExternalService               ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                       ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal                      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the error the StandardError was built from, so worker
// sentinels still match with errors.Is after normalization.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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
// 3. Error Catalog
// ==========================

type codeInfo struct {
	message string
	retries int
}

// catalog lists every code a worker may surface. Codes with retries > 0
// are failed back to the broker; the rest are thrown as BPMN errors.
var catalog = map[ErrorCode]codeInfo{
	ErrCodeInvalidInput:          {"Job variables failed validation", 0},
	ErrCodeEstimateInputInvalid:  {"Estimate parameters are invalid", 0},
	ErrCodeInvalidTransition:     {"Booking status transition not allowed", 0},
	ErrCodeUnknownAction:         {"Unknown booking action", 0},
	ErrCodePaymentDateRequired:   {"Payment date is required for paid jobs", 0},
	ErrCodeInvalidPeriod:         {"Invalid finance period", 0},
	ErrCodeBookingNotFound:       {"Booking not found", 0},
	ErrCodeBookingNotCompleted:   {"Booking is not completed", 0},
	ErrCodeJobNotFound:           {"Job not found", 0},
	ErrCodeClientNotFound:        {"Client not found", 0},
	ErrCodeInvoiceNotFound:       {"Invoice not found", 0},
	ErrCodeInvoiceNotNeeded:      {"Booking does not need an invoice", 0},
	ErrCodeInvoiceAlreadyExists:  {"Invoice already exists", 0},
	ErrCodeInvalidInvoiceStatus:  {"Invalid invoice status", 0},
	ErrCodePartialPaymentSync:    {"Job payment only partially synchronized", 0},
	ErrCodeRecordNotFound:        {"Record not found", 0},
	ErrCodeBusinessRuleViolation: {"Business rule violation", 0},
	ErrCodeAuthentication:        {"Authentication failed", 0},
	ErrCodeResourceNotFound:      {"Resource not found", 0},

	ErrCodeDatabaseConnectionFailed:      {"Database connection error", 3},
	ErrCodeQueryExecutionFailed:          {"Database query execution error", 3},
	ErrCodeDatabaseInsertFailed:          {"Database write error", 3},
	ErrCodeDatabaseDeleteFailed:          {"Database delete error", 3},
	ErrCodeElasticsearchConnectionFailed: {"Elasticsearch connection error", 3},
	ErrCodeSearchQueryFailed:             {"Invoice search failed", 3},
	ErrCodeSearchIndexFailed:             {"Invoice indexing failed", 3},
	ErrCodeInvoiceNumberFailed:           {"Invoice number could not be allocated", 3},
	ErrCodeNotificationSendFailed:        {"Notification delivery failed", 3},
	ErrCodeEventPublishFailed:            {"Event publishing failed", 3},
	ErrCodeCacheFailed:                   {"Cache operation failed", 3},
	ErrCodeExternalService:               {"External service error", 3},

	ErrCodeQueryTimeout: {"Database query timeout", 2},
	ErrCodeTimeout:      {"Operation timed out", 2},
}

// IsKnownCode reports whether code is part of the catalog.
func IsKnownCode(code ErrorCode) bool {
	_, ok := catalog[code]
	return ok
}

// ==========================
// 4. Error Constructors
// ==========================

// New builds a StandardError for a catalogued code. Retryability follows the catalog.
func New(code ErrorCode, details string) *StandardError {
	info, ok := catalog[code]
	if !ok {
		info = codeInfo{message: "Unexpected error"}
	}
	return &StandardError{
		Code:      code,
		Message:   info.message,
		Details:   details,
		Retryable: info.retries > 0,
		Timestamp: time.Now().UTC(),
	}
}

// Wrap builds a StandardError for code keeping err as its cause.
func Wrap(code ErrorCode, err error) *StandardError {
	stdErr := New(code, err.Error())
	stdErr.cause = err
	return stdErr
}

// NewInvalidInputError creates a non-retryable validation error.
func NewInvalidInputError(details string, violations []string) *StandardError {
	stdErr := New(ErrCodeInvalidInput, details)
	if len(violations) > 0 {
		stdErr.Metadata = map[string]interface{}{"violations": violations}
	}
	return stdErr
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	stdErr := Wrap(ErrCodeQueryExecutionFailed, err)
	stdErr.Details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	return stdErr
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	stdErr := Wrap(ErrCodeNotificationSendFailed, err)
	stdErr.Details = fmt.Sprintf("channel: %s, error: %s", channel, err.Error())
	return stdErr
}

func NewBusinessRuleError(message, details string) *StandardError {
	stdErr := New(ErrCodeBusinessRuleViolation, details)
	stdErr.Message = message
	return stdErr
}

func NewExternalServiceError(service string, err error) *StandardError {
	stdErr := Wrap(ErrCodeExternalService, err)
	stdErr.Message = fmt.Sprintf("External service '%s' error", service)
	return stdErr
}

func NewTimeoutError(service string, err error) *StandardError {
	stdErr := Wrap(ErrCodeTimeout, err)
	stdErr.Message = fmt.Sprintf("Service '%s' timeout", service)
	return stdErr
}

func NewResourceNotFoundError(service, details string) *StandardError {
	stdErr := New(ErrCodeResourceNotFound, details)
	stdErr.Message = fmt.Sprintf("Resource not found in %s", service)
	return stdErr
}

func NewAuthenticationError(details string) *StandardError {
	return New(ErrCodeAuthentication, details)
}

// Normalize turns any worker error into a StandardError. A StandardError in
// the chain wins; otherwise the first error in the chain whose text is a
// catalogued code (the errors.New("CODE") sentinels) decides the code.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrCodeTimeout, err)
	}

	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if code := ErrorCode(e.Error()); IsKnownCode(code) {
			return Wrap(code, err)
		}
	}

	return Wrap(ErrCodeInternal, err)
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	return catalog[code].retries
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
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
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 6. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "EVENT"):
		return "MESSAGING"
	case strings.Contains(codeStr, "INVOICE") || strings.Contains(codeStr, "PAYMENT"):
		return "BILLING"
	case strings.Contains(codeStr, "BOOKING") || strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "JOB"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
