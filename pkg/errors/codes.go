package errors

import "net/http"

// ErrorCode identifies a specific failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeStorageError       ErrorCode = "COMMON_011"
)

// Fact module error codes
const (
	ErrCodeFactNotFound   ErrorCode = "FACT_001"
	ErrCodeFactDeleted    ErrorCode = "FACT_002"
	ErrCodeInvalidRange   ErrorCode = "FACT_003"
	ErrCodeInvalidStatus  ErrorCode = "FACT_004"
	ErrCodeAnchorConflict ErrorCode = "FACT_005"
)

// Source module error codes
const (
	ErrCodeSourceNotFound     ErrorCode = "SRC_001"
	ErrCodeContentUnavailable ErrorCode = "SRC_002"
	ErrCodeFormatUnsupported  ErrorCode = "SRC_003"
	ErrCodeBlobFetchFailed    ErrorCode = "SRC_004"
)

// Dedup module error codes
const (
	ErrCodeDedupFailed           ErrorCode = "DEDUP_001"
	ErrCodeThresholdOutOfRange   ErrorCode = "DEDUP_002"
	ErrCodeSimilarityCompute     ErrorCode = "DEDUP_003"
	ErrCodeGroupApplyFailed      ErrorCode = "DEDUP_004"
	ErrCodeLimitOutOfRange       ErrorCode = "DEDUP_005"
	ErrCodeSimilarityUnsupported ErrorCode = "DEDUP_006"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,

	ErrCodeFactNotFound:   http.StatusNotFound,
	ErrCodeFactDeleted:    http.StatusGone,
	ErrCodeInvalidRange:   http.StatusBadRequest,
	ErrCodeInvalidStatus:  http.StatusBadRequest,
	ErrCodeAnchorConflict: http.StatusConflict,

	ErrCodeSourceNotFound:     http.StatusNotFound,
	ErrCodeContentUnavailable: http.StatusConflict,
	ErrCodeFormatUnsupported:  http.StatusBadRequest,
	ErrCodeBlobFetchFailed:    http.StatusBadGateway,

	ErrCodeDedupFailed:           http.StatusInternalServerError,
	ErrCodeThresholdOutOfRange:   http.StatusBadRequest,
	ErrCodeSimilarityCompute:     http.StatusInternalServerError,
	ErrCodeGroupApplyFailed:      http.StatusInternalServerError,
	ErrCodeLimitOutOfRange:       http.StatusBadRequest,
	ErrCodeSimilarityUnsupported: http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeStorageError:       "object storage error",

	ErrCodeFactNotFound:   "fact not found",
	ErrCodeFactDeleted:    "fact has been deleted",
	ErrCodeInvalidRange:   "span out of bounds",
	ErrCodeInvalidStatus:  "invalid review status",
	ErrCodeAnchorConflict: "anchor conflicts with stored anchor",

	ErrCodeSourceNotFound:     "source document not found",
	ErrCodeContentUnavailable: "source has no content in requested format",
	ErrCodeFormatUnsupported:  "unsupported content format",
	ErrCodeBlobFetchFailed:    "failed to fetch content blob",

	ErrCodeDedupFailed:           "deduplication run failed",
	ErrCodeThresholdOutOfRange:   "similarity threshold out of range",
	ErrCodeSimilarityCompute:     "similarity computation failed",
	ErrCodeGroupApplyFailed:      "failed to apply duplicate group",
	ErrCodeLimitOutOfRange:       "fact limit out of range",
	ErrCodeSimilarityUnsupported: "unsupported similarity metric",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}
