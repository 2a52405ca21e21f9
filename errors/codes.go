package errors

// ErrorCode is the machine-readable code returned in error bodies
type ErrorCode int

const (
	ErrorCode_HTTP_OK          ErrorCode = 200
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1003

	ErrorCode_JOB_NOT_FOUND        ErrorCode = 3000
	ErrorCode_RESULT_NOT_READY     ErrorCode = 3001
	ErrorCode_VALIDATION_FAILED    ErrorCode = 3002
	ErrorCode_PROVIDER_UNAVAILABLE ErrorCode = 3003
	ErrorCode_RESULT_PARSE_FAILED  ErrorCode = 3004
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:              "HTTP_OK",
	ErrorCode_INTERNAL:             "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:     "INVALID_ARGUMENT",
	ErrorCode_INVALID_PAYLOAD:      "INVALID_PAYLOAD",
	ErrorCode_JOB_NOT_FOUND:        "JOB_NOT_FOUND",
	ErrorCode_RESULT_NOT_READY:     "RESULT_NOT_READY",
	ErrorCode_VALIDATION_FAILED:    "VALIDATION_FAILED",
	ErrorCode_PROVIDER_UNAVAILABLE: "PROVIDER_UNAVAILABLE",
	ErrorCode_RESULT_PARSE_FAILED:  "RESULT_PARSE_FAILED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
