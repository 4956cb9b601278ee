package dto

// Protocol error codes returned in the "error" field of APIResponse. The
// strings must match the reference solving API byte for byte; note the
// unknown-task code carries an ERROR_ prefix while the task-level unsolvable
// code does not.
const (
	ErrCodeNoImage      = "NO_IMAGE"
	ErrCodeImageType    = "ERROR_IMAGE_TYPE"
	ErrCodeNotSupported = "ERROR_RECAPTCHA_NOT_SUPPORTED"
	ErrCodeWrongMethod  = "ERROR_WRONG_METHOD"
	ErrCodeUnknownTask  = "ERROR_CAPTCHA_UNSOLVABLE"
	RequestNotReady     = "CAPCHA_NOT_READY"
	RequestDummyBalance = "100.00"
)

// APIResponse is the wire shape shared by /in.php and /res.php.
type APIResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request,omitempty"`
	Error   string `json:"error,omitempty"`
}

func OK(request string) APIResponse {
	return APIResponse{Status: 1, Request: request}
}

func NotReady() APIResponse {
	return APIResponse{Status: 0, Request: RequestNotReady}
}

func Fail(code string) APIResponse {
	return APIResponse{Status: 0, Error: code}
}

type HealthResponse struct {
	Status  string          `json:"status"`
	Store   bool            `json:"store"`
	Engines map[string]bool `json:"engines"`
}

type StatsResponse struct {
	ActiveTasks      int      `json:"active_tasks"`
	Engines          []string `json:"engines"`
	TempStorageBytes int64    `json:"temp_storage_bytes"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
