package dto

// Response is the envelope every dashboard route answers with
type Response struct {
	Success   bool               `json:"success"`
	Data      any                `json:"data,omitempty"`
	Error     string             `json:"error,omitempty"`
	Message   string             `json:"message,omitempty"`
	Code      string             `json:"code,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
	Meta      *Meta              `json:"meta,omitempty"`
}

// ValidationDetail describes one failed field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries list metadata
type Meta struct {
	Total int `json:"total"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewListResponse creates a success response for a list with its size
func NewListResponse(data any, total int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total},
	}
}

// NewErrorResponse creates an error response. The code is normalized.
func NewErrorResponse(code, errMsg, message string) Response {
	return Response{
		Success: false,
		Error:   errMsg,
		Message: message,
		Code:    NormalizeErrorCode(code),
	}
}

// NewErrorResponseWithRequestID creates an error response carrying the request ID
func NewErrorResponseWithRequestID(code, errMsg, message, requestID string) Response {
	resp := NewErrorResponse(code, errMsg, message)
	resp.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a 400 response listing field failures
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success:   false,
		Error:     "Validation failed",
		Message:   message,
		Code:      ErrCodeValidation,
		RequestID: requestID,
		Details:   details,
	}
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
