package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// StatusResponse is returned by endpoints that acknowledge an action without
// returning a resource.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
