package model

// TokenListResponse is the envelope for token list endpoints.
type TokenListResponse struct {
	Resource []AccessToken `json:"resource"`
	Count    int           `json:"count"`
}

// IssuedTokenResponse is returned exactly once by token issuance. Credential
// carries the raw `<id>.<secret>` string; no other endpoint ever returns it.
type IssuedTokenResponse struct {
	Token      AccessToken `json:"token"`
	Credential string      `json:"credential"`
}

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
