package models

// Device - one device on the pushbullet account
type Device struct {
	Iden     string `json:"iden"`
	Nickname string `json:"nickname"`
	Model    string `json:"model"`
	Active   bool   `json:"active"`
	HasSMS   bool   `json:"has_sms"`
}

// BulkSendRequest is the gateway's send payload. Exactly one of Groups or
// Numbers must be set; a flat Numbers list is treated as a single group.
type BulkSendRequest struct {
	Message string              `json:"message" binding:"required"`
	Groups  map[string][]string `json:"groups"`
	Numbers []string            `json:"numbers"`
}

// SendOutcome is the JSON view of one recipient's result.
type SendOutcome struct {
	Group     string `json:"group"`
	Number    string `json:"number"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type BulkSendResponse struct {
	Sent    int           `json:"sent"`
	Failed  int           `json:"failed"`
	Results []SendOutcome `json:"results"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
