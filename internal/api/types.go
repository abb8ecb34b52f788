package api

// AlertResponse is the payload for a handled alert.
type AlertResponse struct {
	Status    string `json:"status"` // "published" | "skipped"
	Text      string `json:"text"`
	RequestID string `json:"request_id"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Live      bool   `json:"live"`
	Overrides int    `json:"overrides"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
