// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// ExecQuery addresses a resource through query parameters
// (/api/v1/exec?resource=products&resourceId=P1).
type ExecQuery struct {
	Resource   string `form:"resource"`
	ResourceID string `form:"resourceId"`
}

// PayloadForm is the form-encoded request body used by browser clients: the
// JSON document travels in the payload field.
type PayloadForm struct {
	Payload string `form:"payload"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
