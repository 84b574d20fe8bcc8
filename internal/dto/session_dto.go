package dto

import (
	"time"

	"ar-session-core/internal/host"
	"ar-session-core/pkg/session"
)

type CreateSessionRequest struct {
	// UsesLocation selects GPS mode; nil falls back to the server default.
	UsesLocation *bool `json:"uses_location"`
}

type SubmitJobRequest struct {
	ID      string                 `json:"id" validate:"omitempty,max=128"`
	Kind    string                 `json:"kind" validate:"required,max=64"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

type SubmitJobResponse struct {
	JobID string `json:"job_id"`
}

type PermissionAnswerRequest struct {
	// Granted holds one flag per requested capability, in request order.
	Granted []bool `json:"granted" validate:"required,min=1"`
}

type FixRequest struct {
	Latitude  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Altitude  float64  `json:"altitude_m"`
}

type FixResponse struct {
	Delivered bool `json:"delivered"`
}

type SessionResponse struct {
	Session        session.Snapshot     `json:"session"`
	Surface        host.SurfaceStatus   `json:"surface"`
	PendingRequest *host.PendingRequest `json:"pending_request,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}
