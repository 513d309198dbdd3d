package dto

import (
	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/models"
)

// AuthResponse represents a successful login or refresh
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// ReportResponse represents a report with its attached images
type ReportResponse struct {
	*models.Report
}

// ClaimCodeResponse represents the claim code issued for an approved claim
type ClaimCodeResponse struct {
	ReportID  uuid.UUID `json:"report_id"`
	ClaimCode string    `json:"claim_code"`
}

// MatchResponse represents a match with its confidence label
type MatchResponse struct {
	*models.Match
	ConfidenceLabel string `json:"confidence_label"`
}

// NewMatchResponse creates a MatchResponse with the confidence label filled in
func NewMatchResponse(m *models.Match) *MatchResponse {
	return &MatchResponse{
		Match:           m,
		ConfidenceLabel: m.Confidence.Label(),
	}
}

// UploadResponse represents a stored report image
type UploadResponse struct {
	Image *models.Image `json:"image"`
}
