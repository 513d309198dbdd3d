package dto

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh an access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateReportRequest represents the request to submit a lost or found report
type CreateReportRequest struct {
	Kind          string  `json:"kind" binding:"required"`
	ItemName      string  `json:"item_name" binding:"required"`
	Location      string  `json:"location" binding:"required"`
	Description   string  `json:"description"`
	DateLostFound *string `json:"date_lost_found"`
}

// UpdateReportRequest represents the request to edit a pending report;
// nil fields are left unchanged
type UpdateReportRequest struct {
	ItemName    *string `json:"item_name"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// DecideReportRequest represents an admin decision on a pending report
type DecideReportRequest struct {
	Approve bool `json:"approve"`
}

// CreateClaimRequest represents the request to claim a reported item
type CreateClaimRequest struct {
	ReportID string `json:"report_id" binding:"required"`
}

// DecideClaimRequest represents an admin decision on a pending claim
type DecideClaimRequest struct {
	Approve bool   `json:"approve"`
	Remarks string `json:"remarks"`
}

// UpdateMatchStatusRequest represents the request to confirm or reject a match
type UpdateMatchStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
