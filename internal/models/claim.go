package models

import (
	"time"

	"github.com/google/uuid"
)

// Claim описывает заявление пользователя о праве на найденную вещь.
type Claim struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ReportID     uuid.UUID  `db:"report_id" json:"report_id"`
	ClaimantID   uuid.UUID  `db:"claimant_id" json:"claimant_id"`
	Status       string     `db:"status" json:"status"`
	AdminRemarks *string    `db:"admin_remarks" json:"admin_remarks,omitempty"`
	ClaimCode    *string    `db:"claim_code" json:"claim_code,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt   *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`

	// Заполняется при выборке для админских списков.
	ClaimantName string `db:"claimant_name" json:"claimant_name,omitempty"`
	ItemName     string `db:"item_name" json:"item_name,omitempty"`
}
