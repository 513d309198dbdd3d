package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification описывает запись в журнале уведомлений. Запись создаётся один
// раз и меняется только отметкой о прочтении.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ReportID  uuid.UUID `db:"report_id" json:"report_id"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
