package models

import (
	"time"

	"github.com/google/uuid"
)

// Report описывает заявку о потерянной или найденной вещи.
type Report struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Kind          string     `db:"kind" json:"kind"`
	ItemName      string     `db:"item_name" json:"item_name"`
	Location      string     `db:"location" json:"location"`
	Description   string     `db:"description" json:"description"`
	Status        string     `db:"status" json:"status"`
	DateLostFound *string    `db:"date_lost_found" json:"date_lost_found,omitempty"`
	SurrenderCode *string    `db:"surrender_code" json:"surrender_code,omitempty"`
	ReportedAt    time.Time  `db:"reported_at" json:"reported_at"`
	ResolvedAt    *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	IsDeleted     bool       `db:"is_deleted" json:"is_deleted"`

	// Заполняется при выборке, не хранится в таблице reports.
	ReporterName string     `db:"reporter_name" json:"reporter_name,omitempty"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Images       []Image    `db:"-" json:"images,omitempty"`
}

// ReportSchedule хранит расписание предупреждений и удаления для lost-заявки.
// Для одной заявки существует не более одной записи; повторно не создаётся.
type ReportSchedule struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ReportID         uuid.UUID `db:"report_id" json:"report_id"`
	FirstWarningAt   time.Time `db:"first_warning_at" json:"first_warning_at"`
	FinalWarningAt   time.Time `db:"final_warning_at" json:"final_warning_at"`
	DeleteAt         time.Time `db:"delete_at" json:"delete_at"`
	FirstWarningSent bool      `db:"first_warning_sent" json:"first_warning_sent"`
	FinalWarningSent bool      `db:"final_warning_sent" json:"final_warning_sent"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
