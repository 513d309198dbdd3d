package models

import (
	"time"

	"github.com/google/uuid"
)

// Match описывает предложенную системой пару lost/found заявок.
// Создаётся только MatchService и всегда ссылается ровно на одну
// заявку каждого типа.
type Match struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	LostReportID  uuid.UUID       `db:"lost_report_id" json:"lost_report_id"`
	FoundReportID uuid.UUID       `db:"found_report_id" json:"found_report_id"`
	Status        string          `db:"status" json:"status"`
	Confidence    MatchConfidence `db:"confidence" json:"confidence"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// MatchConfidence уровень уверенности сопоставления: сколько вторичных
// сигналов (локация, описание) подтверждают совпадение имён.
type MatchConfidence int

const (
	ConfidenceLow MatchConfidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// Label возвращает текстовую метку уровня уверенности для уведомлений.
func (c MatchConfidence) Label() string {
	switch c {
	case ConfidenceHigh:
		return "High-Confidence Match"
	case ConfidenceMedium:
		return "Medium-Confidence Match"
	default:
		return "Low-Confidence Match"
	}
}
