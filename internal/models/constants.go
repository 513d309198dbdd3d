package models

// Role — закрытое перечисление ролей. Сравнение в бизнес-логике допускается
// только через значения этого типа, без строковых литералов по слоям.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole преобразует строку в Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// IsAdmin сообщает, является ли роль административной.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ReportKind константы типов заявок
const (
	ReportKindLost  = "lost"
	ReportKindFound = "found"
)

// ReportStatus константы статусов заявок
const (
	ReportStatusPending  = "pending"
	ReportStatusApproved = "approved"
	ReportStatusMatched  = "matched"
	ReportStatusClaimed  = "claimed"
	ReportStatusRejected = "rejected"
)

// ClaimStatus константы статусов заявлений на выдачу
const (
	ClaimStatusPending  = "pending"
	ClaimStatusClaimed  = "claimed"
	ClaimStatusRejected = "rejected"
)

// MatchStatus константы статусов сопоставлений
const (
	MatchStatusPending   = "pending"
	MatchStatusConfirmed = "confirmed"
	MatchStatusRejected  = "rejected"
)

// NotificationStatus константы статусов уведомлений
const (
	NotificationStatusUnread = "unread"
	NotificationStatusRead   = "read"
)

// ValidReportKinds список валидных типов заявок
var ValidReportKinds = map[string]struct{}{
	ReportKindLost:  {},
	ReportKindFound: {},
}

// ValidReportStatuses список валидных статусов заявок
var ValidReportStatuses = map[string]struct{}{
	ReportStatusPending:  {},
	ReportStatusApproved: {},
	ReportStatusMatched:  {},
	ReportStatusClaimed:  {},
	ReportStatusRejected: {},
}

// ValidMatchStatuses список валидных статусов сопоставлений
var ValidMatchStatuses = map[string]struct{}{
	MatchStatusPending:   {},
	MatchStatusConfirmed: {},
	MatchStatusRejected:  {},
}

// ValidNotificationStatuses список валидных статусов уведомлений
var ValidNotificationStatuses = map[string]struct{}{
	NotificationStatusUnread: {},
	NotificationStatusRead:   {},
}

// OppositeKind возвращает противоположный тип заявки.
func OppositeKind(kind string) string {
	if kind == ReportKindLost {
		return ReportKindFound
	}
	return ReportKindLost
}
