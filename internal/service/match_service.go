package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/metrics"
	"github.com/recorever/recorever-backend/internal/models"
	"github.com/recorever/recorever-backend/internal/pkg/apperror"
	"github.com/recorever/recorever-backend/internal/repository"
)

// MatchCandidateStore возвращает кандидатов на сопоставление.
type MatchCandidateStore interface {
	ListApprovedByKind(ctx context.Context, kind string, excludeID uuid.UUID) ([]models.Report, error)
}

// MatchStore описывает взаимодействие сервиса с хранилищем сопоставлений.
type MatchStore interface {
	CreateForPair(ctx context.Context, p repository.PairParams) (*repository.PairResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	List(ctx context.Context, limit, offset int) ([]models.Match, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// LiveNotifier доставляет уже записанные уведомления live.
type LiveNotifier interface {
	PushLive(notifications []models.Notification, privateUpdate bool)
}

// MatchService сопоставляет одобренные lost/found заявки по эвристике:
// вхождение имён, равенство локаций и пересечение ключевых слов описаний.
type MatchService struct {
	reports  MatchCandidateStore
	matches  MatchStore
	notifier LiveNotifier
}

// NewMatchService создаёт сервис сопоставления.
func NewMatchService(reports MatchCandidateStore, matches MatchStore, notifier LiveNotifier) *MatchService {
	return &MatchService{reports: reports, matches: matches, notifier: notifier}
}

// OnReportApproved подбирает пару для только что одобренной заявки.
// Берётся первый кандидат, чьё имя предмета содержит имя новой заявки или
// содержится в нём; ранжирования нескольких кандидатов нет. Вторичные
// сигналы (локация, описание) влияют только на уровень уверенности: пара
// создаётся при любом уровне, обе заявки переходят в matched, владельцы
// получают уведомления. Возвращает nil, если пара не найдена.
func (s *MatchService) OnReportApproved(ctx context.Context, report *models.Report) (*models.Match, error) {
	candidates, err := s.reports.ListApprovedByKind(ctx, models.OppositeKind(report.Kind), report.ID)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidate := &candidates[i]
		if !namesMatch(report.ItemName, candidate.ItemName) {
			continue
		}

		confidence := s.confidence(report, candidate)

		lost, found := report, candidate
		if report.Kind == models.ReportKindFound {
			lost, found = candidate, report
		}

		result, err := s.matches.CreateForPair(ctx, repository.PairParams{
			LostReportID:  lost.ID,
			FoundReportID: found.ID,
			Confidence:    confidence,
			LostOwnerID:   lost.UserID,
			FoundOwnerID:  found.UserID,
			LostMessage:   matchMessage(confidence, lost.ItemName, found.ID),
			FoundMessage:  matchMessage(confidence, found.ItemName, lost.ID),
		})
		if err != nil {
			// Кандидата успело занять конкурентное сопоставление —
			// переходим к следующему.
			if errors.Is(err, repository.ErrReportStateChanged) {
				continue
			}
			return nil, err
		}

		metrics.MatchesCreated.WithLabelValues(confidenceMetricLabel(confidence)).Inc()
		logger.Log.WithFields(map[string]interface{}{
			"match_id":   result.Match.ID,
			"lost_id":    lost.ID,
			"found_id":   found.ID,
			"confidence": confidence.Label(),
		}).Info("match created")

		s.notifier.PushLive(result.Notifications, true)

		return result.Match, nil
	}

	return nil, nil
}

// confidence вычисляет уровень уверенности по вторичным сигналам.
func (s *MatchService) confidence(a, b *models.Report) models.MatchConfidence {
	locationMatch := locationsMatch(a.Location, b.Location)
	descriptionMatch := descriptionsMatch(a.Description, b.Description)

	switch {
	case locationMatch && descriptionMatch:
		return models.ConfidenceHigh
	case locationMatch || descriptionMatch:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// matchMessage строит текст уведомления владельцу одной из заявок.
func matchMessage(c models.MatchConfidence, itemName string, otherReportID uuid.UUID) string {
	var detail string
	switch c {
	case models.ConfidenceHigh:
		detail = "Name, location, and description are highly similar."
	case models.ConfidenceMedium:
		detail = "Name matched, and either location or description showed similarity."
	default:
		detail = "Name matched, but the reported location or item description is significantly different. Check carefully."
	}

	return fmt.Sprintf("%s: your '%s' has been linked to report %s. Detail: %s",
		c.Label(), itemName, otherReportID, detail)
}

func confidenceMetricLabel(c models.MatchConfidence) string {
	switch c {
	case models.ConfidenceHigh:
		return "high"
	case models.ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// GetMatch возвращает сопоставление по идентификатору.
func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return nil, apperror.ErrMatchNotFound
		}
		return nil, err
	}

	return match, nil
}

// ListMatches возвращает сопоставления с пагинацией.
func (s *MatchService) ListMatches(ctx context.Context, limit, offset int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.matches.List(ctx, limit, offset)
}

// UpdateMatchStatus подтверждает или отклоняет сопоставление.
func (s *MatchService) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status string) error {
	if _, ok := models.ValidMatchStatuses[status]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "invalid match status")
	}

	if err := s.matches.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return apperror.ErrMatchNotFound
		}
		return err
	}

	return nil
}
