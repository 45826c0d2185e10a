package services

import (
	"context"

	"github.com/yoockh/labourline/internal/models"
	pgrepo "github.com/yoockh/labourline/internal/repositories/postgres"
	"github.com/yoockh/labourline/internal/utils"
)

type CallLogEntry struct {
	CallID          string
	CallerAddress   string
	Purpose         models.Purpose
	Language        models.Language
	DurationSeconds int
	Status          models.CallStatus
}

// CallLogService records the outcome of each call for analytics.
type CallLogService interface {
	Record(ctx context.Context, e CallLogEntry) error
}

type callLogService struct {
	logs pgrepo.CallLogRepository
}

func NewCallLogService(logs pgrepo.CallLogRepository) CallLogService {
	return &callLogService{logs: logs}
}

func (s *callLogService) Record(ctx context.Context, e CallLogEntry) error {
	const op = "CallLogService.Record"

	switch e.Status {
	case models.CallCompleted, models.CallDropped, models.CallFailed:
	default:
		return utils.E(utils.CodeInvalidArgument, op, "status must be completed, dropped or failed", nil)
	}
	if e.DurationSeconds < 0 {
		e.DurationSeconds = 0
	}

	l := &models.CallLog{
		CallID:           e.CallID,
		PhoneNo:          e.CallerAddress,
		CallPurpose:      e.Purpose,
		LanguageSelected: e.Language,
		CallDuration:     e.DurationSeconds,
		Status:           e.Status,
	}
	if err := s.logs.Save(ctx, l); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save call log", err)
	}
	return nil
}
