package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	pgrepo "github.com/yoockh/labourline/internal/repositories/postgres"
	"github.com/yoockh/labourline/internal/sessions"
	"github.com/yoockh/labourline/internal/utils"
)

// FailureService exposes dead-lettered finalizations to operators.
type FailureService interface {
	ListUnresolved(ctx context.Context, limit int) ([]models.PipelineFailure, error)
	// Replay restores the session captured at failure time and dispatches it
	// again. A profile saved by the failed run is reused.
	Replay(ctx context.Context, id uint) error
}

type failureService struct {
	failures   pgrepo.PipelineFailureRepository
	store      sessions.Store
	dispatcher FinalizeDispatcher
	log        *logrus.Logger
	now        func() time.Time
}

func NewFailureService(failures pgrepo.PipelineFailureRepository, store sessions.Store, dispatcher FinalizeDispatcher, log *logrus.Logger) FailureService {
	return &failureService{failures: failures, store: store, dispatcher: dispatcher, log: log, now: time.Now}
}

func (s *failureService) ListUnresolved(ctx context.Context, limit int) ([]models.PipelineFailure, error) {
	const op = "FailureService.ListUnresolved"

	out, err := s.failures.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list pipeline failures", err)
	}
	return out, nil
}

func (s *failureService) Replay(ctx context.Context, id uint) error {
	const op = "FailureService.Replay"

	f, err := s.failures.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "pipeline failure not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load pipeline failure", err)
	}
	if f.Resolved {
		return utils.E(utils.CodeConflict, op, "pipeline failure already resolved", nil)
	}

	var sess models.CallSession
	if err := json.Unmarshal(f.Snapshot, &sess); err != nil {
		return utils.E(utils.CodeInternal, op, "corrupt session snapshot", err)
	}
	if sess.CallID == "" {
		sess.CallID = f.CallID
	}
	sess.State = models.StateFinalizing
	sess.Claimed = false
	if f.ProfileID != nil {
		sess.ProfileID = f.ProfileID
	}
	sess.DoneSteps = append([]string(nil), f.CompletedSteps...)

	// Resolving first is the claim: of two concurrent replays only one gets here.
	if err := s.failures.MarkResolved(ctx, id, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeConflict, op, "pipeline failure already resolved", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to claim pipeline failure", err)
	}

	log := s.log.WithFields(logrus.Fields{"failure_id": id, "call_id": sess.CallID})

	if err := s.store.Put(ctx, &sess); err != nil {
		s.reopen(ctx, id, log)
		return utils.E(utils.CodeUnavailable, op, "failed to restore session", err)
	}
	if err := s.dispatcher.Dispatch(ctx, sess.CallID); err != nil {
		_ = s.store.Remove(ctx, sess.CallID)
		s.reopen(ctx, id, log)
		return utils.E(utils.CodeUnavailable, op, "failed to dispatch finalization", err)
	}

	log.WithField("done_steps", sess.DoneSteps).Info("finalization replayed")
	return nil
}

func (s *failureService) reopen(ctx context.Context, id uint, log *logrus.Entry) {
	if err := s.failures.Reopen(ctx, id); err != nil {
		log.WithError(err).Error("failed to reopen pipeline failure after aborted replay")
	}
}
