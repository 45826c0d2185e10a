package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	pgrepo "github.com/yoockh/labourline/internal/repositories/postgres"
	"github.com/yoockh/labourline/internal/sessions"
	"github.com/yoockh/labourline/internal/utils"
)

// Transcriber converts a recording reference to text. locale is advisory.
type Transcriber interface {
	Transcribe(ctx context.Context, callID, field, ref, locale string) (string, error)
}

// FinalizeService turns a finalizing session into a profile, matches and an SMS.
type FinalizeService interface {
	// Run finalizes callID at most once. A session that is missing, not
	// finalizing or already claimed is a no-op.
	Run(ctx context.Context, callID string) error
	Abandoner
}

// Pipeline step names, as stored on failure records.
const (
	StepTranscribe = "transcribe"
	StepPersist    = "persist"
	StepMatch      = "match"
	StepNotify     = "notify"
	StepCallLog    = "call_log"
	StepDispatch   = "dispatch"
)

var (
	errAlreadyClaimed = errors.New("session already claimed")
	errNotFinalizing  = errors.New("session is not finalizing")
)

type FinalizeConfig struct {
	// TranscriptionLocale is requested for every answer regardless of the
	// prompt language: trades and places are spoken in a common language.
	TranscriptionLocale string
	// StepTimeout bounds each step's collaborator calls. Zero means no bound.
	StepTimeout time.Duration
}

type finalizeService struct {
	store         sessions.Store
	transcriber   Transcriber
	workers       pgrepo.WorkerRepository
	jobs          pgrepo.JobRepository
	matching      MatchingService
	notifications NotificationService
	callLogs      CallLogService
	telemetry     TelemetryService
	failures      pgrepo.PipelineFailureRepository
	cfg           FinalizeConfig
	log           *logrus.Logger
	now           func() time.Time
}

func NewFinalizeService(
	store sessions.Store,
	transcriber Transcriber,
	workers pgrepo.WorkerRepository,
	jobs pgrepo.JobRepository,
	matching MatchingService,
	notifications NotificationService,
	callLogs CallLogService,
	telemetry TelemetryService,
	failures pgrepo.PipelineFailureRepository,
	cfg FinalizeConfig,
	log *logrus.Logger,
) FinalizeService {
	if cfg.TranscriptionLocale == "" {
		cfg.TranscriptionLocale = "en-IN"
	}
	return &finalizeService{
		store:         store,
		transcriber:   transcriber,
		workers:       workers,
		jobs:          jobs,
		matching:      matching,
		notifications: notifications,
		callLogs:      callLogs,
		telemetry:     telemetry,
		failures:      failures,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

// pipelineRun is the state of one finalization attempt.
type pipelineRun struct {
	session   *models.CallSession
	step      string
	completed []string

	values  map[string]string
	worker  *models.Worker
	job     *models.Job
	matches []models.MatchCandidate
}

func (r *pipelineRun) side() models.MatchSide {
	if r.session.Purpose == models.PurposeEmployer {
		return models.SideWorkers
	}
	return models.SideJobs
}

func (p *finalizeService) Run(ctx context.Context, callID string) error {
	const op = "FinalizeService.Run"

	log := p.log.WithField("call_id", callID)

	s, err := p.claim(ctx, callID)
	if err != nil {
		if sessions.IsNotFound(err) || errors.Is(err, errAlreadyClaimed) || errors.Is(err, errNotFinalizing) {
			log.WithError(err).Debug("finalization skipped")
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to claim session", err)
	}

	log = log.WithFields(logrus.Fields{"purpose": s.Purpose, "language": s.Language})
	log.Info("finalization started")

	run := &pipelineRun{session: s, values: map[string]string{}}
	if err := p.execute(ctx, run); err != nil {
		log.WithError(err).WithField("step", run.step).Error("finalization failed")
		p.fail(ctx, run, err)
		return utils.E(utils.CodePipelineFailed, op, "finalization failed at "+run.step, err)
	}

	p.release(ctx, callID)
	log.Info("finalization done")
	return nil
}

func (p *finalizeService) Abandon(ctx context.Context, callID string, cause error) {
	s, err := p.claim(ctx, callID)
	if err != nil {
		p.log.WithError(err).WithField("call_id", callID).Debug("nothing to abandon")
		return
	}
	p.fail(ctx, &pipelineRun{session: s, step: StepDispatch}, cause)
}

func (p *finalizeService) claim(ctx context.Context, callID string) (*models.CallSession, error) {
	return p.store.Update(ctx, callID, func(s *models.CallSession) error {
		if s.State != models.StateFinalizing {
			return errNotFinalizing
		}
		if s.Claimed {
			return errAlreadyClaimed
		}
		s.Claimed = true
		return nil
	})
}

// execute runs the steps in order and stops at the first error. A panic in a
// step is returned as that step's error.
func (p *finalizeService) execute(ctx context.Context, run *pipelineRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	steps := []struct {
		name string
		fn   func(context.Context, *pipelineRun) error
	}{
		{StepTranscribe, p.transcribe},
		{StepPersist, p.persist},
		{StepMatch, p.match},
		{StepNotify, p.notify},
		{StepCallLog, p.logCall},
	}

	for _, st := range steps {
		run.step = st.name
		if p.alreadyDone(run.session, st.name) {
			p.log.WithFields(logrus.Fields{"call_id": run.session.CallID, "step": st.name}).Info("step done by an earlier attempt")
			run.completed = append(run.completed, st.name)
			continue
		}
		sctx, cancel := p.stepContext(ctx)
		err := st.fn(sctx, run)
		cancel()
		if err != nil {
			return err
		}
		run.completed = append(run.completed, st.name)
	}
	return nil
}

// alreadyDone reports steps an earlier attempt made unnecessary to repeat.
// The SMS is never sent twice; matching only feeds it.
func (p *finalizeService) alreadyDone(s *models.CallSession, step string) bool {
	switch step {
	case StepTranscribe:
		return s.ProfileID != nil && s.HasDone(StepPersist)
	case StepMatch, StepNotify:
		return s.HasDone(StepNotify)
	}
	return false
}

func (p *finalizeService) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.StepTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.StepTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *finalizeService) transcribe(ctx context.Context, run *pipelineRun) error {
	s := run.session
	for _, field := range s.Purpose.Fields() {
		value := p.transcribeField(ctx, s, field)
		run.values[field] = value

		p.telemetry.Publish(ctx, models.CallEvent{
			CallID:  s.CallID,
			Type:    models.EventDataCollected,
			Status:  models.StatusSuccess,
			Message: field + ": " + value,
			Data:    map[string]string{field: value},
		})
	}
	return nil
}

// transcribeField never fails: unusable answers become UnknownValue.
func (p *finalizeService) transcribeField(ctx context.Context, s *models.CallSession, field string) string {
	log := p.log.WithFields(logrus.Fields{"call_id": s.CallID, "field": field})

	ref := s.CollectedFields[field]
	if ref == "" {
		log.Warn("no recording for field")
		return UnknownValue
	}
	text, err := p.transcriber.Transcribe(ctx, s.CallID, field, ref, p.cfg.TranscriptionLocale)
	if err != nil {
		log.WithError(err).Warn("transcription unavailable")
		return UnknownValue
	}
	if !ValidTranscript(text) {
		log.WithField("text", text).Warn("transcription rejected")
		return UnknownValue
	}
	return CleanTranscript(text)
}

func (p *finalizeService) persist(ctx context.Context, run *pipelineRun) error {
	s := run.session

	var (
		id   uint
		kind string
	)
	switch s.Purpose {
	case models.PurposeEmployer:
		kind = "Job"
		if s.ProfileID != nil {
			j, err := p.jobs.GetByID(ctx, *s.ProfileID)
			if err != nil {
				return err
			}
			run.job = j
			id = j.ID
			break
		}
		j := &models.Job{
			PhoneNo:            s.CallerAddress,
			TypeOfWork:         run.values[models.FieldTypeOfWork],
			Location:           run.values[models.FieldLocation],
			LanguagePreference: s.Language,
		}
		if err := p.jobs.Create(ctx, j); err != nil {
			return err
		}
		run.job = j
		id = j.ID
	default:
		kind = "Worker"
		if s.ProfileID != nil {
			w, err := p.workers.GetByID(ctx, *s.ProfileID)
			if err != nil {
				return err
			}
			run.worker = w
			id = w.ID
			break
		}
		w := &models.Worker{
			PhoneNo:            s.CallerAddress,
			Name:               run.values[models.FieldName],
			WorkExpertise:      run.values[models.FieldWorkExpertise],
			Location:           run.values[models.FieldLocation],
			LanguagePreference: s.Language,
		}
		if err := p.workers.Create(ctx, w); err != nil {
			return err
		}
		run.worker = w
		id = w.ID
	}

	s.ProfileID = &id
	if _, err := p.store.Update(ctx, s.CallID, func(cur *models.CallSession) error {
		cur.ProfileID = &id
		return nil
	}); err != nil {
		p.log.WithError(err).WithField("call_id", s.CallID).Warn("failed to record profile id on session")
	}

	p.telemetry.Publish(ctx, models.CallEvent{
		CallID:  s.CallID,
		Type:    models.EventDBSave,
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Saved to database (%s #%d)", kind, id),
		Data:    map[string]string{"profile_type": kind, "profile_id": strconv.FormatUint(uint64(id), 10)},
	})
	return nil
}

func (p *finalizeService) match(ctx context.Context, run *pipelineRun) error {
	q := MatchQuery{Side: run.side()}
	if run.job != nil {
		q.Skill, q.Location, q.Wage = run.job.TypeOfWork, run.job.Location, run.job.WagesOffered
	} else if run.worker != nil {
		q.Skill, q.Location, q.Wage = run.worker.WorkExpertise, run.worker.Location, run.worker.PreferredWage
	}

	run.matches = p.matching.FindMatches(ctx, q)

	p.telemetry.Publish(ctx, models.CallEvent{
		CallID:  run.session.CallID,
		Type:    models.EventMatching,
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Found %d matches", len(run.matches)),
	})
	return nil
}

func (p *finalizeService) notify(ctx context.Context, run *pipelineRun) error {
	s := run.session
	if err := p.notifications.SendMatches(ctx, s.CallerAddress, run.side(), run.matches, s.Language); err != nil {
		return err
	}
	p.telemetry.Publish(ctx, models.CallEvent{
		CallID:  s.CallID,
		Type:    models.EventSMSSent,
		Status:  models.StatusSuccess,
		PhoneNo: s.CallerAddress,
		Message: "SMS sent to " + s.CallerAddress,
	})
	return nil
}

func (p *finalizeService) logCall(ctx context.Context, run *pipelineRun) error {
	s := run.session
	duration := s.DurationSeconds(p.now())
	if err := p.callLogs.Record(ctx, CallLogEntry{
		CallID:          s.CallID,
		CallerAddress:   s.CallerAddress,
		Purpose:         s.Purpose,
		Language:        s.Language,
		DurationSeconds: duration,
		Status:          models.CallCompleted,
	}); err != nil {
		return err
	}
	p.telemetry.Publish(ctx, models.CallEvent{
		CallID:  s.CallID,
		Type:    models.EventCallComplete,
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Call completed (Duration: %ds)", duration),
	})
	return nil
}

// fail reports a failed run, writes a failed call log and a dead-letter row,
// then releases the session. Each part is best effort.
func (p *finalizeService) fail(ctx context.Context, run *pipelineRun, cause error) {
	s := run.session
	log := p.log.WithFields(logrus.Fields{"call_id": s.CallID, "step": run.step})

	p.telemetry.Publish(ctx, models.CallEvent{
		CallID:  s.CallID,
		Type:    models.EventError,
		Status:  models.StatusError,
		Message: "Error: " + cause.Error(),
		Data:    map[string]string{"step": run.step},
	})

	if err := p.callLogs.Record(ctx, CallLogEntry{
		CallID:          s.CallID,
		CallerAddress:   s.CallerAddress,
		Purpose:         s.Purpose,
		Language:        s.Language,
		DurationSeconds: s.DurationSeconds(p.now()),
		Status:          models.CallFailed,
	}); err != nil {
		log.WithError(err).Warn("failed to log failed call")
	}

	if p.failures != nil {
		snapshot, err := json.Marshal(s)
		if err != nil {
			log.WithError(err).Warn("failed to encode session snapshot")
		}
		f := &models.PipelineFailure{
			CallID:         s.CallID,
			PhoneNo:        s.CallerAddress,
			CallPurpose:    s.Purpose,
			Language:       s.Language,
			FailedStep:     run.step,
			CompletedSteps: run.completed,
			Error:          cause.Error(),
			ProfileID:      s.ProfileID,
			Snapshot:       snapshot,
		}
		if err := p.failures.Create(ctx, f); err != nil {
			log.WithError(err).Warn("failed to record pipeline failure")
		}
	}

	p.release(ctx, s.CallID)
}

func (p *finalizeService) release(ctx context.Context, callID string) {
	if err := p.store.Remove(ctx, callID); err != nil {
		p.log.WithError(err).WithField("call_id", callID).Warn("failed to release session")
	}
}
