package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/providers/voice"
	"github.com/yoockh/labourline/internal/sessions"
	"github.com/yoockh/labourline/internal/utils"
)

// CallFlowService drives one call through its prompts. Every method answers
// with the directive to play next; none of them waits on finalization.
type CallFlowService interface {
	Start(ctx context.Context, callID, callerAddress string) voice.Directive
	SelectLanguage(ctx context.Context, callID, digits string) voice.Directive
	SelectPurpose(ctx context.Context, callID, digits string) voice.Directive
	RecordingCompleted(ctx context.Context, callID, field, recordingRef string) voice.Directive
	// CallEnded handles the provider's call-status callback. A caller who hangs
	// up before the last answer is logged as dropped.
	CallEnded(ctx context.Context, callID, providerStatus string) error
}

// FinalizeDispatcher hands a finalizing session to background work. It must not block.
type FinalizeDispatcher interface {
	Dispatch(ctx context.Context, callID string) error
}

// Abandoner releases a session whose finalization could not be dispatched.
type Abandoner interface {
	Abandon(ctx context.Context, callID string, cause error)
}

type callFlowService struct {
	store      sessions.Store
	dispatcher FinalizeDispatcher
	abandoner  Abandoner
	callLogs   CallLogService
	telemetry  TelemetryService
	log        *logrus.Logger
	now        func() time.Time
}

func NewCallFlowService(
	store sessions.Store,
	dispatcher FinalizeDispatcher,
	abandoner Abandoner,
	callLogs CallLogService,
	telemetry TelemetryService,
	log *logrus.Logger,
) CallFlowService {
	return &callFlowService{
		store:      store,
		dispatcher: dispatcher,
		abandoner:  abandoner,
		callLogs:   callLogs,
		telemetry:  telemetry,
		log:        log,
		now:        time.Now,
	}
}

func (f *callFlowService) Start(ctx context.Context, callID, callerAddress string) voice.Directive {
	log := f.log.WithFields(logrus.Fields{"call_id": callID, "step": "welcome"})

	s, err := f.store.Create(ctx, callID, callerAddress)
	if sessions.IsExists(err) {
		// redelivered welcome: keep the session and repeat where the caller is
		cur, gerr := f.store.Get(ctx, callID)
		if gerr != nil {
			log.WithError(gerr).Warn("session vanished after duplicate call start")
			return expired(models.DefaultLanguage)
		}
		log.WithField("state", cur.State).Info("duplicate call start ignored")
		return directiveFor(cur)
	}
	if err != nil {
		log.WithError(err).Error("failed to create call session")
		return expired(models.DefaultLanguage)
	}
	log.WithField("from", callerAddress).Info("call started")

	f.publish(ctx, models.CallEvent{
		CallID:  callID,
		Type:    models.EventCallStart,
		Status:  models.StatusInfo,
		PhoneNo: callerAddress,
		Message: "New call received from " + callerAddress,
	})
	return directiveFor(s)
}

func (f *callFlowService) SelectLanguage(ctx context.Context, callID, digits string) voice.Directive {
	s, d, ok := f.advance(ctx, "CallFlow.SelectLanguage", callID, FlowLanguageDigit, FlowInput{Digits: digits})
	if !ok {
		return d
	}
	f.publish(ctx, models.CallEvent{
		CallID:   callID,
		Type:     models.EventLanguageSelect,
		Status:   models.StatusInfo,
		Language: s.Language,
		Message:  "Language selected: " + s.Language.Name(),
	})
	return d
}

func (f *callFlowService) SelectPurpose(ctx context.Context, callID, digits string) voice.Directive {
	s, d, ok := f.advance(ctx, "CallFlow.SelectPurpose", callID, FlowPurposeDigit, FlowInput{Digits: digits})
	if !ok {
		return d
	}
	msg := "Purpose: Job Seeker (Need Job)"
	if s.Purpose == models.PurposeEmployer {
		msg = "Purpose: Employer (Need Workers)"
	}
	f.publish(ctx, models.CallEvent{
		CallID:  callID,
		Type:    models.EventPurposeSelect,
		Status:  models.StatusInfo,
		Purpose: s.Purpose,
		Message: msg,
	})
	return d
}

func (f *callFlowService) RecordingCompleted(ctx context.Context, callID, field, recordingRef string) voice.Directive {
	const op = "CallFlow.RecordingCompleted"

	var prev models.CallState
	s, err := f.store.Update(ctx, callID, func(s *models.CallSession) error {
		prev = s.State
		return Step(s, FlowRecordingDone, FlowInput{Field: field, RecordingRef: recordingRef})
	})
	if err != nil {
		return f.reject(ctx, op, callID, err)
	}

	log := f.log.WithFields(logrus.Fields{"call_id": callID, "field": field, "purpose": s.Purpose})

	if prev == models.StateCollectingField {
		log.Info("recording stored")
		f.publish(ctx, models.CallEvent{
			CallID:  callID,
			Type:    models.EventRecordingStored,
			Status:  models.StatusInfo,
			Message: "Recording stored for " + field,
			Data:    map[string]string{"field": field},
		})
	}

	// only the transition into Finalizing dispatches; a redelivered last
	// recording just hears the completion prompt again
	if prev == models.StateCollectingField && s.State == models.StateFinalizing {
		f.handOff(ctx, s)
	}
	return directiveFor(s)
}

// handOff transfers ownership of s to the finalization pipeline. The webhook
// path does not touch the session afterwards.
func (f *callFlowService) handOff(ctx context.Context, s *models.CallSession) {
	log := f.log.WithFields(logrus.Fields{"call_id": s.CallID, "purpose": s.Purpose})

	if err := f.dispatcher.Dispatch(ctx, s.CallID); err != nil {
		log.WithError(err).Error("finalization dispatch failed")
		f.abandoner.Abandon(context.WithoutCancel(ctx), s.CallID, err)
		return
	}
	log.Info("finalization queued")
	f.publish(ctx, models.CallEvent{
		CallID:  s.CallID,
		Type:    models.EventFinalizeQueued,
		Status:  models.StatusInfo,
		Purpose: s.Purpose,
		Message: "All answers recorded, processing in background",
	})
}

const telemetryTimeout = 2 * time.Second

var callEndStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
	"failed":    true,
}

func (f *callFlowService) CallEnded(ctx context.Context, callID, providerStatus string) error {
	const op = "CallFlow.CallEnded"

	if !callEndStatuses[providerStatus] {
		return nil
	}

	s, err := f.store.Update(ctx, callID, func(s *models.CallSession) error {
		return Step(s, FlowCallEnded, FlowInput{})
	})
	if err != nil {
		// finalizing sessions belong to the pipeline, missing ones are already done
		if sessions.IsNotFound(err) || errors.Is(err, ErrIllegalTransition) {
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to end session", err)
	}

	duration := s.DurationSeconds(f.now())
	f.log.WithFields(logrus.Fields{
		"call_id":         callID,
		"provider_status": providerStatus,
		"duration":        duration,
	}).Info("call dropped before all answers were recorded")

	if err := f.callLogs.Record(ctx, CallLogEntry{
		CallID:          callID,
		CallerAddress:   s.CallerAddress,
		Purpose:         s.Purpose,
		Language:        s.Language,
		DurationSeconds: duration,
		Status:          models.CallDropped,
	}); err != nil {
		f.log.WithError(err).WithField("call_id", callID).Warn("failed to log dropped call")
	}

	f.publish(ctx, models.CallEvent{
		CallID:  callID,
		Type:    models.EventCallDropped,
		Status:  models.StatusWarning,
		PhoneNo: s.CallerAddress,
		Message: "Caller hung up before finishing",
	})

	if err := f.store.Remove(ctx, callID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to remove session", err)
	}
	return nil
}

// advance runs one table transition. ok is false when the caller must be told
// the session expired.
func (f *callFlowService) advance(ctx context.Context, op, callID string, ev FlowEvent, in FlowInput) (*models.CallSession, voice.Directive, bool) {
	s, err := f.store.Update(ctx, callID, func(s *models.CallSession) error {
		return Step(s, ev, in)
	})
	if err != nil {
		return nil, f.reject(ctx, op, callID, err), false
	}
	return s, directiveFor(s), true
}

func (f *callFlowService) reject(ctx context.Context, op, callID string, err error) voice.Directive {
	log := f.log.WithFields(logrus.Fields{"call_id": callID, "op": op})

	switch {
	case sessions.IsNotFound(err):
		log.Warn("session expired")
		return expired(models.DefaultLanguage)
	case errors.Is(err, ErrIllegalTransition):
		lang := models.DefaultLanguage
		if s, gerr := f.store.Get(ctx, callID); gerr == nil {
			lang = s.Language
		}
		log.Warn("unexpected event for call state")
		return expired(lang)
	default:
		log.WithError(err).Error("session update failed")
		return expired(models.DefaultLanguage)
	}
}

// publish sends telemetry from the webhook path without letting a slow sink
// hold up the response.
func (f *callFlowService) publish(ctx context.Context, e models.CallEvent) {
	ctx, cancel := context.WithTimeout(ctx, telemetryTimeout)
	defer cancel()
	f.telemetry.Publish(ctx, e)
}

func expired(lang models.Language) voice.Directive {
	return voice.Directive{Kind: voice.KindExpired, Language: lang}
}

// directiveFor is what the caller hears on entering s.State.
func directiveFor(s *models.CallSession) voice.Directive {
	switch s.State {
	case models.StateAwaitingLanguage:
		return voice.Directive{Kind: voice.KindGather, Language: models.LanguageEnglish, PromptKey: voice.PromptWelcome, Action: "/ivr/language"}
	case models.StateAwaitingPurpose:
		return voice.Directive{Kind: voice.KindGather, Language: s.Language, PromptKey: voice.PromptPurposeSelection, Action: "/ivr/purpose"}
	case models.StateCollectingField:
		field, _ := s.CurrentField()
		return voice.Directive{
			Kind:      voice.KindRecord,
			Language:  s.Language,
			PromptKey: voice.FieldPrompt(s.Purpose, field),
			Action:    "/ivr/record/" + field,
		}
	case models.StateFinalizing:
		return voice.Directive{Kind: voice.KindComplete, Language: s.Language, PromptKey: voice.CompletionPrompt(s.Purpose)}
	default:
		return expired(s.Language)
	}
}
