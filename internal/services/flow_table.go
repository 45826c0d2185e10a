package services

import (
	"errors"

	"github.com/yoockh/labourline/internal/models"
)

type FlowEvent string

const (
	FlowLanguageDigit FlowEvent = "language_digit"
	FlowPurposeDigit  FlowEvent = "purpose_digit"
	FlowRecordingDone FlowEvent = "recording_done"
	FlowCallEnded     FlowEvent = "call_ended"
)

// FlowInput carries the webhook parameters relevant to an event.
type FlowInput struct {
	Digits       string
	Field        string
	RecordingRef string
}

var ErrIllegalTransition = errors.New("illegal call flow transition")

type transitionKey struct {
	from models.CallState
	on   FlowEvent
}

// Transition mutates a session for one event; the session's State afterwards
// is the next state.
type Transition struct {
	Apply func(s *models.CallSession, in FlowInput) error
}

// flowTable lists every legal (state, event) pair. CallStarted is not here:
// it creates the session rather than moving an existing one.
var flowTable = map[transitionKey]Transition{
	{models.StateAwaitingLanguage, FlowLanguageDigit}: {Apply: chooseLanguage},
	{models.StateAwaitingPurpose, FlowPurposeDigit}:   {Apply: choosePurpose},
	{models.StateCollectingField, FlowRecordingDone}:  {Apply: storeRecording},
	// provider redelivered the last recording: answer again, change nothing
	{models.StateFinalizing, FlowRecordingDone}: {Apply: func(*models.CallSession, FlowInput) error { return nil }},

	{models.StateAwaitingLanguage, FlowCallEnded}: {Apply: dropCall},
	{models.StateAwaitingPurpose, FlowCallEnded}:  {Apply: dropCall},
	{models.StateCollectingField, FlowCallEnded}:  {Apply: dropCall},
}

// Step applies ev to s in place. It returns ErrIllegalTransition, leaving s
// unchanged, when the table has no entry for the pair or the input does not fit.
func Step(s *models.CallSession, ev FlowEvent, in FlowInput) error {
	t, ok := flowTable[transitionKey{from: s.State, on: ev}]
	if !ok {
		return ErrIllegalTransition
	}
	return t.Apply(s, in)
}

// Legal reports whether ev is accepted in state.
func Legal(state models.CallState, ev FlowEvent) bool {
	_, ok := flowTable[transitionKey{from: state, on: ev}]
	return ok
}

func chooseLanguage(s *models.CallSession, in FlowInput) error {
	s.Language = models.LanguageForDigit(in.Digits)
	s.CurrentStep = models.StepPurpose
	s.State = models.StateAwaitingPurpose
	return nil
}

func choosePurpose(s *models.CallSession, in FlowInput) error {
	s.Purpose = models.PurposeForDigit(in.Digits)
	s.CurrentStep = models.StepFirstField
	s.State = models.StateCollectingField
	return nil
}

func storeRecording(s *models.CallSession, in FlowInput) error {
	field, ok := s.CurrentField()
	if !ok || field != in.Field || in.RecordingRef == "" {
		return ErrIllegalTransition
	}
	if s.CollectedFields == nil {
		s.CollectedFields = map[string]string{}
	}
	s.CollectedFields[field] = in.RecordingRef
	s.CurrentStep++

	if _, more := s.CurrentField(); !more {
		s.State = models.StateFinalizing
	}
	return nil
}

func dropCall(s *models.CallSession, _ FlowInput) error {
	s.State = models.StateDone
	return nil
}
