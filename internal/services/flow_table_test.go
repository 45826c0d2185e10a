package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/labourline/internal/models"
)

func newSession() *models.CallSession {
	return models.NewCallSession("CA1", "+919800000001", time.Unix(1_700_000_000, 0))
}

func TestStep_JobSeekerWalk(t *testing.T) {
	s := newSession()

	require.NoError(t, Step(s, FlowLanguageDigit, FlowInput{Digits: "3"}))
	assert.Equal(t, models.LanguageHindi, s.Language)
	assert.Equal(t, models.StateAwaitingPurpose, s.State)
	assert.Equal(t, models.StepPurpose, s.CurrentStep)

	require.NoError(t, Step(s, FlowPurposeDigit, FlowInput{Digits: "1"}))
	assert.Equal(t, models.PurposeJobSeeker, s.Purpose)
	assert.Equal(t, models.StateCollectingField, s.State)

	for i, field := range []string{models.FieldName, models.FieldWorkExpertise, models.FieldLocation} {
		cur, ok := s.CurrentField()
		require.True(t, ok)
		require.Equal(t, field, cur)
		require.NoError(t, Step(s, FlowRecordingDone, FlowInput{Field: field, RecordingRef: "https://rec/" + field}))
		assert.Equal(t, models.StepFirstField+i+1, s.CurrentStep)
	}

	assert.Equal(t, models.StateFinalizing, s.State)
	assert.Len(t, s.CollectedFields, 3)
	assert.Equal(t, "https://rec/location", s.CollectedFields[models.FieldLocation])
}

func TestStep_EmployerCollectsTwoFields(t *testing.T) {
	s := newSession()
	require.NoError(t, Step(s, FlowLanguageDigit, FlowInput{Digits: "2"}))
	require.NoError(t, Step(s, FlowPurposeDigit, FlowInput{Digits: "2"}))
	assert.Equal(t, models.LanguageKannada, s.Language)
	assert.Equal(t, models.PurposeEmployer, s.Purpose)

	require.NoError(t, Step(s, FlowRecordingDone, FlowInput{Field: models.FieldTypeOfWork, RecordingRef: "r1"}))
	assert.Equal(t, models.StateCollectingField, s.State)
	require.NoError(t, Step(s, FlowRecordingDone, FlowInput{Field: models.FieldLocation, RecordingRef: "r2"}))
	assert.Equal(t, models.StateFinalizing, s.State)
}

func TestStep_DigitsDefault(t *testing.T) {
	for _, digits := range []string{"", "1", "9", "*"} {
		s := newSession()
		require.NoError(t, Step(s, FlowLanguageDigit, FlowInput{Digits: digits}))
		assert.Equal(t, models.LanguageEnglish, s.Language, "digits %q", digits)

		require.NoError(t, Step(s, FlowPurposeDigit, FlowInput{Digits: digits}))
		assert.Equal(t, models.PurposeJobSeeker, s.Purpose, "digits %q", digits)
	}
}

func TestStep_RejectsOutOfOrderEvents(t *testing.T) {
	s := newSession()
	before := *s

	assert.ErrorIs(t, Step(s, FlowPurposeDigit, FlowInput{Digits: "2"}), ErrIllegalTransition)
	assert.ErrorIs(t, Step(s, FlowRecordingDone, FlowInput{Field: models.FieldName, RecordingRef: "r"}), ErrIllegalTransition)
	assert.Equal(t, before.State, s.State)
	assert.Equal(t, before.CurrentStep, s.CurrentStep)

	require.NoError(t, Step(s, FlowLanguageDigit, FlowInput{Digits: "1"}))
	assert.ErrorIs(t, Step(s, FlowLanguageDigit, FlowInput{Digits: "2"}), ErrIllegalTransition)
	assert.Equal(t, models.LanguageEnglish, s.Language)
}

func TestStep_RecordingMustMatchAwaitedField(t *testing.T) {
	s := newSession()
	require.NoError(t, Step(s, FlowLanguageDigit, FlowInput{Digits: "1"}))
	require.NoError(t, Step(s, FlowPurposeDigit, FlowInput{Digits: "1"}))

	assert.ErrorIs(t, Step(s, FlowRecordingDone, FlowInput{Field: models.FieldLocation, RecordingRef: "r"}), ErrIllegalTransition)
	assert.ErrorIs(t, Step(s, FlowRecordingDone, FlowInput{Field: models.FieldName}), ErrIllegalTransition)
	assert.Empty(t, s.CollectedFields)
	assert.Equal(t, models.StepFirstField, s.CurrentStep)
}

func TestStep_FinalizingAcceptsDuplicateRecording(t *testing.T) {
	s := newSession()
	s.State = models.StateFinalizing
	s.CollectedFields = map[string]string{models.FieldLocation: "r3"}

	require.NoError(t, Step(s, FlowRecordingDone, FlowInput{Field: models.FieldLocation, RecordingRef: "r3-again"}))
	assert.Equal(t, models.StateFinalizing, s.State)
	assert.Equal(t, "r3", s.CollectedFields[models.FieldLocation])
}

func TestLegal_CallEnded(t *testing.T) {
	assert.True(t, Legal(models.StateAwaitingLanguage, FlowCallEnded))
	assert.True(t, Legal(models.StateCollectingField, FlowCallEnded))
	assert.False(t, Legal(models.StateFinalizing, FlowCallEnded))
	assert.False(t, Legal(models.StateDone, FlowRecordingDone))
}
