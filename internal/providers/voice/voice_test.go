package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/labourline/internal/models"
)

func TestRenderGather(t *testing.T) {
	r := NewRenderer("https://ivr.example.com/", 5, 30)

	out, err := r.Render(Directive{Kind: KindGather, Language: models.LanguageEnglish, PromptKey: PromptWelcome, Action: "/ivr/language"})
	require.NoError(t, err)

	assert.Contains(t, out, "<Gather")
	assert.Contains(t, out, `numDigits="1"`)
	assert.Contains(t, out, `timeout="5"`)
	assert.Contains(t, out, `action="https://ivr.example.com/ivr/language"`)
	assert.Contains(t, out, "https://ivr.example.com/Audio/en/welcome.mp3")
}

func TestRenderRecord(t *testing.T) {
	r := NewRenderer("https://ivr.example.com", 5, 30)

	out, err := r.Render(Directive{
		Kind:      KindRecord,
		Language:  models.LanguageKannada,
		PromptKey: FieldPrompt(models.PurposeJobSeeker, models.FieldName),
		Action:    "/ivr/record/name",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "https://ivr.example.com/Audio/kn/job_seeker_name.mp3")
	assert.Contains(t, out, "<Record")
	assert.Contains(t, out, `maxLength="30"`)
	assert.Contains(t, out, `action="https://ivr.example.com/ivr/record/name"`)
	assert.Contains(t, out, `recordingStatusCallback="https://ivr.example.com/ivr/recording-status"`)
}

func TestRenderCompleteHangsUp(t *testing.T) {
	r := NewRenderer("https://ivr.example.com", 5, 30)

	out, err := r.Render(Directive{Kind: KindComplete, Language: models.LanguageHindi, PromptKey: CompletionPrompt(models.PurposeEmployer)})
	require.NoError(t, err)

	assert.Contains(t, out, "https://ivr.example.com/Audio/hi/completion_employer.mp3")
	assert.Contains(t, out, "<Hangup")
}

func TestRenderExpiredIsLocalized(t *testing.T) {
	r := NewRenderer("https://ivr.example.com", 5, 30)

	out, err := r.Render(Directive{Kind: KindExpired})
	require.NoError(t, err)
	assert.Contains(t, out, "Your session has expired. Please call again.")
	assert.Contains(t, out, "<Hangup")

	out, err = r.Render(Directive{Kind: KindExpired, Language: models.LanguageHindi})
	require.NoError(t, err)
	assert.Contains(t, out, ExpiredMessage(models.LanguageHindi))
}
