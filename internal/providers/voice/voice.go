// Package voice renders call-flow directives as TwiML documents.
package voice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"
	"github.com/yoockh/labourline/internal/models"
)

type Kind int

const (
	// KindGather plays a prompt and collects one keypad digit.
	KindGather Kind = iota + 1
	// KindRecord plays a prompt and records the caller's answer.
	KindRecord
	// KindComplete plays a prompt and hangs up.
	KindComplete
	// KindExpired speaks the expired-session message and hangs up.
	KindExpired
)

// Directive tells the telephony provider what to do next on the call.
type Directive struct {
	Kind      Kind
	Language  models.Language
	PromptKey string
	// Action is the webhook path (relative to the public base URL) the
	// provider calls with the result.
	Action string
}

// Prompt keys of the pre-recorded audio files.
const (
	PromptWelcome            = "welcome"
	PromptPurposeSelection   = "purpose_selection"
	PromptCompletionSeeker   = "completion_job_seeker"
	PromptCompletionEmployer = "completion_employer"
)

// FieldPrompt returns the prompt key asking a caller of purpose p for field.
func FieldPrompt(p models.Purpose, field string) string {
	if p == models.PurposeEmployer {
		return "employer_" + field
	}
	return "job_seeker_" + field
}

func CompletionPrompt(p models.Purpose) string {
	if p == models.PurposeEmployer {
		return PromptCompletionEmployer
	}
	return PromptCompletionSeeker
}

var expiredMessages = map[models.Language]string{
	models.LanguageEnglish: "Your session has expired. Please call again.",
	models.LanguageKannada: "ನಿಮ್ಮ ಅವಧಿ ಮುಗಿದಿದೆ. ದಯವಿಟ್ಟು ಮತ್ತೆ ಕರೆ ಮಾಡಿ.",
	models.LanguageHindi:   "आपका सत्र समाप्त हो गया है। कृपया फिर से कॉल करें।",
}

var sayLanguages = map[models.Language]string{
	models.LanguageEnglish: "en-IN",
	models.LanguageKannada: "kn-IN",
	models.LanguageHindi:   "hi-IN",
}

func ExpiredMessage(lang models.Language) string {
	return expiredMessages[lang.OrDefault()]
}

// Renderer turns directives into TwiML.
type Renderer struct {
	BaseURL            string
	GatherTimeoutSec   int
	MaxRecordingSec    int
	RecordingStatusURL string
}

func NewRenderer(baseURL string, gatherTimeoutSec, maxRecordingSec int) *Renderer {
	baseURL = strings.TrimRight(baseURL, "/")
	if gatherTimeoutSec <= 0 {
		gatherTimeoutSec = 5
	}
	if maxRecordingSec <= 0 {
		maxRecordingSec = 30
	}
	return &Renderer{
		BaseURL:            baseURL,
		GatherTimeoutSec:   gatherTimeoutSec,
		MaxRecordingSec:    maxRecordingSec,
		RecordingStatusURL: baseURL + "/ivr/recording-status",
	}
}

// AudioURL is where the prompt file for key in lang is served.
func (r *Renderer) AudioURL(lang models.Language, key string) string {
	return fmt.Sprintf("%s/Audio/%s/%s.mp3", r.BaseURL, lang.OrDefault(), key)
}

func (r *Renderer) Render(d Directive) (string, error) {
	var verbs []twiml.Element

	switch d.Kind {
	case KindGather:
		verbs = append(verbs, &twiml.VoiceGather{
			Action:    r.BaseURL + d.Action,
			NumDigits: "1",
			Timeout:   strconv.Itoa(r.GatherTimeoutSec),
			InnerElements: []twiml.Element{
				&twiml.VoicePlay{Url: r.AudioURL(d.Language, d.PromptKey)},
			},
		})
	case KindRecord:
		verbs = append(verbs,
			&twiml.VoicePlay{Url: r.AudioURL(d.Language, d.PromptKey)},
			&twiml.VoiceRecord{
				Action:                  r.BaseURL + d.Action,
				MaxLength:               strconv.Itoa(r.MaxRecordingSec),
				Timeout:                 strconv.Itoa(r.GatherTimeoutSec),
				RecordingStatusCallback: r.RecordingStatusURL,
			},
		)
	case KindComplete:
		verbs = append(verbs,
			&twiml.VoicePlay{Url: r.AudioURL(d.Language, d.PromptKey)},
			&twiml.VoiceHangup{},
		)
	default:
		lang := d.Language.OrDefault()
		verbs = append(verbs,
			&twiml.VoiceSay{Message: ExpiredMessage(lang), Language: sayLanguages[lang]},
			&twiml.VoiceHangup{},
		)
	}

	return twiml.Voice(verbs)
}
