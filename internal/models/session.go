package models

import "time"

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageKannada Language = "kn"
	LanguageHindi   Language = "hi"

	DefaultLanguage = LanguageEnglish
)

// LanguageForDigit maps the keypad digit pressed on the language prompt.
func LanguageForDigit(digits string) Language {
	switch digits {
	case "2":
		return LanguageKannada
	case "3":
		return LanguageHindi
	default:
		return DefaultLanguage
	}
}

func (l Language) Name() string {
	switch l {
	case LanguageKannada:
		return "Kannada"
	case LanguageHindi:
		return "Hindi"
	default:
		return "English"
	}
}

// OrDefault returns l, or DefaultLanguage when l is not one of the supported values.
func (l Language) OrDefault() Language {
	switch l {
	case LanguageEnglish, LanguageKannada, LanguageHindi:
		return l
	default:
		return DefaultLanguage
	}
}

type Purpose string

const (
	PurposeJobSeeker Purpose = "job_seeker"
	PurposeEmployer  Purpose = "employer"
)

// PurposeForDigit maps the keypad digit pressed on the purpose prompt.
func PurposeForDigit(digits string) Purpose {
	if digits == "2" {
		return PurposeEmployer
	}
	return PurposeJobSeeker
}

// Collected field names.
const (
	FieldName          = "name"
	FieldWorkExpertise = "work_expertise"
	FieldLocation      = "location"
	FieldTypeOfWork    = "type_of_work"
)

var purposeFields = map[Purpose][]string{
	PurposeJobSeeker: {FieldName, FieldWorkExpertise, FieldLocation},
	PurposeEmployer:  {FieldTypeOfWork, FieldLocation},
}

// Fields returns the ordered field names a caller of this purpose is asked for.
func (p Purpose) Fields() []string {
	return purposeFields[p]
}

type CallState string

const (
	StateAwaitingLanguage CallState = "awaiting_language"
	StateAwaitingPurpose  CallState = "awaiting_purpose"
	StateCollectingField  CallState = "collecting_field"
	StateFinalizing       CallState = "finalizing"
	StateDone             CallState = "done"
	StateExpired          CallState = "expired"
)

// Step numbers stored in CallSession.CurrentStep.
const (
	StepLanguage   = 1
	StepPurpose    = 2
	StepFirstField = 3
)

// CallSession is the in-flight state of one voice call.
type CallSession struct {
	CallID          string            `json:"call_id"`
	CallerAddress   string            `json:"caller_address"`
	Language        Language          `json:"language"`
	Purpose         Purpose           `json:"purpose,omitempty"`
	State           CallState         `json:"state"`
	CollectedFields map[string]string `json:"collected_fields"`
	CurrentStep     int               `json:"current_step"`
	StartedAt       time.Time         `json:"started_at"`

	// Set by the finalization pipeline once it owns the session.
	Claimed   bool  `json:"claimed,omitempty"`
	ProfileID *uint `json:"profile_id,omitempty"`
	// DoneSteps are pipeline steps finished by an earlier attempt.
	DoneSteps []string `json:"done_steps,omitempty"`
}

func NewCallSession(callID, callerAddress string, now time.Time) *CallSession {
	return &CallSession{
		CallID:          callID,
		CallerAddress:   callerAddress,
		Language:        DefaultLanguage,
		State:           StateAwaitingLanguage,
		CollectedFields: map[string]string{},
		CurrentStep:     StepLanguage,
		StartedAt:       now,
	}
}

// CurrentField returns the field awaiting a recording, if the session is collecting.
func (s *CallSession) CurrentField() (string, bool) {
	if s.State != StateCollectingField {
		return "", false
	}
	fields := s.Purpose.Fields()
	i := s.CurrentStep - StepFirstField
	if i < 0 || i >= len(fields) {
		return "", false
	}
	return fields[i], true
}

func (s *CallSession) Clone() *CallSession {
	if s == nil {
		return nil
	}
	out := *s
	out.CollectedFields = make(map[string]string, len(s.CollectedFields))
	for k, v := range s.CollectedFields {
		out.CollectedFields[k] = v
	}
	if s.ProfileID != nil {
		id := *s.ProfileID
		out.ProfileID = &id
	}
	out.DoneSteps = append([]string(nil), s.DoneSteps...)
	return &out
}

func (s *CallSession) HasDone(step string) bool {
	for _, d := range s.DoneSteps {
		if d == step {
			return true
		}
	}
	return false
}

// DurationSeconds is the whole-second call duration as of now, never negative.
func (s *CallSession) DurationSeconds(now time.Time) int {
	d := int(now.Sub(s.StartedAt).Seconds())
	if d < 0 {
		return 0
	}
	return d
}
