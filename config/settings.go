package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Port          string
	PublicBaseURL string
	AudioDir      string
	GoEnv         string

	MaxRecordingSeconds  int
	GatherTimeoutSeconds int

	MatchWeightLocation   float64
	MatchWeightExperience float64
	MatchWeightSkill      float64
	MatchMaxResults       int

	STTLanguage       string
	STTSampleRateHz   int
	GoogleCredentials string
	RecordingsBucket  string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	SessionBackend      string
	SessionTTL          time.Duration
	FinalizeQueue       string
	FinalizeWorkers     int
	FinalizeQueueSize   int
	FinalizeStepTimeout time.Duration

	PostgresURI      string
	MongoURI         string
	MongoDB          string
	MongoForceTLS    bool
	MongoInsecureTLS bool
	RedisAddr        string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

var defaults = map[string]any{
	"PORT":                       "8080",
	"PUBLIC_BASE_URL":            "http://localhost:8080",
	"IVR_MAX_RECORDING_SECONDS":  30,
	"IVR_GATHER_TIMEOUT_SECONDS": 5,
	"MATCH_WEIGHT_LOCATION":      0.4,
	"MATCH_WEIGHT_EXPERIENCE":    0.3,
	"MATCH_WEIGHT_SKILL":         0.3,
	"MATCH_MAX_RESULTS":          2,
	"STT_LANGUAGE":               "en-IN",
	"STT_SAMPLE_RATE_HZ":         8000,
	"SESSION_BACKEND":            "memory",
	"SESSION_TTL":                "15m",
	"FINALIZE_QUEUE":             "channel",
	"FINALIZE_WORKERS":           4,
	"FINALIZE_QUEUE_SIZE":        64,
	"FINALIZE_STEP_TIMEOUT":      "60s",
	"MONGO_DB":                   "labourline",
}

// Load reads .env when present, then the environment.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	s := &Settings{
		Port:          v.GetString("PORT"),
		PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		AudioDir:      v.GetString("AUDIO_DIR"),
		GoEnv:         v.GetString("GO_ENV"),

		MaxRecordingSeconds:  v.GetInt("IVR_MAX_RECORDING_SECONDS"),
		GatherTimeoutSeconds: v.GetInt("IVR_GATHER_TIMEOUT_SECONDS"),

		MatchWeightLocation:   v.GetFloat64("MATCH_WEIGHT_LOCATION"),
		MatchWeightExperience: v.GetFloat64("MATCH_WEIGHT_EXPERIENCE"),
		MatchWeightSkill:      v.GetFloat64("MATCH_WEIGHT_SKILL"),
		MatchMaxResults:       v.GetInt("MATCH_MAX_RESULTS"),

		STTLanguage:       v.GetString("STT_LANGUAGE"),
		STTSampleRateHz:   v.GetInt("STT_SAMPLE_RATE_HZ"),
		GoogleCredentials: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		RecordingsBucket:  v.GetString("RECORDINGS_BUCKET"),
		TwilioAccountSID:  v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:  v.GetString("TWILIO_FROM_NUMBER"),

		SessionBackend:      strings.ToLower(v.GetString("SESSION_BACKEND")),
		SessionTTL:          v.GetDuration("SESSION_TTL"),
		FinalizeQueue:       strings.ToLower(v.GetString("FINALIZE_QUEUE")),
		FinalizeWorkers:     v.GetInt("FINALIZE_WORKERS"),
		FinalizeQueueSize:   v.GetInt("FINALIZE_QUEUE_SIZE"),
		FinalizeStepTimeout: v.GetDuration("FINALIZE_STEP_TIMEOUT"),

		PostgresURI:      v.GetString("POSTGRES_URI"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDB:          v.GetString("MONGO_DB"),
		MongoForceTLS:    v.GetBool("MONGO_FORCE_TLS_CONFIG"),
		MongoInsecureTLS: v.GetBool("MONGO_INSECURE_TLS"),
		RedisAddr:        firstNonEmpty(v.GetString("REDIS_ADDR"), v.GetString("REDIS_URI"), v.GetString("REDIS_URL")),

		JWTSecret:   v.GetString("SUPABASE_JWT_SECRET"),
		JWTIssuer:   v.GetString("SUPABASE_JWT_ISSUER"),
		JWTAudience: v.GetString("SUPABASE_JWT_AUDIENCE"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	var errs []error

	switch s.SessionBackend {
	case "memory":
	case "redis":
		if s.RedisAddr == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", s.SessionBackend))
	}

	switch s.FinalizeQueue {
	case "channel":
	case "redis":
		if s.RedisAddr == "" {
			errs = append(errs, errors.New("FINALIZE_QUEUE=redis requires REDIS_ADDR"))
		}
		// workers on other instances must see the session
		if s.SessionBackend != "redis" {
			errs = append(errs, errors.New("FINALIZE_QUEUE=redis requires SESSION_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("FINALIZE_QUEUE must be channel or redis, got %q", s.FinalizeQueue))
	}

	if s.MatchWeightLocation < 0 || s.MatchWeightExperience < 0 || s.MatchWeightSkill < 0 {
		errs = append(errs, errors.New("MATCH_WEIGHT_* must not be negative"))
	}
	if s.MatchMaxResults <= 0 {
		errs = append(errs, errors.New("MATCH_MAX_RESULTS must be positive"))
	}
	if s.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI environment variable is not set"))
	}

	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
