package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	mongorepo "github.com/yoockh/labourline/internal/repositories/mongo"
)

// CallEventsChannel is the Redis pub/sub channel dashboards listen on.
const CallEventsChannel = "call-events"

const callEventRetention = 7 * 24 * time.Hour

// TelemetryService pushes call progress to observers. It is best effort:
// failures are logged and never returned.
type TelemetryService interface {
	Publish(ctx context.Context, e models.CallEvent)
}

type telemetryService struct {
	redis  *redis.Client
	events mongorepo.CallEventRepository
	log    *logrus.Logger
	now    func() time.Time
}

// NewTelemetryService publishes to whichever of rdb and events is non-nil.
func NewTelemetryService(rdb *redis.Client, events mongorepo.CallEventRepository, log *logrus.Logger) TelemetryService {
	return &telemetryService{redis: rdb, events: events, log: log, now: time.Now}
}

func (t *telemetryService) Publish(ctx context.Context, e models.CallEvent) {
	defer func() {
		if r := recover(); r != nil {
			t.log.WithField("panic", r).Warn("telemetry publish panicked")
		}
	}()

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now().UTC()
	}
	e.ExpiresAt = e.Timestamp.Add(callEventRetention)

	log := t.log.WithFields(logrus.Fields{"call_id": e.CallID, "event_type": e.Type})
	log.WithField("status", e.Status).Debug(e.Message)

	if t.redis != nil {
		if b, err := json.Marshal(e); err != nil {
			log.WithError(err).Warn("telemetry encode failed")
		} else if err := t.redis.Publish(ctx, CallEventsChannel, b).Err(); err != nil {
			log.WithError(err).Warn("telemetry publish failed")
		}
	}
	if t.events != nil {
		if err := t.events.Insert(ctx, &e); err != nil {
			log.WithError(err).Warn("telemetry store failed")
		}
	}
}
