package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CallEventType string

const (
	EventCallStart       CallEventType = "CALL_START"
	EventLanguageSelect  CallEventType = "LANGUAGE_SELECT"
	EventPurposeSelect   CallEventType = "PURPOSE_SELECT"
	EventRecordingStored CallEventType = "RECORDING_STORED"
	EventFinalizeQueued  CallEventType = "FINALIZE_QUEUED"
	EventDataCollected   CallEventType = "DATA_COLLECTED"
	EventDBSave          CallEventType = "DB_SAVE"
	EventMatching        CallEventType = "MATCHING"
	EventSMSSent         CallEventType = "SMS_SENT"
	EventCallComplete    CallEventType = "CALL_COMPLETE"
	EventCallDropped     CallEventType = "CALL_DROPPED"
	EventError           CallEventType = "ERROR"
)

type EventStatus string

const (
	StatusInfo    EventStatus = "INFO"
	StatusSuccess EventStatus = "SUCCESS"
	StatusWarning EventStatus = "WARNING"
	StatusError   EventStatus = "ERROR"
)

// CallEvent is a progress notification pushed to dashboards.
type CallEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EventID   string             `bson:"event_id" json:"event_id"`
	CallID    string             `bson:"call_id" json:"call_id"`
	Type      CallEventType      `bson:"event_type" json:"event_type"`
	Message   string             `bson:"message" json:"message"`
	Status    EventStatus        `bson:"status" json:"status"`
	PhoneNo   string             `bson:"phone_no,omitempty" json:"phone_no,omitempty"`
	Language  Language           `bson:"language,omitempty" json:"language,omitempty"`
	Purpose   Purpose            `bson:"purpose,omitempty" json:"purpose,omitempty"`
	Data      map[string]string  `bson:"data,omitempty" json:"data,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	// ExpiresAt drives the TTL index on the events collection.
	ExpiresAt time.Time `bson:"expires_at" json:"-"`
}
