package models

import "time"

type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallDropped   CallStatus = "dropped"
	CallFailed    CallStatus = "failed"
)

// CallLog is written once per call session.
type CallLog struct {
	ID               uint       `gorm:"column:call_log_id;primaryKey;autoIncrement" json:"call_log_id"`
	CallID           string     `gorm:"column:call_id;type:varchar(64);uniqueIndex" json:"call_id"`
	PhoneNo          string     `gorm:"column:phone_no;type:varchar(15);index:idx_call_logs_phone" json:"phone_no"`
	CallPurpose      Purpose    `gorm:"column:call_purpose;type:varchar(50)" json:"call_purpose"`
	LanguageSelected Language   `gorm:"column:language_selected;type:varchar(10)" json:"language_selected"`
	CallDuration     int        `gorm:"column:call_duration" json:"call_duration"`
	Status           CallStatus `gorm:"column:status;type:varchar(20)" json:"status"`
	CallTimestamp    time.Time  `gorm:"column:call_timestamp;type:timestamptz;autoCreateTime;index:idx_call_logs_timestamp" json:"call_timestamp"`
}

func (CallLog) TableName() string { return "call_logs" }
