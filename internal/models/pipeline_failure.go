package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// PipelineFailure is the dead-letter row written when finalization of a call fails.
type PipelineFailure struct {
	ID             uint           `gorm:"column:failure_id;primaryKey;autoIncrement" json:"failure_id"`
	CallID         string         `gorm:"column:call_id;type:varchar(64);index" json:"call_id"`
	PhoneNo        string         `gorm:"column:phone_no;type:varchar(15)" json:"phone_no"`
	CallPurpose    Purpose        `gorm:"column:call_purpose;type:varchar(50)" json:"call_purpose"`
	Language       Language       `gorm:"column:language;type:varchar(10)" json:"language"`
	FailedStep     string         `gorm:"column:failed_step;type:varchar(32)" json:"failed_step"`
	CompletedSteps pq.StringArray `gorm:"column:completed_steps;type:text[]" json:"completed_steps"`
	Error          string         `gorm:"column:error;type:text" json:"error"`
	ProfileID      *uint          `gorm:"column:profile_id" json:"profile_id,omitempty"`

	// Snapshot is the CallSession as JSON, used to replay the run.
	Snapshot datatypes.JSON `gorm:"column:snapshot;type:jsonb" json:"snapshot"`

	Resolved   bool       `gorm:"column:resolved;default:false;index" json:"resolved"`
	ResolvedAt *time.Time `gorm:"column:resolved_at;type:timestamptz" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamptz;autoCreateTime" json:"created_at"`
}

func (PipelineFailure) TableName() string { return "pipeline_failures" }
