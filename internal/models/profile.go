package models

import "time"

// Worker is a job seeker's profile.
type Worker struct {
	ID                 uint      `gorm:"column:worker_id;primaryKey;autoIncrement" json:"worker_id"`
	PhoneNo            string    `gorm:"column:phone_no;type:varchar(15);not null;index:idx_workers_phone" json:"phone_no"`
	Name               string    `gorm:"column:name;type:varchar(100)" json:"name"`
	Experience         *int      `gorm:"column:experience" json:"experience,omitempty"`
	WorkExpertise      string    `gorm:"column:work_expertise;type:varchar(200);index:idx_workers_expertise" json:"work_expertise"`
	Location           string    `gorm:"column:location;type:varchar(100);index:idx_workers_location" json:"location"`
	PreferredWage      *int      `gorm:"column:preferred_wage" json:"preferred_wage,omitempty"`
	Bio                string    `gorm:"column:bio;type:text" json:"bio,omitempty"`
	LanguagePreference Language  `gorm:"column:language_preference;type:varchar(10);default:en" json:"language_preference"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Worker) TableName() string { return "workers" }

// Job is an employer's posting.
type Job struct {
	ID                 uint      `gorm:"column:job_id;primaryKey;autoIncrement" json:"job_id"`
	PhoneNo            string    `gorm:"column:phone_no;type:varchar(15);not null;index:idx_jobs_phone" json:"phone_no"`
	TypeOfWork         string    `gorm:"column:type_of_work;type:varchar(150);not null;index:idx_jobs_type" json:"type_of_work"`
	Location           string    `gorm:"column:location;type:varchar(100);not null;index:idx_jobs_location" json:"location"`
	WagesOffered       *int      `gorm:"column:wages_offered" json:"wages_offered,omitempty"`
	OrganisationName   string    `gorm:"column:organisation_name;type:varchar(150)" json:"organisation_name,omitempty"`
	Description        string    `gorm:"column:description;type:text" json:"description,omitempty"`
	LanguagePreference Language  `gorm:"column:language_preference;type:varchar(10);default:en" json:"language_preference"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Job) TableName() string { return "jobs" }
