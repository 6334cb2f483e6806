package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
)

// PipelineJob records one orchestrator run over a draft.
type PipelineJob struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	DraftID     uuid.UUID         `gorm:"column:draft_id;type:uuid;not null;index"`
	Status      enums.JobStatus   `gorm:"column:status;not null"`
	Error       string            `gorm:"column:error;not null;default:''"`
	Slots       []PipelineJobSlot `gorm:"foreignKey:JobID;references:ID"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt *time.Time        `gorm:"column:completed_at"`
}

func (PipelineJob) TableName() string { return "pipeline_jobs" }

func (j *PipelineJob) BeforeCreate(*gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = enums.JobStatusPending
	}
	return nil
}

// Slot returns the slot for the generator, if loaded.
func (j *PipelineJob) Slot(generator enums.GeneratorType) (PipelineJobSlot, bool) {
	for _, slot := range j.Slots {
		if slot.GeneratorType == generator {
			return slot, true
		}
	}
	return PipelineJobSlot{}, false
}

// SlotStatuses maps each loaded slot to its status.
func (j *PipelineJob) SlotStatuses() map[enums.GeneratorType]enums.JobStatus {
	out := make(map[enums.GeneratorType]enums.JobStatus, len(j.Slots))
	for _, slot := range j.Slots {
		out[slot.GeneratorType] = slot.Status
	}
	return out
}

// PipelineJobSlot is one generator's status and retry record within a job.
type PipelineJobSlot struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	JobID         uuid.UUID           `gorm:"column:job_id;type:uuid;not null;uniqueIndex:idx_pipeline_job_slot"`
	GeneratorType enums.GeneratorType `gorm:"column:generator_type;not null;uniqueIndex:idx_pipeline_job_slot"`
	Status        enums.JobStatus     `gorm:"column:status;not null"`
	Error         string              `gorm:"column:error;not null;default:''"`
	RetryCount    int                 `gorm:"column:retry_count;not null;default:0"`
	MaxRetries    int                 `gorm:"column:max_retries;not null"`
	StartedAt     *time.Time          `gorm:"column:started_at"`
	CompletedAt   *time.Time          `gorm:"column:completed_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (PipelineJobSlot) TableName() string { return "pipeline_job_slots" }

func (s *PipelineJobSlot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = enums.JobStatusPending
	}
	return nil
}

// Exhausted reports whether the slot used up its retry budget.
func (s PipelineJobSlot) Exhausted() bool {
	return s.RetryCount >= s.MaxRetries
}
