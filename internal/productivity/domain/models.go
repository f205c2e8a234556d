package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulse/internal/config"
	"gorm.io/datatypes"
)

const (
	EventMessageSent      = "chat.message_sent"
	EventTaskCreated      = "task.created"
	EventTaskCompleted    = "task.completed"
	EventDocumentUploaded = "document.uploaded"
)

// Record is one user's productivity for one calendar day.
type Record struct {
	ID                 snowflake.ID                               `gorm:"primaryKey" json:"id"`
	UserID             string                                     `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_productivity_records_user_date,priority:1" json:"user_id"`
	ActivityDate       string                                     `gorm:"column:activity_date;type:varchar(10);not null;uniqueIndex:ux_productivity_records_user_date,priority:2" json:"activity_date"`
	Score              float64                                    `gorm:"column:score;not null" json:"score"`
	SessionCount       int64                                      `gorm:"column:session_count;not null" json:"session_count"`
	ActiveMinutes      float64                                    `gorm:"column:active_minutes;not null" json:"active_minutes"`
	MessageCount       int64                                      `gorm:"column:message_count;not null" json:"message_count"`
	TaskCreatedCount   int64                                      `gorm:"column:task_created_count;not null" json:"task_created_count"`
	TaskCompletedCount int64                                      `gorm:"column:task_completed_count;not null" json:"task_completed_count"`
	DocumentCount      int64                                      `gorm:"column:document_count;not null" json:"document_count"`
	Weights            datatypes.JSONType[config.ScoringWeights] `gorm:"column:weights;not null" json:"weights"`
	ComputedAt         time.Time                                  `gorm:"column:computed_at;not null" json:"computed_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "productivity_records" }

// Inputs are the raw components a score is derived from.
type Inputs struct {
	SessionCount   int64
	ActiveMinutes  float64
	Messages       int64
	TasksCreated   int64
	TasksCompleted int64
	Documents      int64
}

// Score applies weights to inputs, rounds to two decimals and caps at max.
func Score(in Inputs, w config.ScoringWeights, max float64) float64 {
	raw := w.MessageSent*float64(in.Messages) +
		w.TaskCompleted*float64(in.TasksCompleted) +
		w.TaskCreated*float64(in.TasksCreated) +
		w.Document*float64(in.Documents) +
		w.ActiveMinute*in.ActiveMinutes +
		w.Session*float64(in.SessionCount)
	score := Round2(raw)
	if max > 0 && score > max {
		return max
	}
	return score
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type UserFailure struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	Date      string        `json:"date"`
	Processed int           `json:"processed"`
	Failures  []UserFailure `json:"failures"`
}

func (r *BatchResult) Failed() bool {
	return r != nil && len(r.Failures) > 0
}
