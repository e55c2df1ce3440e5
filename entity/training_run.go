package entity

import (
	"encoding/json"
	"time"
)

// 训练状态
const (
	TrainingStatusRunning  int8 = 1
	TrainingStatusFinished int8 = 2
	TrainingStatusFailed   int8 = 3
)

type TrainingRun struct {
	ID             uint            `gorm:"primaryKey;column:id" json:"id"`
	JobID          string          `gorm:"column:job_id;size:64" json:"job_id"`
	DatasetName    string          `gorm:"column:dataset_name" json:"dataset_name"`
	ModelID        string          `gorm:"column:model_id" json:"model_id"` // dataset/timestamp
	TrainingStatus int8            `gorm:"column:training_status" json:"training_status"`
	Diagnostics    json.RawMessage `gorm:"column:diagnostics;type:json" json:"diagnostics"`
	ErrorDetail    *string         `gorm:"column:error_detail" json:"error_detail"`
	TrainStartTime *time.Time      `gorm:"column:train_start_time" json:"train_start_time"`
	TrainEndTime   *time.Time      `gorm:"column:train_end_time" json:"train_end_time"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TrainingRun) TableName() string {
	return "training_runs"
}
