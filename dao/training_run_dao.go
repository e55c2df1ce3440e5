package dao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Beenunn17/ReimaginedInd2/entity"
	"github.com/Beenunn17/ReimaginedInd2/infrastructure/db"

	"gorm.io/gorm"
)

type TrainingRunDAO struct {
	DB *gorm.DB
}

func NewTrainingRunDAO() *TrainingRunDAO {
	return &TrainingRunDAO{
		DB: db.DB,
	}
}

func (d *TrainingRunDAO) Save(ctx context.Context, run *entity.TrainingRun) error {
	if run == nil {
		return ErrNilEntity
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return fmt.Errorf("save training run failed: %w", err)
	}
	return dbConn.Create(run).Error
}

// MarkFinished 将运行置为成功并回填诊断信息，仅在仍处于训练中时生效
func (d *TrainingRunDAO) MarkFinished(ctx context.Context, jobID, modelID string, diagnostics []byte) error {
	return d.markTerminal(ctx, jobID, map[string]interface{}{
		"training_status": entity.TrainingStatusFinished,
		"model_id":        modelID,
		"diagnostics":     diagnostics,
		"train_end_time":  time.Now(),
	})
}

func (d *TrainingRunDAO) MarkFailed(ctx context.Context, jobID, errorDetail string) error {
	return d.markTerminal(ctx, jobID, map[string]interface{}{
		"training_status": entity.TrainingStatusFailed,
		"error_detail":    errorDetail,
		"train_end_time":  time.Now(),
	})
}

func (d *TrainingRunDAO) markTerminal(ctx context.Context, jobID string, updates map[string]interface{}) error {
	if strings.TrimSpace(jobID) == "" {
		return ErrInvalidID
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return fmt.Errorf("update training run failed: %w", err)
	}

	result := dbConn.Model(&entity.TrainingRun{}).
		Where("job_id = ? AND training_status = ?", jobID, entity.TrainingStatusRunning).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update training run failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *TrainingRunDAO) FindAll(ctx context.Context, params entity.QueryParams) ([]entity.TrainingRun, int64, error) {
	var runs []entity.TrainingRun
	var total int64

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("find training runs failed: %w", err)
	}

	dbConn = dbConn.Model(&entity.TrainingRun{})

	if datasetName := strings.TrimSpace(params.DatasetName); datasetName != "" {
		dbConn = dbConn.Where("dataset_name = ?", datasetName)
	}
	if jobID := strings.TrimSpace(params.JobID); jobID != "" {
		dbConn = dbConn.Where("job_id = ?", jobID)
	}
	if params.TrainingStatus != nil {
		dbConn = dbConn.Where("training_status = ?", *params.TrainingStatus)
	}

	err = dbConn.Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("count training runs failed: %w", err)
	}

	offset, limit := pagination(params)
	err = dbConn.Order("id DESC").Offset(offset).Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("query training runs failed: %w", err)
	}

	return runs, total, nil
}
