package dao_test

import (
	"context"
	"testing"
	"time"

	"github.com/Beenunn17/ReimaginedInd2/dao"
	"github.com/Beenunn17/ReimaginedInd2/entity"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newRunningTrainingRun(jobID string) *entity.TrainingRun {
	now := time.Now()
	return &entity.TrainingRun{
		JobID:          jobID,
		DatasetName:    "demo_data",
		TrainingStatus: entity.TrainingStatusRunning,
		TrainStartTime: &now,
	}
}

func TestTrainingRunDAOMarkFinished(t *testing.T) {
	runDAO := &dao.TrainingRunDAO{DB: newTestDB(t)}

	err := runDAO.Save(context.Background(), newRunningTrainingRun("job-1"))
	assert.NoError(t, err)

	err = runDAO.MarkFinished(context.Background(), "job-1",
		"demo_data/20250101T120000", []byte(`{"target_col":"sales"}`))
	assert.NoError(t, err)

	runs, total, err := runDAO.FindAll(context.Background(), entity.QueryParams{JobID: "job-1"})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, entity.TrainingStatusFinished, runs[0].TrainingStatus)
	assert.Equal(t, "demo_data/20250101T120000", runs[0].ModelID)
	assert.NotNil(t, runs[0].TrainEndTime)
}

func TestTrainingRunDAOMarkFailed(t *testing.T) {
	runDAO := &dao.TrainingRunDAO{DB: newTestDB(t)}

	err := runDAO.Save(context.Background(), newRunningTrainingRun("job-2"))
	assert.NoError(t, err)

	err = runDAO.MarkFailed(context.Background(), "job-2", "boom")
	assert.NoError(t, err)

	runs, _, err := runDAO.FindAll(context.Background(), entity.QueryParams{JobID: "job-2"})
	assert.NoError(t, err)
	assert.Equal(t, entity.TrainingStatusFailed, runs[0].TrainingStatus)
	assert.NotNil(t, runs[0].ErrorDetail)
	assert.Equal(t, "boom", *runs[0].ErrorDetail)
}

// 终态不允许被第二次终态更新覆盖
func TestTrainingRunDAOTerminalGuard(t *testing.T) {
	runDAO := &dao.TrainingRunDAO{DB: newTestDB(t)}

	err := runDAO.Save(context.Background(), newRunningTrainingRun("job-3"))
	assert.NoError(t, err)

	err = runDAO.MarkFailed(context.Background(), "job-3", "first failure")
	assert.NoError(t, err)

	err = runDAO.MarkFinished(context.Background(), "job-3", "demo_data/20250101T120000", nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	runs, _, err := runDAO.FindAll(context.Background(), entity.QueryParams{JobID: "job-3"})
	assert.NoError(t, err)
	assert.Equal(t, entity.TrainingStatusFailed, runs[0].TrainingStatus)
	assert.Empty(t, runs[0].ModelID)
}

func TestTrainingRunDAOMarkTerminalValidation(t *testing.T) {
	runDAO := &dao.TrainingRunDAO{DB: newTestDB(t)}

	err := runDAO.MarkFailed(context.Background(), "  ", "boom")
	assert.ErrorIs(t, err, dao.ErrInvalidID)

	err = runDAO.MarkFinished(context.Background(), "job-missing", "demo_data/20250101T120000", nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTrainingRunDAOFindAllByStatus(t *testing.T) {
	runDAO := &dao.TrainingRunDAO{DB: newTestDB(t)}

	assert.NoError(t, runDAO.Save(context.Background(), newRunningTrainingRun("job-a")))
	assert.NoError(t, runDAO.Save(context.Background(), newRunningTrainingRun("job-b")))
	assert.NoError(t, runDAO.MarkFailed(context.Background(), "job-b", "boom"))

	status := entity.TrainingStatusRunning
	runs, total, err := runDAO.FindAll(context.Background(),
		entity.QueryParams{TrainingStatus: &status})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "job-a", runs[0].JobID)
}
