package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/dao"
	"github.com/Beenunn17/ReimaginedInd2/entity"

	"gonum.org/v1/gonum/stat"
	"gorm.io/gorm"
)

// TrainResult 训练成功后的任务结果载荷
type TrainResult struct {
	ModelID string            `json:"model_id"`
	Plots   map[string]string `json:"plots"`
}

// TrainingService 执行一次完整的 MMM 训练：读数、推断列角色、归一化、
// 拟合、落盘产物并登记训练记录。
type TrainingService struct {
	Store  *ArtifactStore
	Engine *MMMEngine
	runDAO *dao.TrainingRunDAO
}

func NewTrainingService() *TrainingService {
	opts := DefaultEngineOptions()
	opts.Seed = time.Now().UnixNano()
	if config.AppConfig != nil {
		opts.Warmup = config.AppConfig.MMM.Warmup
		opts.Samples = config.AppConfig.MMM.Samples
		opts.Chains = config.AppConfig.MMM.Chains
	}
	return &TrainingService{
		Store:  NewArtifactStore(config.DataDir()),
		Engine: NewMMMEngine(opts),
		runDAO: dao.NewTrainingRunDAO(),
	}
}

// Run 执行训练。除参数校验外的任何失败都只作用于本次任务。
func (s *TrainingService) Run(ctx context.Context, jobID string, req TrainRequest) (TrainResult, error) {
	logger := serviceLogger().With("job_id", jobID, "dataset", req.DatasetFilename)
	started := time.Now()

	s.recordStart(ctx, jobID, req)

	filePath, err := s.Store.DatasetPath(req.DatasetFilename)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	table, err := LoadCSVTable(filePath)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	roles, err := InferColumnRoles(table)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}
	logger.Info("column roles inferred", "target", roles.Target,
		"media", roles.Media, "extra", roles.Extra)

	input, err := buildFitInput(table, roles)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	fit, err := s.Engine.Fit(input)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	modelID, dir, err := s.Store.CreateRunDir(req.DatasetFilename)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	if err := s.Store.WriteModel(dir, fit); err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	diag := Diagnostics{
		MediaCols:      fit.MediaCols,
		ExtraCols:      fit.ExtraCols,
		TargetCol:      fit.TargetCol,
		MediaEffectHat: fit.MediaEffectHat,
		RoiHat:         fit.RoiHat,
	}
	if err := s.Store.WriteDiagnostics(dir, diag); err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	plotFiles, err := RenderPlots(dir, fit)
	if err != nil {
		return TrainResult{}, s.recordFailure(ctx, jobID, err)
	}

	result := TrainResult{
		ModelID: modelID,
		Plots:   make(map[string]string, len(plotFiles)),
	}
	for _, name := range plotFiles {
		result.Plots[name] = path.Join(modelsSubdir, modelID, name)
	}

	s.recordSuccess(ctx, jobID, modelID, diag)
	logger.Info("training finished", "model_id", modelID, "cost", time.Since(started))
	return result, nil
}

func buildFitInput(table *Table, roles ColumnRoles) (FitInput, error) {
	targetCol, ok := table.Column(roles.Target)
	if !ok {
		return FitInput{}, fmt.Errorf("target column %q missing", roles.Target)
	}

	target, _ := normalizeByMean(targetCol.Values)
	input := FitInput{
		Target:     target,
		TargetCol:  roles.Target,
		MediaCols:  roles.Media,
		ExtraCols:  roles.Extra,
		TargetMean: stat.Mean(targetCol.Values, nil),
	}

	for _, name := range roles.Media {
		col, ok := table.Column(name)
		if !ok {
			return FitInput{}, fmt.Errorf("media column %q missing", name)
		}
		normalized, mean := normalizeByMean(col.Values)
		input.Media = append(input.Media, normalized)
		input.MediaMeans = append(input.MediaMeans, mean)
	}
	for _, name := range roles.Extra {
		col, ok := table.Column(name)
		if !ok {
			return FitInput{}, fmt.Errorf("extra column %q missing", name)
		}
		normalized, _ := normalizeByMean(col.Values)
		input.Extra = append(input.Extra, normalized)
	}
	return input, nil
}

// recordStart 在 MySQL 登记一条训练记录；数据库不可用只降级为日志
func (s *TrainingService) recordStart(ctx context.Context, jobID string, req TrainRequest) {
	if s.runDAO == nil || s.runDAO.DB == nil {
		return
	}
	now := time.Now()
	run := &entity.TrainingRun{
		JobID:          jobID,
		DatasetName:    req.DatasetFilename,
		TrainingStatus: entity.TrainingStatusRunning,
		TrainStartTime: &now,
	}
	if err := s.runDAO.Save(ctx, run); err != nil {
		serviceLogger().Warn("record training run failed", "job_id", jobID, "error", err)
	}
}

func (s *TrainingService) recordSuccess(ctx context.Context, jobID, modelID string, diag Diagnostics) {
	if s.runDAO == nil || s.runDAO.DB == nil {
		return
	}
	payload, err := json.Marshal(diag)
	if err != nil {
		serviceLogger().Warn("marshal diagnostics for db failed", "job_id", jobID, "error", err)
		return
	}
	if err := s.runDAO.MarkFinished(ctx, jobID, modelID, payload); err != nil &&
		err != gorm.ErrRecordNotFound {
		serviceLogger().Warn("mark training run finished failed", "job_id", jobID, "error", err)
	}
}

// recordFailure 登记失败并原样返回触发错误
func (s *TrainingService) recordFailure(ctx context.Context, jobID string, cause error) error {
	if s.runDAO != nil && s.runDAO.DB != nil {
		if err := s.runDAO.MarkFailed(ctx, jobID, cause.Error()); err != nil &&
			err != gorm.ErrRecordNotFound {
			serviceLogger().Warn("mark training run failed failed", "job_id", jobID, "error", err)
		}
	}
	return cause
}
