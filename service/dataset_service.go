package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/dao"
	"github.com/Beenunn17/ReimaginedInd2/entity"

	"gorm.io/gorm"
)

var (
	ErrInvalidUploadFile = errors.New("invalid upload file")
	ErrNotCSVFile        = errors.New("dataset file must be a .csv")
)

const previewRows = 5

// PreviewResult 数据集头部若干行
type PreviewResult struct {
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
}

// DatasetUploadResult 上传数据集后的落盘信息
type DatasetUploadResult struct {
	FileName  string `json:"file_name"`
	SavedPath string `json:"saved_path"`
	Size      int64  `json:"size"`
	Rows      uint   `json:"rows"`
	Columns   uint   `json:"columns"`
}

type DatasetService struct {
	Store      *ArtifactStore
	datasetDAO *dao.DatasetDAO
}

func NewDatasetService() *DatasetService {
	return &DatasetService{
		Store:      NewArtifactStore(config.DataDir()),
		datasetDAO: dao.NewDatasetDAO(),
	}
}

func (s *DatasetService) CreateDataset(ctx context.Context, dataset *entity.Dataset) error {
	if dataset == nil {
		return dao.ErrNilEntity
	}
	dataset.FileName = strings.TrimSpace(filepath.Base(dataset.FileName))
	if dataset.FileName == "" || dataset.FileName == "." {
		return dao.ErrNilEntity
	}
	if strings.TrimSpace(dataset.Name) == "" {
		dataset.Name = strings.TrimSuffix(dataset.FileName, filepath.Ext(dataset.FileName))
	}
	return s.datasetDAO.Save(ctx, dataset)
}

func (s *DatasetService) GetDatasetByID(ctx context.Context, id uint) (*entity.Dataset, error) {
	return s.datasetDAO.FindByID(ctx, id)
}

func (s *DatasetService) GetDatasetByFileName(ctx context.Context, fileName string) (*entity.Dataset, error) {
	return s.datasetDAO.FindByFileName(ctx, fileName)
}

func (s *DatasetService) GetAllDatasets(ctx context.Context, params entity.QueryParams) (entity.PageResult, error) {
	datasets, total, err := s.datasetDAO.FindAll(ctx, params)
	if err != nil {
		return entity.PageResult{}, err
	}
	return entity.PageResult{
		Total: total,
		List:  datasets,
	}, nil
}

// Preview 返回数据集前几行，列顺序与文件一致
func (s *DatasetService) Preview(datasetFilename string) (PreviewResult, error) {
	filePath, err := s.Store.DatasetPath(datasetFilename)
	if err != nil {
		return PreviewResult{}, err
	}
	table, err := LoadCSVTable(filePath)
	if err != nil {
		return PreviewResult{}, err
	}

	result := PreviewResult{Data: [][]string{}}
	for _, col := range table.Columns {
		result.Columns = append(result.Columns, col.Name)
	}
	limit := previewRows
	if table.Rows < limit {
		limit = table.Rows
	}
	for i := 0; i < limit; i++ {
		row := make([]string, len(table.Columns))
		for j, col := range table.Columns {
			row[j] = col.Raw[i]
		}
		result.Data = append(result.Data, row)
	}
	return result, nil
}

// SaveDatasetFile 把上传的 CSV 保存到数据目录并登记元数据
func (s *DatasetService) SaveDatasetFile(ctx context.Context, file *multipart.FileHeader) (DatasetUploadResult, error) {
	if file == nil || strings.TrimSpace(file.Filename) == "" {
		return DatasetUploadResult{}, ErrInvalidUploadFile
	}

	name := sanitizeFileName(filepath.Base(file.Filename))
	if name == "" {
		return DatasetUploadResult{}, ErrInvalidUploadFile
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return DatasetUploadResult{}, ErrNotCSVFile
	}

	targetPath, err := s.Store.DatasetPath(name)
	if err != nil {
		return DatasetUploadResult{}, err
	}

	// 已登记过的同名数据集不允许覆盖
	if s.datasetDAO != nil && s.datasetDAO.DB != nil {
		if _, err := s.datasetDAO.FindByFileName(ctx, name); err == nil {
			return DatasetUploadResult{}, fmt.Errorf("%w: %s", dao.ErrAlreadyExists, name)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			serviceLogger().Warn("check existing dataset failed", "file_name", name, "error", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return DatasetUploadResult{}, fmt.Errorf("create data dir failed: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return DatasetUploadResult{}, fmt.Errorf("open upload file failed: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return DatasetUploadResult{}, fmt.Errorf("create dataset file failed: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return DatasetUploadResult{}, fmt.Errorf("write dataset file failed: %w", err)
	}

	result := DatasetUploadResult{
		FileName:  name,
		SavedPath: targetPath,
		Size:      size,
	}

	// 行列统计失败不影响上传本身
	if table, err := LoadCSVTable(targetPath); err == nil {
		result.Rows = uint(table.Rows)
		result.Columns = uint(len(table.Columns))
	}

	if s.datasetDAO != nil && s.datasetDAO.DB != nil {
		rows, cols := result.Rows, result.Columns
		record := &entity.Dataset{
			Name:        strings.TrimSuffix(name, filepath.Ext(name)),
			FileName:    name,
			RowCount:    &rows,
			ColumnCount: &cols,
			SizeMB:      float64(size) / (1024 * 1024),
		}
		if err := s.datasetDAO.Save(ctx, record); err != nil {
			serviceLogger().Warn("register dataset failed", "file_name", name, "error", err)
		}
	}

	return result, nil
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return ""
	}
	return out
}
