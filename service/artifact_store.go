package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	modelsSubdir = "models"

	modelFileName       = "model.json"
	diagnosticsFileName = "diagnostics.json"

	modelIDTimestampLayout = "20060102T150405"
)

var (
	ErrModelIDMalformed       = errors.New("model_id must be dataset_name/timestamp")
	ErrArtifactSetNotFound    = errors.New("artifact set not found")
	ErrDatasetNameRequired    = errors.New("dataset name is required")
	ErrDatasetFileNotFound    = errors.New("dataset file not found")
	ErrInvalidDatasetName     = errors.New("dataset filename must not contain path separators")
	ErrArtifactStoreRootEmpty = errors.New("artifact store root is empty")
)

// Diagnostics 训练产出的诊断信息，落盘为 diagnostics.json
type Diagnostics struct {
	MediaCols      []string  `json:"media_cols"`
	ExtraCols      []string  `json:"extra_cols"`
	TargetCol      string    `json:"target_col"`
	MediaEffectHat []float64 `json:"media_effect_hat"`
	RoiHat         []float64 `json:"roi_hat"`
}

type PlotRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ArtifactStore 管理 <root>/models/<dataset>/<timestamp>/ 下的训练产物。
// 目录按时间戳区分，同一数据集的并发训练不会互相覆盖。
type ArtifactStore struct {
	Root string

	now func() time.Time
}

func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{
		Root: root,
		now:  time.Now,
	}
}

// DatasetPath 把数据集文件名解析到数据目录下，拒绝带路径的文件名
func (s *ArtifactStore) DatasetPath(fileName string) (string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		return "", ErrDatasetNameRequired
	}
	if name != filepath.Base(name) {
		return "", ErrInvalidDatasetName
	}
	if strings.TrimSpace(s.Root) == "" {
		return "", ErrArtifactStoreRootEmpty
	}
	return filepath.Join(s.Root, name), nil
}

// CreateRunDir 为一次训练创建产物目录，返回 model_id 与目录路径
func (s *ArtifactStore) CreateRunDir(datasetFileName string) (modelID, dir string, err error) {
	base := strings.TrimSpace(datasetFileName)
	if base == "" {
		return "", "", ErrDatasetNameRequired
	}
	datasetName := strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))
	timestamp := s.now().Format(modelIDTimestampLayout)

	modelID = datasetName + "/" + timestamp
	dir = filepath.Join(s.Root, modelsSubdir, datasetName, timestamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create run dir failed: %w", err)
	}
	return modelID, dir, nil
}

// ParseModelID 校验并拆分 dataset/timestamp 形式的标识。
// 两段都必须是单层目录名，拒绝 . / .. 之类会逃出产物树的成分。
func ParseModelID(modelID string) (dataset, timestamp string, err error) {
	id := strings.TrimSpace(modelID)
	parts := strings.Split(id, "/")
	if len(parts) != 2 {
		return "", "", ErrModelIDMalformed
	}
	dataset, timestamp = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !validPathComponent(dataset) || !validPathComponent(timestamp) {
		return "", "", ErrModelIDMalformed
	}
	return dataset, timestamp, nil
}

func validPathComponent(part string) bool {
	if part == "" || part == "." || part == ".." {
		return false
	}
	return part == filepath.Base(part)
}

// RunDir 解析一个 model_id 对应的产物目录
func (s *ArtifactStore) RunDir(modelID string) (string, error) {
	dataset, timestamp, err := ParseModelID(modelID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, modelsSubdir, dataset, timestamp), nil
}

// ListPlots 列出一个产物目录下的图片文件，返回 name/url 对。
// 目录缺失或没有图片时返回 ErrArtifactSetNotFound。
func (s *ArtifactStore) ListPlots(modelID string) ([]PlotRef, error) {
	dataset, timestamp, err := ParseModelID(modelID)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.Root, modelsSubdir, dataset, timestamp)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactSetNotFound
		}
		return nil, fmt.Errorf("read artifact dir failed: %w", err)
	}

	var plots []PlotRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".png" {
			continue
		}
		plots = append(plots, PlotRef{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			URL:  path.Join("/", modelsSubdir, dataset, timestamp, name),
		})
	}
	if len(plots) == 0 {
		return nil, ErrArtifactSetNotFound
	}

	sort.Slice(plots, func(i, j int) bool { return plots[i].Name < plots[j].Name })
	return plots, nil
}

// WriteDiagnostics 写入 diagnostics.json
func (s *ArtifactStore) WriteDiagnostics(dir string, diag Diagnostics) error {
	data, err := json.MarshalIndent(diag, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagnostics failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, diagnosticsFileName), data, 0o644); err != nil {
		return fmt.Errorf("write diagnostics failed: %w", err)
	}
	return nil
}

// WriteModel 序列化训练得到的模型到 model.json
func (s *ArtifactStore) WriteModel(dir string, model interface{}) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, modelFileName), data, 0o644); err != nil {
		return fmt.Errorf("write model failed: %w", err)
	}
	return nil
}
