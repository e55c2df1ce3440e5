package dao

import (
	"context"
	"fmt"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/entity"
	"github.com/Beenunn17/ReimaginedInd2/infrastructure/db"

	"gorm.io/gorm"
)

type DatasetDAO struct {
	DB *gorm.DB
}

func NewDatasetDAO() *DatasetDAO {
	return &DatasetDAO{
		DB: db.DB,
	}
}

func (d *DatasetDAO) Save(ctx context.Context, dataset *entity.Dataset) error {
	if dataset == nil {
		return ErrNilEntity
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return fmt.Errorf("save dataset failed: %w", err)
	}
	return dbConn.Create(dataset).Error
}

func (d *DatasetDAO) FindByID(ctx context.Context, id uint) (*entity.Dataset, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, fmt.Errorf("find dataset by id failed: %w", err)
	}

	var dataset entity.Dataset
	err = dbConn.First(&dataset, id).Error
	return &dataset, err
}

func (d *DatasetDAO) FindByFileName(ctx context.Context, fileName string) (*entity.Dataset, error) {
	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, fmt.Errorf("find dataset by file_name failed: %w", err)
	}

	var dataset entity.Dataset
	err = dbConn.Where("file_name = ?", strings.TrimSpace(fileName)).First(&dataset).Error
	return &dataset, err
}

func (d *DatasetDAO) FindAll(ctx context.Context, params entity.QueryParams) ([]entity.Dataset, int64, error) {
	var datasets []entity.Dataset
	var total int64

	dbConn, err := withContext(d.DB, ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("find datasets failed: %w", err)
	}

	dbConn = dbConn.Model(&entity.Dataset{})

	// 基础模糊搜索
	if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
		dbConn = dbConn.Where("name LIKE ? OR description LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if name := strings.TrimSpace(params.Name); name != "" {
		dbConn = dbConn.Where("name = ?", name)
	}

	err = dbConn.Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("count datasets failed: %w", err)
	}

	offset, limit := pagination(params)
	err = dbConn.Order("id DESC").Offset(offset).Limit(limit).Find(&datasets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("query datasets failed: %w", err)
	}

	return datasets, total, nil
}
