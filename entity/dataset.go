package entity

import "time"

type Dataset struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name" json:"name"`
	FileName    string    `gorm:"column:file_name" json:"file_name"`
	Description *string   `gorm:"column:description" json:"description"`
	RowCount    *uint     `gorm:"column:row_count" json:"row_count"`
	ColumnCount *uint     `gorm:"column:column_count" json:"column_count"`
	SizeMB      float64   `gorm:"column:size_mb" json:"size_mb"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Dataset) TableName() string {
	return "datasets"
}
