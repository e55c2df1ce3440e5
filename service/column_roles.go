package service

import (
	"errors"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ErrNoNumericColumns 目标列推断失败时返回的错误，错误文本原样写入任务失败详情
var ErrNoNumericColumns = errors.New("No numeric columns found for target.")

// 目标列的候选名，按表头顺序取第一个命中的
var targetColumnNames = []string{"sales", "revenue", "conversions", "kpi", "target", "y"}

// ColumnRoles 一次训练中各列扮演的角色
type ColumnRoles struct {
	Target string
	Media  []string
	Extra  []string
}

// InferColumnRoles 推断响应列、媒体投放列和协变量列。
// 响应列：首个名字命中固定候选名的列，否则第一个数值列；没有数值列时报错。
// 媒体列：列名以 spend 结尾的数值列，否则全部剩余数值列。
// 其余数值列作为协变量。
func InferColumnRoles(table *Table) (ColumnRoles, error) {
	var roles ColumnRoles

	for _, col := range table.Columns {
		if !col.Numeric {
			continue
		}
		if containsFold(targetColumnNames, col.Name) {
			roles.Target = col.Name
			break
		}
	}
	if roles.Target == "" {
		numeric := table.NumericColumns()
		if len(numeric) == 0 {
			return ColumnRoles{}, ErrNoNumericColumns
		}
		roles.Target = numeric[0].Name
	}

	for _, col := range table.Columns {
		if !col.Numeric || col.Name == roles.Target {
			continue
		}
		if strings.HasSuffix(strings.ToLower(col.Name), "spend") {
			roles.Media = append(roles.Media, col.Name)
		}
	}
	if len(roles.Media) == 0 {
		// 没有匹配后缀的列时，全部剩余数值列都按媒体列处理
		for _, col := range table.Columns {
			if col.Numeric && col.Name != roles.Target {
				roles.Media = append(roles.Media, col.Name)
			}
		}
	} else {
		for _, col := range table.Columns {
			if !col.Numeric || col.Name == roles.Target || containsFold(roles.Media, col.Name) {
				continue
			}
			roles.Extra = append(roles.Extra, col.Name)
		}
	}

	return roles, nil
}

func containsFold(names []string, name string) bool {
	for _, candidate := range names {
		if strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

// normalizeByMean 按列均值归一化，均值为 0 时保持原值。
func normalizeByMean(values []float64) ([]float64, float64) {
	mean := stat.Mean(values, nil)
	out := make([]float64, len(values))
	if mean == 0 {
		copy(out, values)
		return out, mean
	}
	for i, v := range values {
		out[i] = v / mean
	}
	return out, mean
}
