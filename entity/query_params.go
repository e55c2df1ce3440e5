package entity

// QueryParams 定义通用的查询参数
type QueryParams struct {
	Page     int    `form:"page"`      // 页码
	PageSize int    `form:"page_size"` // 每页数量
	Keyword  string `form:"keyword"`   // 搜索关键字 (模糊匹配名称等)
	Name     string `form:"name"`      // 过滤字段：名称

	// training_runs 表过滤字段
	DatasetName    string `form:"dataset_name"`
	TrainingStatus *int8  `form:"training_status"`
	JobID          string `form:"job_id"`
}

// PageResult 通用的分页返回结构
type PageResult struct {
	Total int64       `json:"total"`
	List  interface{} `json:"list"`
}
