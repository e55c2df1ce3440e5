package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/entity"
	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/gin-gonic/gin"
)

type DatasetController struct {
	datasetService *service.DatasetService
}

func NewDatasetController() *DatasetController {
	return &DatasetController{
		datasetService: service.NewDatasetService(),
	}
}

// CreateDataset handles POST /v1/datasets
func (c *DatasetController) CreateDataset(ctx *gin.Context) {
	var dataset entity.Dataset
	if err := ctx.ShouldBindJSON(&dataset); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.datasetService.CreateDataset(ctx.Request.Context(), &dataset); err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dataset)
}

// GetAllDatasets handles GET /v1/datasets
func (c *DatasetController) GetAllDatasets(ctx *gin.Context) {
	var params entity.QueryParams
	if err := ctx.ShouldBindQuery(&params); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := c.datasetService.GetAllDatasets(ctx.Request.Context(), params)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetDataset handles GET /v1/datasets/:filename
// 纯数字按数据库 ID 查询，否则按文件名查询。
func (c *DatasetController) GetDataset(ctx *gin.Context) {
	key := strings.TrimSpace(ctx.Param("filename"))
	if key == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "dataset id or filename is required"})
		return
	}

	var dataset *entity.Dataset
	var err error
	if id, parseErr := strconv.ParseUint(key, 10, 64); parseErr == nil {
		dataset, err = c.datasetService.GetDatasetByID(ctx.Request.Context(), uint(id))
	} else {
		dataset, err = c.datasetService.GetDatasetByFileName(ctx.Request.Context(), key)
	}
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dataset)
}

// UploadDataset handles POST /v1/datasets/upload
func (c *DatasetController) UploadDataset(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	result, err := c.datasetService.SaveDatasetFile(ctx.Request.Context(), file)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":    "upload success",
		"file_name":  result.FileName,
		"saved_path": result.SavedPath,
		"size":       result.Size,
		"rows":       result.Rows,
		"columns":    result.Columns,
	})
}

// PreviewDataset handles GET /v1/datasets/:filename/preview
func (c *DatasetController) PreviewDataset(ctx *gin.Context) {
	preview, err := c.datasetService.Preview(ctx.Param("filename"))
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, preview)
}
