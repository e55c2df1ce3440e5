package v1

import (
	"net/http"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	reportService *service.ReportService
}

func NewReportController() *ReportController {
	return &ReportController{
		reportService: service.NewReportService(),
	}
}

// Analyze handles POST /v1/analyze
func (c *ReportController) Analyze(ctx *gin.Context) {
	datasetFilename := strings.TrimSpace(ctx.PostForm("dataset_filename"))
	prompt := ctx.PostForm("prompt")
	if datasetFilename == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "dataset_filename is required"})
		return
	}

	report, err := c.reportService.Analyze(ctx.Request.Context(), datasetFilename, prompt)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

// FollowUp handles POST /v1/follow-up
func (c *ReportController) FollowUp(ctx *gin.Context) {
	datasetFilename := strings.TrimSpace(ctx.PostForm("dataset_filename"))
	if datasetFilename == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "dataset_filename is required"})
		return
	}

	report, err := c.reportService.FollowUp(
		ctx.Request.Context(),
		datasetFilename,
		ctx.PostForm("original_prompt"),
		ctx.PostForm("follow_up_history"),
		ctx.PostForm("follow_up_prompt"),
	)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
