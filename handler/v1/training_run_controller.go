package v1

import (
	"net/http"

	"github.com/Beenunn17/ReimaginedInd2/dao"
	"github.com/Beenunn17/ReimaginedInd2/entity"

	"github.com/gin-gonic/gin"
)

type TrainingRunController struct {
	runDAO *dao.TrainingRunDAO
}

func NewTrainingRunController() *TrainingRunController {
	return &TrainingRunController{
		runDAO: dao.NewTrainingRunDAO(),
	}
}

// GetAllRuns handles GET /v1/training-runs
func (c *TrainingRunController) GetAllRuns(ctx *gin.Context) {
	var params entity.QueryParams
	if err := ctx.ShouldBindQuery(&params); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runs, total, err := c.runDAO.FindAll(ctx.Request.Context(), params)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, entity.PageResult{
		Total: total,
		List:  runs,
	})
}
