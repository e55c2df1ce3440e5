package v1

import (
	"net/http"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/gin-gonic/gin"
)

type MMMController struct {
	queue   *service.JobQueue
	store   *service.ArtifactStore
	syncSvc *service.ArtifactSyncService
}

func NewMMMController() *MMMController {
	store := service.NewArtifactStore(config.DataDir())
	return &MMMController{
		queue:   service.NewJobQueue(),
		store:   store,
		syncSvc: service.NewArtifactSyncService(store),
	}
}

type trainRequestPayload struct {
	DatasetFilename string `form:"dataset_filename" json:"dataset_filename"`
	ProjectID       string `form:"project_id" json:"project_id"`
	Location        string `form:"location" json:"location"`
	ModelName       string `form:"model_name" json:"model_name"`
}

// SubmitTraining handles POST /v1/mmm/train
func (c *MMMController) SubmitTraining(ctx *gin.Context) {
	var payload trainRequestPayload
	if err := ctx.ShouldBind(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(payload.DatasetFilename) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "dataset_filename is required"})
		return
	}

	req := service.TrainRequest{
		DatasetFilename: strings.TrimSpace(payload.DatasetFilename),
		ProjectID:       payload.ProjectID,
		Location:        payload.Location,
		ModelName:       payload.ModelName,
	}
	if config.AppConfig != nil {
		if req.ProjectID == "" {
			req.ProjectID = config.AppConfig.LLM.Project
		}
		if req.Location == "" {
			req.Location = config.AppConfig.LLM.Location
		}
		if req.ModelName == "" {
			req.ModelName = config.AppConfig.LLM.Model
		}
	}

	job, err := c.queue.Enqueue(ctx.Request.Context(), req)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// GetJob handles GET /v1/jobs/:id
func (c *MMMController) GetJob(ctx *gin.Context) {
	job, err := c.queue.Fetch(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	resp := gin.H{
		"status": job.Status,
		"result": nil,
		"error":  nil,
	}
	if job.Status == service.JobStatusFinished && job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Status == service.JobStatusFailed && job.Error != "" {
		resp["error"] = job.Error
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListPlots handles GET /v1/mmm/plots?model_id=dataset/timestamp
func (c *MMMController) ListPlots(ctx *gin.Context) {
	modelID := strings.TrimSpace(ctx.Query("model_id"))
	if modelID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "model_id is required"})
		return
	}

	plots, err := c.store.ListPlots(modelID)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"model_id": modelID,
		"plots":    plots,
	})
}

type syncRequestPayload struct {
	ModelID   string `form:"model_id" json:"model_id"`
	ServerKey string `form:"server_key" json:"server_key"`
}

// SyncArtifacts handles POST /v1/mmm/models/sync
func (c *MMMController) SyncArtifacts(ctx *gin.Context) {
	var payload syncRequestPayload
	if err := ctx.ShouldBind(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	server, err := service.GetStorageServerByKey(ctx.Request.Context(), payload.ServerKey)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	result, err := c.syncSvc.PushArtifactSet(server, payload.ModelID)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// ListStorageServers handles GET /v1/storage-servers
func (c *MMMController) ListStorageServers(ctx *gin.Context) {
	servers, err := service.ListStorageServers(ctx.Request.Context())
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"servers": servers})
}
