package router

import (
	"path/filepath"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/config"
	v1 "github.com/Beenunn17/ReimaginedInd2/handler/v1"

	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	mmmController := v1.NewMMMController()
	datasetController := v1.NewDatasetController()
	trainingRunController := v1.NewTrainingRunController()
	reportController := v1.NewReportController()
	seoController := v1.NewSEOController()
	libraryController := v1.NewLibraryController()

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(immutableCacheControl())

	v1Group := r.Group("/v1")
	{
		// MMM training routes
		mmm := v1Group.Group("/mmm")
		{
			mmm.POST("/train", mmmController.SubmitTraining)
			mmm.GET("/plots", mmmController.ListPlots)
			mmm.POST("/models/sync", mmmController.SyncArtifacts)
		}
		v1Group.GET("/jobs/:id", mmmController.GetJob)
		v1Group.GET("/storage-servers", mmmController.ListStorageServers)

		// Dataset routes
		datasets := v1Group.Group("/datasets")
		{
			datasets.POST("", datasetController.CreateDataset)
			datasets.GET("", datasetController.GetAllDatasets)
			datasets.POST("/upload", datasetController.UploadDataset)
			datasets.GET("/:filename", datasetController.GetDataset)
			datasets.GET("/:filename/preview", datasetController.PreviewDataset)
		}

		// Training run routes
		v1Group.GET("/training-runs", trainingRunController.GetAllRuns)

		// Analysis routes
		v1Group.POST("/analyze", reportController.Analyze)
		v1Group.POST("/follow-up", reportController.FollowUp)

		// SEO routes
		v1Group.POST("/seo/validate-sitemaps", seoController.ValidateSitemaps)

		// Creative library routes
		library := v1Group.Group("/library")
		{
			library.POST("/images/save", libraryController.SaveImage)
			library.POST("/images/text-overlay", libraryController.TextOverlay)
		}
	}

	// 产物与图库静态托管，训练图和图片 URL 由这里兑现
	r.Static("/models", filepath.Join(config.DataDir(), "models"))
	r.Static("/image_library", config.ImageLibraryDir())

	return r
}

// immutableCacheControl 图库资源带长缓存头
func immutableCacheControl() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		if strings.HasPrefix(ctx.Request.URL.Path, "/image_library/") {
			ctx.Header("Cache-Control", "public, max-age=604800, immutable")
		}
	}
}
