package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/dao"
	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func handlerLogger() *slog.Logger {
	logger := config.EnsureLoggerInitialized()
	if logger == nil {
		return slog.Default().With("layer", "handler")
	}
	return logger.With("layer", "handler")
}

func writeHTTPError(ctx *gin.Context, err error) {
	logger := handlerLogger().With(
		"method", ctx.Request.Method,
		"path", ctx.FullPath(),
	)

	var parseErr *service.ParseError

	switch {
	case errors.Is(err, dao.ErrInvalidID),
		errors.Is(err, dao.ErrNilEntity),
		errors.Is(err, service.ErrModelIDMalformed),
		errors.Is(err, service.ErrDatasetNameRequired),
		errors.Is(err, service.ErrInvalidDatasetName),
		errors.Is(err, service.ErrJobIDRequired),
		errors.Is(err, service.ErrPromptRequired),
		errors.Is(err, service.ErrInvalidUploadFile),
		errors.Is(err, service.ErrNotCSVFile),
		errors.Is(err, service.ErrNoImageData),
		errors.Is(err, service.ErrOverlayTextEmpty),
		errors.Is(err, service.ErrStorageServerKeyRequired):
		logger.Warn("request failed", "status", http.StatusBadRequest, "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dao.ErrAlreadyExists):
		logger.Warn("request failed", "status", http.StatusConflict, "error", err)
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrArtifactSetNotFound),
		errors.Is(err, service.ErrDatasetFileNotFound),
		errors.Is(err, service.ErrStorageServerNotFound):
		logger.Warn("request failed", "status", http.StatusNotFound, "error", err)
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		logger.Warn("request failed", "status", http.StatusNotFound, "error", err)
		ctx.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, service.ErrQueueUnavailable):
		logger.Error("request failed", "status", http.StatusServiceUnavailable, "error", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrLLMNotConfigured),
		errors.Is(err, service.ErrLLMUpstream):
		logger.Error("request failed", "status", http.StatusBadGateway, "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.As(err, &parseErr):
		logger.Error("request failed", "status", http.StatusBadGateway, "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", "status", http.StatusInternalServerError, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
