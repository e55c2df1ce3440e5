package v1

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/gin-gonic/gin"
)

type LibraryController struct {
	imageService *service.ImageLibraryService
}

func NewLibraryController() *LibraryController {
	return &LibraryController{
		imageService: service.NewImageLibraryService(config.ImageLibraryDir()),
	}
}

// SaveImage handles POST /v1/library/images/save
func (c *LibraryController) SaveImage(ctx *gin.Context) {
	data, err := readImagePayload(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	result, err := c.imageService.SaveImage(data)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// TextOverlay handles POST /v1/library/images/text-overlay
func (c *LibraryController) TextOverlay(ctx *gin.Context) {
	text := ctx.PostForm("text")
	if strings.TrimSpace(text) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	data, err := readImagePayload(ctx)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}

	url, err := c.imageService.OverlayText(data, text)
	if err != nil {
		writeHTTPError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orig": url})
}

// readImagePayload 支持 multipart 文件或 data_url 两种提交方式
func readImagePayload(ctx *gin.Context) ([]byte, error) {
	if file, err := ctx.FormFile("file"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return io.ReadAll(src)
	}

	dataURL := ctx.PostForm("data_url")
	if dataURL == "" {
		return nil, service.ErrNoImageData
	}
	// data:image/jpeg;base64,XXXX
	if idx := strings.Index(dataURL, ","); idx >= 0 {
		dataURL = dataURL[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL)
	if err != nil {
		return nil, service.ErrNoImageData
	}
	return raw, nil
}
