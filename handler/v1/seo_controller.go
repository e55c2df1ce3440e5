package v1

import (
	"net/http"

	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/gin-gonic/gin"
)

type SEOController struct {
	sitemapService *service.SitemapService
}

func NewSEOController() *SEOController {
	return &SEOController{
		sitemapService: service.NewSitemapService(),
	}
}

// ValidateSitemaps handles POST /v1/seo/validate-sitemaps
func (c *SEOController) ValidateSitemaps(ctx *gin.Context) {
	urls := ctx.PostFormArray("urls")
	if len(urls) == 0 {
		var payload struct {
			URLs []string `json:"urls"`
		}
		if err := ctx.ShouldBindJSON(&payload); err != nil || len(payload.URLs) == 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "urls is required"})
			return
		}
		urls = payload.URLs
	}

	results := c.sitemapService.ValidateSitemaps(ctx.Request.Context(), urls)
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}
