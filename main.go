package main

import (
	"fmt"
	"log"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/infrastructure/db"
	"github.com/Beenunn17/ReimaginedInd2/router"

	"github.com/gin-gonic/gin"
)

func main() {
	// 默认使用 release，避免线上以 debug 模式启动
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Init config failed: %v", err)
	}
	logger := config.InitLogger()

	// 2. Initialize database
	if err := db.InitDB(); err != nil {
		log.Fatalf("Init database failed: %v", err)
	}

	// 3. Initialize redis (job broker)；不可用时照常起服务，
	//    提交训练会回 503
	if err := config.InitRedis(); err != nil {
		logger.Warn("init redis failed, job submission disabled", "error", err)
	}

	// 4. Setup router
	r := router.SetupRouter()

	// 5. Start server
	port := config.AppConfig.Server.Port

	fmt.Printf("Server is running on port %d...\n", port)
	if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Server run failed: %v", err)
	}
}
