package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Beenunn17/ReimaginedInd2/config"
	"github.com/Beenunn17/ReimaginedInd2/infrastructure/db"
	"github.com/Beenunn17/ReimaginedInd2/monitoring"
	"github.com/Beenunn17/ReimaginedInd2/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	claimBlock  = 5 * time.Second
	metricsAddr = ":2113"
)

func main() {
	if err := config.InitConfig(); err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}
	logger := config.InitLogger()

	// worker 离开 Redis 无法工作，启动即失败
	if err := config.InitRedis(); err != nil {
		logger.Error("Redis 初始化失败", "error", err)
		os.Exit(1)
	}
	defer config.CloseRedis()

	// MySQL 只用于训练记录，连不上时降级为纯队列模式
	if err := db.InitDB(); err != nil {
		logger.Warn("MySQL 初始化失败，训练记录不会入库", "error", err)
	}

	go serveMetrics(logger)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := service.NewJobQueue()
	trainer := service.NewTrainingService()

	logger.Info("worker started",
		"queue", config.AppConfig.MMM.QueueName, "data_dir", config.DataDir())

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		default:
		}

		job, err := queue.Claim(ctx, claimBlock)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("claim job failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			reportQueueDepth(ctx, queue)
			continue
		}

		monitoring.JobsClaimedTotal.Inc()
		runJob(ctx, logger, queue, trainer, job)
		reportQueueDepth(ctx, queue)
	}
}

// runJob 执行单个任务。任何失败（包括 panic）只标记该任务，不影响 worker 存活。
func runJob(ctx context.Context, logger *slog.Logger, queue *service.JobQueue,
	trainer *service.TrainingService, job *service.ClaimedJob) {
	logger.Info("job claimed", "job_id", job.ID, "dataset", job.Request.DatasetFilename)
	started := time.Now()

	result, err := runGuarded(ctx, trainer, job)
	monitoring.TrainingDurationSeconds.Observe(time.Since(started).Seconds())

	if err != nil {
		monitoring.JobsCompletedTotal.WithLabelValues("false").Inc()
		logger.Error("job failed", "job_id", job.ID, "cost", time.Since(started), "error", err)
		if failErr := queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			logger.Error("mark job failed error", "job_id", job.ID, "error", failErr)
		}
		return
	}

	monitoring.JobsCompletedTotal.WithLabelValues("true").Inc()
	logger.Info("job finished", "job_id", job.ID,
		"model_id", result.ModelID, "cost", time.Since(started))
	if err := queue.Complete(ctx, job.ID, result); err != nil {
		logger.Error("mark job finished error", "job_id", job.ID, "error", err)
	}
}

func runGuarded(ctx context.Context, trainer *service.TrainingService,
	job *service.ClaimedJob) (result service.TrainResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("training panicked: %v", r)
		}
	}()
	return trainer.Run(ctx, job.ID, job.Request)
}

func reportQueueDepth(ctx context.Context, queue *service.JobQueue) {
	if depth, err := queue.Depth(ctx); err == nil {
		monitoring.QueueDepth.Set(float64(depth))
	}
}

func serveMetrics(logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		logger.Warn("metrics server exited", "error", err)
	}
}
