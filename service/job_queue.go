package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Beenunn17/ReimaginedInd2/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusStarted  JobStatus = "started"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

// IsTerminal 终态任务不再流转
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

var (
	ErrQueueUnavailable = errors.New("job queue not configured")
	ErrJobNotFound      = errors.New("job not found")
	ErrJobIDRequired    = errors.New("job id is required")
)

// 任务记录在 broker 中的保留窗口，到期由 Redis 自行回收
const jobRetention = 7 * 24 * time.Hour

// TrainRequest 提交训练时携带的参数
type TrainRequest struct {
	DatasetFilename string `json:"dataset_filename"`
	ProjectID       string `json:"project_id,omitempty"`
	Location        string `json:"location,omitempty"`
	ModelName       string `json:"model_name,omitempty"`
}

// Job broker 中的任务视图，对 API 层只读
type Job struct {
	ID        string          `json:"job_id"`
	Status    JobStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ClaimedJob worker 取到的待执行任务
type ClaimedJob struct {
	ID      string
	Request TrainRequest
}

// JobQueue 基于 Redis 的持久化任务队列：
// 待执行任务在 list 里排队，任务数据存 hash，BRPOP 保证多 worker 下的原子出队。
type JobQueue struct {
	client *redis.Client
	name   string
}

func NewJobQueue() *JobQueue {
	name := "mmm"
	if config.AppConfig != nil {
		name = config.AppConfig.MMM.QueueName
	}
	return &JobQueue{
		client: config.RedisClient,
		name:   name,
	}
}

func NewJobQueueWithClient(client *redis.Client, name string) *JobQueue {
	return &JobQueue{client: client, name: name}
}

func (q *JobQueue) queueKey() string {
	return fmt.Sprintf("%s:queue", q.name)
}

func (q *JobQueue) jobKey(id string) string {
	return fmt.Sprintf("%s:job:%s", q.name, id)
}

// Enqueue 入队一个训练任务并返回初始状态
func (q *JobQueue) Enqueue(ctx context.Context, req TrainRequest) (Job, error) {
	if q.client == nil {
		return Job{}, ErrQueueUnavailable
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Job{}, fmt.Errorf("marshal train request failed: %w", err)
	}

	job := Job{
		ID:        uuid.NewString(),
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}

	key := q.jobKey(job.ID)
	err = q.client.HSet(ctx, key, map[string]interface{}{
		"status":     string(JobStatusQueued),
		"payload":    string(payload),
		"created_at": job.CreatedAt.Unix(),
	}).Err()
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	_ = q.client.Expire(ctx, key, jobRetention).Err()

	if err := q.client.LPush(ctx, q.queueKey(), job.ID).Err(); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	serviceLogger().Info("job enqueued", "queue", q.name, "job_id", job.ID,
		"dataset", req.DatasetFilename)
	return job, nil
}

// Fetch 查询任务当前状态
func (q *JobQueue) Fetch(ctx context.Context, id string) (Job, error) {
	if q.client == nil {
		return Job{}, ErrQueueUnavailable
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, ErrJobIDRequired
	}

	fields, err := q.client.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return Job{}, fmt.Errorf("fetch job failed: %w", err)
	}
	if len(fields) == 0 {
		return Job{}, ErrJobNotFound
	}

	job := Job{
		ID:     id,
		Status: JobStatus(fields["status"]),
		Error:  fields["error"],
	}
	if raw := fields["result"]; raw != "" {
		job.Result = json.RawMessage(raw)
	}
	if raw := fields["created_at"]; raw != "" {
		var unix int64
		if _, err := fmt.Sscanf(raw, "%d", &unix); err == nil {
			job.CreatedAt = time.Unix(unix, 0)
		}
	}
	return job, nil
}

// Claim 阻塞等待下一个任务，出队后立即标记 started。
// 队列空时返回 (nil, nil)。
func (q *JobQueue) Claim(ctx context.Context, block time.Duration) (*ClaimedJob, error) {
	if q.client == nil {
		return nil, ErrQueueUnavailable
	}

	values, err := q.client.BRPop(ctx, block, q.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop %s failed: %w", q.queueKey(), err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply: %v", values)
	}
	id := values[1]

	raw, err := q.client.HGet(ctx, q.jobKey(id), "payload").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s payload missing", id)
		}
		return nil, fmt.Errorf("fetch job payload failed: %w", err)
	}

	var req TrainRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		// 载荷损坏：直接记失败，worker 继续取下一个
		_ = q.Fail(ctx, id, fmt.Sprintf("invalid job payload: %v", err))
		return nil, fmt.Errorf("unmarshal job payload failed (job=%s): %w", id, err)
	}

	err = q.client.HSet(ctx, q.jobKey(id), map[string]interface{}{
		"status":     string(JobStatusStarted),
		"started_at": time.Now().Unix(),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("mark job started failed: %w", err)
	}

	return &ClaimedJob{ID: id, Request: req}, nil
}

// Complete 写入结果并置为 finished
func (q *JobQueue) Complete(ctx context.Context, id string, result interface{}) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result failed: %w", err)
	}
	return q.finish(ctx, id, map[string]interface{}{
		"status":   string(JobStatusFinished),
		"result":   string(payload),
		"ended_at": time.Now().Unix(),
	})
}

// Fail 写入错误详情并置为 failed
func (q *JobQueue) Fail(ctx context.Context, id string, errorDetail string) error {
	return q.finish(ctx, id, map[string]interface{}{
		"status":   string(JobStatusFailed),
		"error":    errorDetail,
		"ended_at": time.Now().Unix(),
	})
}

func (q *JobQueue) finish(ctx context.Context, id string, fields map[string]interface{}) error {
	if q.client == nil {
		return ErrQueueUnavailable
	}

	// 终态不再覆盖
	current, err := q.client.HGet(ctx, q.jobKey(id), "status").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read job status failed: %w", err)
	}
	if JobStatus(current).IsTerminal() {
		return nil
	}

	if err := q.client.HSet(ctx, q.jobKey(id), fields).Err(); err != nil {
		return fmt.Errorf("finish job failed: %w", err)
	}
	_ = q.client.Expire(ctx, q.jobKey(id), jobRetention).Err()
	return nil
}

// Depth 当前排队长度，供指标上报
func (q *JobQueue) Depth(ctx context.Context) (int64, error) {
	if q.client == nil {
		return 0, ErrQueueUnavailable
	}
	return q.client.LLen(ctx, q.queueKey()).Result()
}
