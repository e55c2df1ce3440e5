package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobQueue(t *testing.T) (*JobQueue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJobQueueWithClient(client, "mmm-test"), mr
}

func TestJobQueueEnqueueAndFetch(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	job, err := queue.Enqueue(context.Background(), TrainRequest{
		DatasetFilename: "demo_data.csv",
		ModelName:       "mmm-v1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobStatusQueued, job.Status)

	got, err := queue.Fetch(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.Equal(t, JobStatusQueued, got.Status)
	assert.Empty(t, got.Error)

	depth, err := queue.Depth(context.Background())
	assert.NoError(t, err)
	assert.EqualValues(t, 1, depth)
}

func TestJobQueueClaimMarksStarted(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	job, err := queue.Enqueue(context.Background(), TrainRequest{
		DatasetFilename: "demo_data.csv",
		ProjectID:       "proj-1",
	})
	require.NoError(t, err)

	claimed, err := queue.Claim(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, "demo_data.csv", claimed.Request.DatasetFilename)
	assert.Equal(t, "proj-1", claimed.Request.ProjectID)

	got, err := queue.Fetch(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.Equal(t, JobStatusStarted, got.Status)

	depth, err := queue.Depth(context.Background())
	assert.NoError(t, err)
	assert.EqualValues(t, 0, depth)
}

func TestJobQueueCompleteStoresResult(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	job, err := queue.Enqueue(context.Background(), TrainRequest{DatasetFilename: "demo_data.csv"})
	require.NoError(t, err)
	_, err = queue.Claim(context.Background(), time.Second)
	require.NoError(t, err)

	err = queue.Complete(context.Background(), job.ID, map[string]string{
		"model_id": "demo_data/20250101T120000",
	})
	assert.NoError(t, err)

	got, err := queue.Fetch(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.Equal(t, JobStatusFinished, got.Status)
	assert.JSONEq(t, `{"model_id":"demo_data/20250101T120000"}`, string(got.Result))
}

// 终态写入后 Fail/Complete 均不再改写
func TestJobQueueTerminalStateNotOverwritten(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	job, err := queue.Enqueue(context.Background(), TrainRequest{DatasetFilename: "demo_data.csv"})
	require.NoError(t, err)
	_, err = queue.Claim(context.Background(), time.Second)
	require.NoError(t, err)

	err = queue.Complete(context.Background(), job.ID, map[string]string{"model_id": "a/b"})
	require.NoError(t, err)

	err = queue.Fail(context.Background(), job.ID, "late failure")
	assert.NoError(t, err)

	got, err := queue.Fetch(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.Equal(t, JobStatusFinished, got.Status)
	assert.Empty(t, got.Error)

	err = queue.Complete(context.Background(), job.ID, map[string]string{"model_id": "c/d"})
	assert.NoError(t, err)
	got, err = queue.Fetch(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"model_id":"a/b"}`, string(got.Result))
}

func TestJobQueueFailStoresError(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	job, err := queue.Enqueue(context.Background(), TrainRequest{DatasetFilename: "demo_data.csv"})
	require.NoError(t, err)

	err = queue.Fail(context.Background(), job.ID, "dataset missing")
	assert.NoError(t, err)

	got, err := queue.Fetch(context.Background(), job.ID)
	assert.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	assert.Equal(t, "dataset missing", got.Error)
}

func TestJobQueueFetchValidation(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	_, err := queue.Fetch(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrJobIDRequired)

	_, err = queue.Fetch(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobQueueClaimCorruptPayload(t *testing.T) {
	queue, mr := newTestJobQueue(t)

	mr.HSet("mmm-test:job:bad-job", "status", string(JobStatusQueued))
	mr.HSet("mmm-test:job:bad-job", "payload", "{not json")
	_, err := mr.Lpush("mmm-test:queue", "bad-job")
	require.NoError(t, err)

	claimed, err := queue.Claim(context.Background(), time.Second)
	assert.Error(t, err)
	assert.Nil(t, claimed)

	got, err := queue.Fetch(context.Background(), "bad-job")
	assert.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	assert.Contains(t, got.Error, "invalid job payload")
}

func TestJobQueueClaimEmptyQueue(t *testing.T) {
	queue, _ := newTestJobQueue(t)

	claimed, err := queue.Claim(context.Background(), time.Second)
	assert.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestJobQueueNilClient(t *testing.T) {
	queue := NewJobQueueWithClient(nil, "mmm-test")

	_, err := queue.Enqueue(context.Background(), TrainRequest{DatasetFilename: "x.csv"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	_, err = queue.Fetch(context.Background(), "id")
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	_, err = queue.Claim(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	_, err = queue.Depth(context.Background())
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}
