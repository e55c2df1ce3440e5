package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Beenunn17/ReimaginedInd2/config"

	"github.com/redis/go-redis/v9"
)

const storageServersHashKey = "storage-servers"

var (
	ErrRedisNotInitialized      = errors.New("redis client is not initialized")
	ErrStorageServerKeyRequired = errors.New("storage server key is required")
	ErrStorageServerNotFound    = errors.New("storage server not found")
)

// StorageServer 可同步训练产物的远端机器
type StorageServer struct {
	Key  string `json:"key"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
	Root string `json:"root"` // 远端产物根目录
}

type storageServerValue struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
	Root string `json:"root"`
}

// ListStorageServers 列出 Redis 里登记的全部存储服务器
func ListStorageServers(ctx context.Context) ([]StorageServer, error) {
	if config.RedisClient == nil {
		return nil, ErrRedisNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rawMap, err := config.RedisClient.HGetAll(ctx, storageServersHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s failed: %w", storageServersHashKey, err)
	}

	keys := make([]string, 0, len(rawMap))
	for key := range rawMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]StorageServer, 0, len(keys))
	for _, key := range keys {
		raw := strings.TrimSpace(rawMap[key])
		if raw == "" {
			continue
		}

		var value storageServerValue
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("parse storage server failed (key=%s): %w", key, err)
		}

		result = append(result, StorageServer{
			Key:  key,
			IP:   value.IP,
			Port: value.Port,
			Root: value.Root,
		})
	}

	return result, nil
}

// GetStorageServerByKey 按 key 查询单台存储服务器
func GetStorageServerByKey(ctx context.Context, key string) (StorageServer, error) {
	if config.RedisClient == nil {
		return StorageServer{}, ErrRedisNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return StorageServer{}, ErrStorageServerKeyRequired
	}

	raw, err := config.RedisClient.HGet(ctx, storageServersHashKey, trimmedKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StorageServer{}, ErrStorageServerNotFound
		}
		return StorageServer{}, fmt.Errorf("hget %s failed (key=%s): %w", storageServersHashKey, trimmedKey, err)
	}

	payload := strings.TrimSpace(raw)
	if payload == "" {
		return StorageServer{}, ErrStorageServerNotFound
	}

	var value storageServerValue
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return StorageServer{}, fmt.Errorf("parse storage server failed (key=%s): %w", trimmedKey, err)
	}

	return StorageServer{
		Key:  trimmedKey,
		IP:   value.IP,
		Port: value.Port,
		Root: value.Root,
	}, nil
}
