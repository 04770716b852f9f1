package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// PendingPrompt 等待上传完成时关联的提示词
type PendingPrompt struct {
	Prompt     string `json:"prompt"`
	CustomName string `json:"customName,omitempty"`
}

// PromptReader 提示词查询接口
type PromptReader interface {
	Get(ctx context.Context, userID uint, timestamp int64) (*PendingPrompt, error)
}

// PromptStore 基于Redis的提示词暂存
type PromptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPromptStore 创建提示词暂存
func NewPromptStore(client *redis.Client, ttl time.Duration) *PromptStore {
	return &PromptStore{
		client: client,
		ttl:    ttl,
	}
}

// promptKey 暂存键 prompt:{userId}:{timestamp}
func promptKey(userID uint, timestamp int64) string {
	return fmt.Sprintf("prompt:%d:%d", userID, timestamp)
}

// Put 写入提示词，重复写入覆盖旧值并刷新有效期
func (s *PromptStore) Put(ctx context.Context, userID uint, timestamp int64, prompt, customName string) error {
	value, err := json.Marshal(PendingPrompt{Prompt: prompt, CustomName: customName})
	if err != nil {
		return fmt.Errorf("序列化提示词失败: %w", err)
	}

	if err := s.client.Set(ctx, promptKey(userID, timestamp), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get 读取提示词，读取后不删除
func (s *PromptStore) Get(ctx context.Context, userID uint, timestamp int64) (*PendingPrompt, error) {
	raw, err := s.client.Get(ctx, promptKey(userID, timestamp)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var pending PendingPrompt
	if err := json.Unmarshal([]byte(raw), &pending); err != nil || pending.Prompt == "" {
		// 旧格式直接存储提示词文本
		return &PendingPrompt{Prompt: raw}, nil
	}
	return &pending, nil
}
