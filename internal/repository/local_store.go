package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"limi-configurator/internal/store"
)

// 本地（未认证）配置存档
// 未登录用户的保存落到 Redis，config_id 带 local- 前缀以便加载端分流；
// 登录后的保存才进 PostgreSQL

const localIDPrefix = "local-"

// IsLocalConfigID 该config_id是否属于本地存档
func IsLocalConfigID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// LocalConfigStore 本地配置存档（Redis）
type LocalConfigStore struct {
	kv        store.KV
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewLocalConfigStore 创建本地配置存档
func NewLocalConfigStore(kv store.KV, keyPrefix string, ttl time.Duration, logger *zap.Logger) *LocalConfigStore {
	return &LocalConfigStore{kv: kv, keyPrefix: keyPrefix, ttl: ttl, logger: logger}
}

func (s *LocalConfigStore) key(configID string) string {
	return s.keyPrefix + configID
}

// SaveConfig 保存一份本地配置，返回生成的 local- 前缀 config_id
func (s *LocalConfigStore) SaveConfig(ctx context.Context, cfg *SavedConfig) (string, error) {
	if cfg.Name == "" {
		return "", fmt.Errorf("config name is required")
	}

	configID := localIDPrefix + uuid.New().String()
	now := time.Now()

	stored := *cfg
	stored.ConfigID = configID
	stored.UserID = ""
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal local config: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(configID), string(data), s.ttl); err != nil {
		return "", fmt.Errorf("failed to save local config: %w", err)
	}

	s.logger.Info("Local config saved",
		zap.String("config_id", configID),
		zap.String("name", cfg.Name),
	)
	return configID, nil
}

// GetConfig 根据config_id获取本地配置
func (s *LocalConfigStore) GetConfig(ctx context.Context, configID string) (*SavedConfig, error) {
	if !IsLocalConfigID(configID) {
		return nil, ErrConfigNotFound
	}

	raw, err := s.kv.Get(ctx, s.key(configID))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get local config: %w", err)
	}

	var cfg SavedConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal local config: %w", err)
	}
	return &cfg, nil
}

// ListConfigs 列出全部本地配置（按创建时间倒序）
func (s *LocalConfigStore) ListConfigs(ctx context.Context) ([]*ConfigSummary, error) {
	keys, err := s.kv.ScanKeys(ctx, s.keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan local configs: %w", err)
	}

	var out []*ConfigSummary
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrMiss) {
				// 扫描和读取之间过期了，跳过
				continue
			}
			return nil, fmt.Errorf("failed to get local config: %w", err)
		}
		var cfg SavedConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			s.logger.Warn("Skipping corrupt local config", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, &ConfigSummary{
			ConfigID:    cfg.ConfigID,
			Name:        cfg.Name,
			LightType:   cfg.LightType,
			LightAmount: cfg.LightAmount,
			Price:       cfg.Price,
			CreatedAt:   cfg.CreatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteConfig 删除一份本地配置
func (s *LocalConfigStore) DeleteConfig(ctx context.Context, configID string) error {
	if !IsLocalConfigID(configID) {
		return ErrConfigNotFound
	}
	if _, err := s.kv.Get(ctx, s.key(configID)); err != nil {
		if errors.Is(err, store.ErrMiss) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to check local config: %w", err)
	}
	if err := s.kv.Delete(ctx, s.key(configID)); err != nil {
		return fmt.Errorf("failed to delete local config: %w", err)
	}
	return nil
}
