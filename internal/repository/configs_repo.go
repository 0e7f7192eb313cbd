package repository

import (
	"context"
	"errors"
	"time"
)

// 已保存配置的Repository接口
// 设计原则：Repository层只负责数据访问，鉴权/暂存逻辑在Service层

var ErrConfigNotFound = errors.New("config not found")

// SavedConfig 一份已保存的灯具配置
// 存档用人类可读名称（Cone、Matte Black），Iframe 保存可完整重建
// 渲染器状态的有序消息序列
type SavedConfig struct {
	ConfigID       string    `json:"config_id"`
	UserID         string    `json:"user_id,omitempty"` // 本地保存时为空
	Name           string    `json:"name"`
	LightType      string    `json:"light_type"`
	BaseType       string    `json:"base_type,omitempty"` // 仅 ceiling
	BaseColor      string    `json:"base_color"`
	ConnectorColor string    `json:"connector_color"`
	ConfigType     string    `json:"config_type"` // pendant | system
	SystemType     string    `json:"system_type,omitempty"`
	LightAmount    int       `json:"light_amount"`
	Designs        []string  `json:"designs"` // 每个灯位的设计名称，按下标序
	Shades         []string  `json:"shades,omitempty"`
	CableSizes     []int     `json:"cable_sizes"`
	Price          float64   `json:"price"`
	Iframe         []string  `json:"iframe"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConfigSummary 列表项（不含 Iframe 重放序列）
type ConfigSummary struct {
	ConfigID    string    `json:"config_id"`
	Name        string    `json:"name"`
	LightType   string    `json:"light_type"`
	LightAmount int       `json:"light_amount"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConfigsRepository 配置存档Repository接口
type ConfigsRepository interface {
	// SaveConfig 保存配置，返回生成的config_id
	SaveConfig(ctx context.Context, cfg *SavedConfig) (string, error)

	// GetConfig 根据config_id获取配置
	GetConfig(ctx context.Context, configID string) (*SavedConfig, error)

	// ListConfigsByUser 查询某用户的配置列表（按创建时间倒序，支持分页）
	ListConfigsByUser(ctx context.Context, userID string, page, size int) ([]*ConfigSummary, int, error)

	// DeleteConfig 删除某用户的一份配置
	DeleteConfig(ctx context.Context, userID, configID string) error
}
