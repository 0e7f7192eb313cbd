package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresConfigsRepository 配置存档Repository实现
// light_configs 表：标量列 + payload jsonb（设计/灯罩/线缆/重放序列）
type PostgresConfigsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresConfigsRepository 创建配置存档Repository
func NewPostgresConfigsRepository(db *sql.DB, logger *zap.Logger) *PostgresConfigsRepository {
	return &PostgresConfigsRepository{db: db, logger: logger}
}

// 确保实现了接口
var _ ConfigsRepository = (*PostgresConfigsRepository)(nil)

// configPayload payload jsonb 列的内容
type configPayload struct {
	BaseColor      string   `json:"base_color"`
	ConnectorColor string   `json:"connector_color"`
	ConfigType     string   `json:"config_type"`
	SystemType     string   `json:"system_type,omitempty"`
	Designs        []string `json:"designs"`
	Shades         []string `json:"shades,omitempty"`
	CableSizes     []int    `json:"cable_sizes"`
	Iframe         []string `json:"iframe"`
}

// SaveConfig 保存配置
func (r *PostgresConfigsRepository) SaveConfig(ctx context.Context, cfg *SavedConfig) (string, error) {
	if cfg.Name == "" {
		return "", fmt.Errorf("config name is required")
	}

	configID := uuid.New().String()
	payload, err := json.Marshal(configPayload{
		BaseColor:      cfg.BaseColor,
		ConnectorColor: cfg.ConnectorColor,
		ConfigType:     cfg.ConfigType,
		SystemType:     cfg.SystemType,
		Designs:        cfg.Designs,
		Shades:         cfg.Shades,
		CableSizes:     cfg.CableSizes,
		Iframe:         cfg.Iframe,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal config payload: %w", err)
	}

	query := `
		INSERT INTO light_configs (
			config_id, user_id, name, light_type, base_type,
			light_amount, price, payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`

	_, err = r.db.ExecContext(ctx, query,
		configID,
		nullString(cfg.UserID),
		cfg.Name,
		cfg.LightType,
		nullString(cfg.BaseType),
		cfg.LightAmount,
		cfg.Price,
		payload,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}

	r.logger.Info("Config saved",
		zap.String("config_id", configID),
		zap.String("user_id", cfg.UserID),
		zap.String("name", cfg.Name),
	)
	return configID, nil
}

// GetConfig 根据config_id获取配置
func (r *PostgresConfigsRepository) GetConfig(ctx context.Context, configID string) (*SavedConfig, error) {
	if configID == "" {
		return nil, ErrConfigNotFound
	}

	query := `
		SELECT
			config_id::text,
			COALESCE(user_id::text, ''),
			name,
			light_type,
			COALESCE(base_type, ''),
			light_amount,
			price,
			payload,
			created_at,
			updated_at
		FROM light_configs
		WHERE config_id = $1
	`

	var (
		cfg SavedConfig
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, query, configID).Scan(
		&cfg.ConfigID,
		&cfg.UserID,
		&cfg.Name,
		&cfg.LightType,
		&cfg.BaseType,
		&cfg.LightAmount,
		&cfg.Price,
		&raw,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	var payload configPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config payload: %w", err)
	}
	cfg.BaseColor = payload.BaseColor
	cfg.ConnectorColor = payload.ConnectorColor
	cfg.ConfigType = payload.ConfigType
	cfg.SystemType = payload.SystemType
	cfg.Designs = payload.Designs
	cfg.Shades = payload.Shades
	cfg.CableSizes = payload.CableSizes
	cfg.Iframe = payload.Iframe

	return &cfg, nil
}

// ListConfigsByUser 查询某用户的配置列表
func (r *PostgresConfigsRepository) ListConfigsByUser(ctx context.Context, userID string, page, size int) ([]*ConfigSummary, int, error) {
	if userID == "" {
		return nil, 0, fmt.Errorf("user_id is required")
	}
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM light_configs WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count configs: %w", err)
	}

	query := `
		SELECT
			config_id::text,
			name,
			light_type,
			light_amount,
			price,
			created_at
		FROM light_configs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	var out []*ConfigSummary
	for rows.Next() {
		var s ConfigSummary
		if err := rows.Scan(
			&s.ConfigID,
			&s.Name,
			&s.LightType,
			&s.LightAmount,
			&s.Price,
			&s.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan config row: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate config rows: %w", err)
	}

	return out, total, nil
}

// DeleteConfig 删除某用户的一份配置
func (r *PostgresConfigsRepository) DeleteConfig(ctx context.Context, userID, configID string) error {
	if userID == "" || configID == "" {
		return ErrConfigNotFound
	}

	query := `DELETE FROM light_configs WHERE config_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, configID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrConfigNotFound
	}

	r.logger.Info("Config deleted",
		zap.String("config_id", configID),
		zap.String("user_id", userID),
	)
	return nil
}

// nullString 空字符串落库为NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
