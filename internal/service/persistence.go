package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"limi-configurator/internal/catalog"
	"limi-configurator/internal/domain"
	"limi-configurator/internal/repository"
	"limi-configurator/internal/session"
	"limi-configurator/internal/store"
)

// 持久化网关
// 保存走账号服务鉴权；鉴权失败时配置暂存到 Redis（带 TTL），用户登录后
// 可恢复保存，避免丢编辑成果。未登录用户可以显式保存到本地存档。

var (
	ErrNoPendingSave = errors.New("no pending save for this session")
	ErrSaveNameEmpty = errors.New("config name is required")
)

// SaveResult 保存结果
type SaveResult struct {
	ConfigID string  `json:"config_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Local    bool    `json:"local,omitempty"`
}

// LoadResult 加载结果
type LoadResult struct {
	ConfigID        string   `json:"config_id"`
	Name            string   `json:"name,omitempty"`
	Quantity        int      `json:"quantity"`
	Price           float64  `json:"price"`
	Messages        []string `json:"messages,omitempty"`
	FallbackDefault bool     `json:"fallback_default,omitempty"` // 找不到存档时回落到默认配置
	Substituted     bool     `json:"substituted,omitempty"`      // 存档中有下架条目，已用目录默认值替换
}

// PersistenceService 配置存取服务
type PersistenceService struct {
	repo          repository.ConfigsRepository
	local         *repository.LocalConfigStore
	verifier      SessionVerifier
	kv            store.KV
	pendingPrefix string
	pendingTTL    time.Duration
	logger        *zap.Logger
}

// NewPersistenceService 创建持久化服务
func NewPersistenceService(
	repo repository.ConfigsRepository,
	local *repository.LocalConfigStore,
	verifier SessionVerifier,
	kv store.KV,
	pendingPrefix string,
	pendingTTL time.Duration,
	logger *zap.Logger,
) *PersistenceService {
	return &PersistenceService{
		repo:          repo,
		local:         local,
		verifier:      verifier,
		kv:            kv,
		pendingPrefix: pendingPrefix,
		pendingTTL:    pendingTTL,
		logger:        logger,
	}
}

func (p *PersistenceService) pendingKey(sessionID string) string {
	return p.pendingPrefix + sessionID
}

// buildSavedConfig 从会话当前状态组装存档（人类可读名称 + 重放序列）
func buildSavedConfig(s *session.Session, name string) *repository.SavedConfig {
	st := s.Export()

	designs := make([]string, len(st.Units))
	shades := make([]string, len(st.Units))
	cables := make([]int, len(st.Units))
	hasShade := false
	for i, u := range st.Units {
		if n, ok := catalog.DesignName(u.Design); ok {
			designs[i] = n
		} else {
			designs[i] = u.Design
		}
		if u.Shade != "" {
			if v, ok := catalog.ShadeFor(u.Design, u.Shade); ok {
				shades[i] = v.Name
			} else {
				shades[i] = u.Shade
			}
			hasShade = true
		}
		cables[i] = u.CableSize
	}
	if !hasShade {
		shades = nil
	}

	colorName := func(id string) string {
		if c, ok := catalog.ColorByID(id); ok {
			return c.Name
		}
		return id
	}

	cfg := &repository.SavedConfig{
		Name:           name,
		LightType:      st.LightType,
		BaseColor:      colorName(st.BaseColor),
		ConnectorColor: colorName(st.ConnectorColor),
		ConfigType:     st.ConfigurationType,
		LightAmount:    st.Quantity,
		Designs:        designs,
		Shades:         shades,
		CableSizes:     cables,
		Price:          st.Price,
		Iframe:         st.Replay,
	}
	if st.LightType == "ceiling" {
		cfg.BaseType = st.BaseType
	}
	if st.ConfigurationType == "system" {
		cfg.SystemType = st.SystemType
	}
	return cfg
}

// Save 保存到用户账号
// 令牌校验失败时把配置暂存到 Redis 并返回鉴权错误；调用方提示登录后
// 用 ResumePendingSave 续存
func (p *PersistenceService) Save(ctx context.Context, s *session.Session, name, token string) (*SaveResult, error) {
	if name == "" {
		return nil, ErrSaveNameEmpty
	}
	if err := s.BeginSave(); err != nil {
		return nil, err
	}
	defer s.EndSave()

	cfg := buildSavedConfig(s, name)

	userID, err := p.verifier.VerifySession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenExpired) {
			if parkErr := p.parkPendingSave(ctx, s.ID, cfg); parkErr != nil {
				p.logger.Error("Failed to park pending save",
					zap.String("session_id", s.ID), zap.Error(parkErr))
				return nil, parkErr
			}
			p.logger.Info("Save parked pending authentication",
				zap.String("session_id", s.ID), zap.String("name", name))
		}
		return nil, err
	}

	cfg.UserID = userID
	configID, err := p.repo.SaveConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &SaveResult{ConfigID: configID, Name: name, Price: cfg.Price}, nil
}

// parkPendingSave 把待保存配置暂存到 Redis
func (p *PersistenceService) parkPendingSave(ctx context.Context, sessionID string, cfg *repository.SavedConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal pending save: %w", err)
	}
	return p.kv.Set(ctx, p.pendingKey(sessionID), string(data), p.pendingTTL)
}

// ResumePendingSave 登录后续存之前暂存的配置
func (p *PersistenceService) ResumePendingSave(ctx context.Context, s *session.Session, token string) (*SaveResult, error) {
	raw, err := p.kv.Get(ctx, p.pendingKey(s.ID))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, ErrNoPendingSave
		}
		return nil, fmt.Errorf("failed to read pending save: %w", err)
	}

	var cfg repository.SavedConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode pending save: %w", err)
	}

	userID, err := p.verifier.VerifySession(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.BeginSave(); err != nil {
		return nil, err
	}
	defer s.EndSave()

	cfg.UserID = userID
	configID, err := p.repo.SaveConfig(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	if err := p.kv.Delete(ctx, p.pendingKey(s.ID)); err != nil {
		p.logger.Warn("Failed to clear pending save", zap.String("session_id", s.ID), zap.Error(err))
	}

	p.logger.Info("Pending save resumed",
		zap.String("session_id", s.ID),
		zap.String("config_id", configID),
		zap.String("user_id", userID),
	)
	return &SaveResult{ConfigID: configID, Name: cfg.Name, Price: cfg.Price}, nil
}

// SaveLocal 保存到本地存档（不需要登录）
func (p *PersistenceService) SaveLocal(ctx context.Context, s *session.Session, name string) (*SaveResult, error) {
	if name == "" {
		return nil, ErrSaveNameEmpty
	}
	if err := s.BeginSave(); err != nil {
		return nil, err
	}
	defer s.EndSave()

	cfg := buildSavedConfig(s, name)
	configID, err := p.local.SaveConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &SaveResult{ConfigID: configID, Name: name, Price: cfg.Price, Local: true}, nil
}

// Load 加载存档到会话并全量重放
// local- 前缀走本地存档，其余走数据库；找不到时回落到默认配置而不是报错，
// 保证渲染器总有可显示的状态
func (p *PersistenceService) Load(ctx context.Context, s *session.Session, configID string) (*LoadResult, error) {
	var (
		saved *repository.SavedConfig
		err   error
	)
	if repository.IsLocalConfigID(configID) {
		saved, err = p.local.GetConfig(ctx, configID)
	} else {
		saved, err = p.repo.GetConfig(ctx, configID)
	}

	if err != nil {
		if !errors.Is(err, repository.ErrConfigNotFound) {
			return nil, err
		}
		p.logger.Warn("Config not found, loading defaults",
			zap.String("config_id", configID))
		cfg := domain.NewConfiguration(rand.New(rand.NewSource(time.Now().UnixNano())))
		res, rerr := s.ReplaceConfiguration(cfg)
		if rerr != nil {
			return nil, rerr
		}
		return &LoadResult{
			ConfigID:        configID,
			Quantity:        res.Quantity,
			Price:           res.Price,
			Messages:        res.Messages,
			FallbackDefault: true,
		}, nil
	}

	cfg, substituted, err := rebuildConfiguration(saved)
	if err != nil {
		return nil, err
	}
	if substituted {
		p.logger.Warn("Config contains retired catalog entries, substituted defaults",
			zap.String("config_id", saved.ConfigID))
	}
	res, err := s.ReplaceConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &LoadResult{
		ConfigID:    saved.ConfigID,
		Name:        saved.Name,
		Quantity:    res.Quantity,
		Price:       res.Price,
		Messages:    res.Messages,
		Substituted: substituted,
	}, nil
}

// rebuildConfiguration 从存档重建领域聚合
// 存档里是人类可读名称，回查目录表翻成 ID。目录里已经不存在的设计/颜色
// （比如下架的款式）替换成目录默认值继续加载，只有数量和 unit 数对不上
// 这种结构性损坏才整单拒绝
func rebuildConfiguration(saved *repository.SavedConfig) (*domain.Configuration, bool, error) {
	lt := domain.LightType(saved.LightType)
	bt := domain.BaseType(saved.BaseType)
	if lt != domain.LightTypeCeiling {
		bt = domain.BaseTypeRound
	}

	legal := false
	for _, q := range domain.LegalQuantities(lt, bt) {
		if q == saved.LightAmount {
			legal = true
			break
		}
	}
	if !legal || len(saved.Designs) != saved.LightAmount {
		return nil, false, fmt.Errorf("corrupt config %s: light_amount=%d designs=%d",
			saved.ConfigID, saved.LightAmount, len(saved.Designs))
	}

	cfg := domain.NewConfiguration(rand.New(rand.NewSource(time.Now().UnixNano())))
	cfg.LightType = lt
	cfg.BaseType = bt
	cfg.ConfigurationType = domain.ConfigurationType(saved.ConfigType)
	cfg.SystemType = domain.SystemType(saved.SystemType)
	cfg.Quantity = saved.LightAmount

	substituted := false

	baseColorID, ok := catalog.ColorIDByName(saved.BaseColor)
	if !ok {
		baseColorID = catalog.DefaultColorID()
		substituted = true
	}
	connectorColorID, ok := catalog.ColorIDByName(saved.ConnectorColor)
	if !ok {
		connectorColorID = catalog.DefaultColorID()
		substituted = true
	}
	cfg.BaseColor = baseColorID
	cfg.ConnectorColor = connectorColorID

	units := make([]domain.Unit, saved.LightAmount)
	for i, designName := range saved.Designs {
		designID, ok := catalog.DesignIDByName(designName)
		if !ok {
			if cfg.ConfigurationType == domain.ConfigurationTypeSystem {
				designID = catalog.DefaultSystemBaseID(string(cfg.SystemType))
			} else {
				designID = catalog.DefaultPendantID()
			}
			substituted = true
		}
		isSystem, _ := catalog.IsSystemDesign(designID)

		u := domain.Unit{
			IsSystem:  isSystem,
			Design:    designID,
			CableSize: domain.DefaultCableSize,
		}
		if i < len(saved.CableSizes) &&
			saved.CableSizes[i] >= catalog.MinCableSize && saved.CableSizes[i] <= catalog.MaxCableSize {
			u.CableSize = saved.CableSizes[i]
		}
		if i < len(saved.Shades) && saved.Shades[i] != "" {
			if shadeID, ok := shadeIDByName(designID, saved.Shades[i]); ok {
				u.Shade = shadeID
			}
		}
		units[i] = u
	}
	cfg.Units = units
	return cfg, substituted, nil
}

// shadeIDByName 按名称回查某设计的灯罩变体
func shadeIDByName(designID, name string) (string, bool) {
	d, ok := catalog.SystemBaseByID(designID)
	if !ok {
		return "", false
	}
	for _, v := range d.Shades {
		if v.Name == name || v.ID == name {
			return v.ID, true
		}
	}
	return "", false
}

// GetSavedConfig 取存档明细（本地或数据库）
func (p *PersistenceService) GetSavedConfig(ctx context.Context, configID string) (*repository.SavedConfig, error) {
	if repository.IsLocalConfigID(configID) {
		return p.local.GetConfig(ctx, configID)
	}
	return p.repo.GetConfig(ctx, configID)
}

// ListUserConfigs 用户存档列表
func (p *PersistenceService) ListUserConfigs(ctx context.Context, token string, page, size int) ([]*repository.ConfigSummary, int, error) {
	userID, err := p.verifier.VerifySession(ctx, token)
	if err != nil {
		return nil, 0, err
	}
	return p.repo.ListConfigsByUser(ctx, userID, page, size)
}

// ListLocalConfigs 本地存档列表
func (p *PersistenceService) ListLocalConfigs(ctx context.Context) ([]*repository.ConfigSummary, error) {
	return p.local.ListConfigs(ctx)
}

// DeleteConfig 删除存档（本地或账号下的）
func (p *PersistenceService) DeleteConfig(ctx context.Context, token, configID string) error {
	if repository.IsLocalConfigID(configID) {
		return p.local.DeleteConfig(ctx, configID)
	}
	userID, err := p.verifier.VerifySession(ctx, token)
	if err != nil {
		return err
	}
	return p.repo.DeleteConfig(ctx, userID, configID)
}
