package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"limi-configurator/internal/domain"
	"limi-configurator/internal/renderer"
	"limi-configurator/internal/store"
)

// 会话注册表
// 内存持有活跃会话，Redis 持久化快照；空闲会话先快照再淘汰，
// 后续访问时从快照恢复

var ErrSessionNotFound = errors.New("session not found")

// ChannelFactory 为会话创建出站渲染器通道（通常按会话 ID 派生主题）
type ChannelFactory func(sessionID string) (renderer.Channel, error)

// Manager 会话管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	newChannel  ChannelFactory
	kv          store.KV
	snapPrefix  string
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewManager 创建管理器
func NewManager(factory ChannelFactory, kv store.KV, snapPrefix string, snapshotTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		newChannel:  factory,
		kv:          kv,
		snapPrefix:  snapPrefix,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// Create 新建会话：分配 ID、建通道、默认配置
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.New().String()

	ch, err := m.newChannel(id)
	if err != nil {
		return nil, fmt.Errorf("create renderer channel: %w", err)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := NewSession(id, domain.NewConfiguration(rnd), renderer.NewEmitter(ch, m.logger), m.logger)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session_id", id))
	return s, nil
}

// Get 按 ID 取会话；内存未命中时尝试从 Redis 快照恢复
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	return m.restore(ctx, id)
}

// Remove 删除会话（内存、快照、出站通道一并清掉）
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.emitter.Close()
	}
	if err := m.kv.Delete(ctx, m.snapKey(id)); err != nil {
		m.logger.Warn("delete session snapshot failed", zap.String("session_id", id), zap.Error(err))
	}
}

func (m *Manager) snapKey(id string) string {
	return m.snapPrefix + id
}

// snapshot 会话持久化快照
// 只保留配置状态；导航/选中/教程状态是瞬态的，恢复后从头开始
type snapshot struct {
	LightType         string         `json:"light_type"`
	BaseType          string         `json:"base_type"`
	BaseColor         string         `json:"base_color"`
	ConnectorColor    string         `json:"connector_color"`
	ConfigurationType string         `json:"configuration_type"`
	SystemType        string         `json:"system_type"`
	Quantity          int            `json:"quantity"`
	Units             []domain.Unit  `json:"units"`
	QuantityMemory    map[string]int `json:"quantity_memory,omitempty"`
	SavedAt           time.Time      `json:"saved_at"`
}

// Snapshot 把会话当前状态写入 Redis
func (m *Manager) Snapshot(ctx context.Context, s *Session) error {
	st := s.Export()
	snap := snapshot{
		LightType:         st.LightType,
		BaseType:          st.BaseType,
		BaseColor:         st.BaseColor,
		ConnectorColor:    st.ConnectorColor,
		ConfigurationType: st.ConfigurationType,
		SystemType:        st.SystemType,
		Quantity:          st.Quantity,
		Units:             st.Units,
		QuantityMemory:    s.quantityMemory(),
		SavedAt:           time.Now(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}
	return m.kv.Set(ctx, m.snapKey(s.ID), string(data), m.snapshotTTL)
}

// quantityMemory 在锁内导出数量记忆
func (s *Session) quantityMemory() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.QuantityMemory()
}

// restore 从 Redis 快照重建会话
func (m *Manager) restore(ctx context.Context, id string) (*Session, error) {
	raw, err := m.kv.Get(ctx, m.snapKey(id))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	if len(snap.Units) != snap.Quantity || snap.Quantity == 0 {
		return nil, fmt.Errorf("corrupt session snapshot for %s: quantity=%d units=%d", id, snap.Quantity, len(snap.Units))
	}

	ch, err := m.newChannel(id)
	if err != nil {
		return nil, fmt.Errorf("create renderer channel: %w", err)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	cfg := domain.NewConfiguration(rnd)
	cfg.LightType = domain.LightType(snap.LightType)
	cfg.BaseType = domain.BaseType(snap.BaseType)
	cfg.BaseColor = snap.BaseColor
	cfg.ConnectorColor = snap.ConnectorColor
	cfg.ConfigurationType = domain.ConfigurationType(snap.ConfigurationType)
	cfg.SystemType = domain.SystemType(snap.SystemType)
	cfg.Quantity = snap.Quantity
	cfg.Units = snap.Units
	cfg.Selected = map[int]struct{}{}
	cfg.RestoreQuantityMemory(snap.QuantityMemory)

	s := NewSession(id, cfg, renderer.NewEmitter(ch, m.logger), m.logger)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		// 并发恢复竞态：保留先到者
		m.mu.Unlock()
		if closer, ok := ch.(interface{ Close() }); ok {
			closer.Close()
		}
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session restored from snapshot",
		zap.String("session_id", id),
		zap.Time("saved_at", snap.SavedAt))
	return s, nil
}

// EvictIdle 淘汰空闲超时的会话：先落快照再摘除
func (m *Manager) EvictIdle(ctx context.Context, maxIdle time.Duration) int {
	m.mu.RLock()
	var idle []*Session
	cutoff := time.Now().Add(-maxIdle)
	for _, s := range m.sessions {
		if s.LastAccess().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	evicted := 0
	for _, s := range idle {
		if err := m.Snapshot(ctx, s); err != nil {
			m.logger.Warn("snapshot before eviction failed, keeping session in memory",
				zap.String("session_id", s.ID), zap.Error(err))
			continue
		}
		m.mu.Lock()
		delete(m.sessions, s.ID)
		m.mu.Unlock()
		// 每个会话独占一条 MQTT 连接，摘除后必须断开
		s.emitter.Close()
		evicted++
		m.logger.Info("idle session evicted", zap.String("session_id", s.ID))
	}
	return evicted
}

// RunEviction 周期淘汰循环，ctx 取消时退出
func (m *Manager) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx, maxIdle)
		}
	}
}

// Count 当前内存中的会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
