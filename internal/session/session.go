package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"limi-configurator/internal/domain"
	"limi-configurator/internal/renderer"
)

// 编辑会话
// 每个会话持有一份 Configuration 聚合、三个控制器和一个发射器
// 互斥锁把所有变更串行化（规格的单线程事件循环在这里落地为每会话互斥）

var (
	ErrSaveInFlight = errors.New("a save is already in flight for this session")
	ErrLoadInFlight = errors.New("a load is already in flight for this session")
)

// Session 一个配置编辑会话
type Session struct {
	ID string

	mu      sync.Mutex
	cfg     *domain.Configuration
	steps   *StepController
	sel     *SelectionController
	tour    *TourEngine
	emitter *renderer.Emitter
	logger  *zap.Logger

	lastAccess   time.Time
	saveInFlight bool
	loading      bool
}

// Result 一次会话操作的结果（回显给 UI 层）
type Result struct {
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Messages []string `json:"messages,omitempty"` // 本次发出的线格式消息
	Dropped  int      `json:"dropped,omitempty"`  // 通道未就绪时被丢弃的条数
}

// NewSession 创建会话
func NewSession(id string, cfg *domain.Configuration, emitter *renderer.Emitter, logger *zap.Logger) *Session {
	steps := NewStepController()
	return &Session{
		ID:         id,
		cfg:        cfg,
		steps:      steps,
		sel:        NewSelectionController(),
		tour:       NewTourEngine(DefaultTourScript(), steps, logger),
		emitter:    emitter,
		logger:     logger,
		lastAccess: time.Now(),
	}
}

// touch 更新最近访问时间（空闲淘汰用）
func (s *Session) touch() {
	s.lastAccess = time.Now()
}

// LastAccess 最近访问时间
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// flush 发出批次并组装结果
func (s *Session) flush(batch []renderer.Message) Result {
	wires := renderer.WireBatch(batch)
	_, dropped := s.emitter.Flush(batch)
	return Result{
		Quantity: s.cfg.Quantity,
		Price:    s.cfg.ComputePrice(),
		Messages: wires,
		Dropped:  dropped,
	}
}

// SetLightType 切换灯具类型
func (s *Session) SetLightType(t string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	r, err := s.cfg.SetLightType(domain.LightType(t))
	if err != nil {
		return Result{}, err
	}
	s.tour.ObserveSelection(StepLightType, t, s.cfg.LightType)
	return s.flush(renderer.BatchForLightType(s.cfg, r)), nil
}

// SetBaseType 切换底座形状
func (s *Session) SetBaseType(t string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	r, err := s.cfg.SetBaseType(domain.BaseType(t))
	if err != nil {
		return Result{}, err
	}
	s.tour.ObserveSelection(StepBaseType, t, s.cfg.LightType)
	return s.flush(renderer.BatchForBaseType(s.cfg, r)), nil
}

// SetQuantity 设置灯位数量
func (s *Session) SetQuantity(n int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	r, err := s.cfg.SetQuantity(n)
	if err != nil {
		return Result{}, err
	}
	s.tour.ObserveSelection(StepLightAmount, strconv.Itoa(n), s.cfg.LightType)
	return s.flush(renderer.BatchForQuantity(s.cfg, r)), nil
}

// SetUnitDesign 批量设置 unit 设计
// indices 为空时默认用选中集合，选中集合也为空时落到下标 0
func (s *Session) SetUnitDesign(indices []int, design string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	target := s.sel.TargetIndices(s.cfg, indices)
	if err := s.cfg.SetUnitDesign(target, design); err != nil {
		return Result{}, err
	}
	s.tour.ObserveSelection(StepUnitSelection, design, s.cfg.LightType)
	return s.flush(renderer.BatchForUnitDesign(s.cfg, target)), nil
}

// SetSystemType 切换系统族
func (s *Session) SetSystemType(t string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.cfg.SetSystemType(domain.SystemType(t)); err != nil {
		return Result{}, err
	}
	return s.flush(renderer.BatchForSystemType(s.cfg)), nil
}

// SetSystemBaseDesign 批量设置系统底座设计
func (s *Session) SetSystemBaseDesign(indices []int, design string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	target := s.sel.TargetIndices(s.cfg, indices)
	if err := s.cfg.SetSystemBaseDesign(target, design); err != nil {
		return Result{}, err
	}
	s.tour.ObserveSelection(StepUnitSelection, design, s.cfg.LightType)
	return s.flush(renderer.BatchForUnitDesign(s.cfg, target)), nil
}

// SetUnitCableSize 批量设置线缆尺寸
// 线缆尺寸只影响价格，渲染器协议没有对应消息
func (s *Session) SetUnitCableSize(indices []int, size int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	target := s.sel.TargetIndices(s.cfg, indices)
	if err := s.cfg.SetUnitCableSize(target, size); err != nil {
		return Result{}, err
	}
	return s.flush(nil), nil
}

// SetUnitShade 设置单个 unit 的灯罩
func (s *Session) SetUnitShade(index int, shade string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.cfg.SetUnitShade(index, shade); err != nil {
		return Result{}, err
	}
	return s.flush(renderer.BatchForShade(s.cfg, index)), nil
}

// SetBaseColor 设置底座颜色
func (s *Session) SetBaseColor(id string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.cfg.SetBaseColor(id); err != nil {
		return Result{}, err
	}
	s.tour.ObserveSelection(StepBaseColor, id, s.cfg.LightType)
	return s.flush(renderer.BatchForBaseColor(s.cfg)), nil
}

// SetConnectorColor 设置连接器颜色
func (s *Session) SetConnectorColor(id string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.cfg.SetConnectorColor(id); err != nil {
		return Result{}, err
	}
	return s.flush(renderer.BatchForConnectorColor(s.cfg)), nil
}

// ToggleSelect 切换灯位选中状态
func (s *Session) ToggleSelect(index int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.sel.Toggle(s.cfg, index); err != nil {
		return nil, err
	}
	return s.cfg.SelectedIndices(), nil
}

// SelectAll 全选灯位
func (s *Session) SelectAll() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.sel.SelectAll(s.cfg)
	return s.cfg.SelectedIndices()
}

// ClearSelection 清空选中集合
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.sel.Clear(s.cfg)
}

// OpenStep 打开一个导航步骤
func (s *Session) OpenStep(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.steps.Open(StepID(id), s.cfg.LightType)
}

// CloseNavigation 关闭导航（回 Idle）
func (s *Session) CloseNavigation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.steps.Close()
}

// TourBegin / TourAccept / TourSkip 引导教程控制
func (s *Session) TourBegin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.tour.Begin()
}

func (s *Session) TourAccept() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.tour.Accept(s.cfg.LightType)
}

func (s *Session) TourSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.tour.Skip()
}

// HandleRendererReady 渲染器报告就绪：标记通道可用并全量重放
func (s *Session) HandleRendererReady() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.emitter.MarkReady()
	return s.flush(renderer.FullReplay(s.cfg))
}

// HandleUnitPicked 用户在渲染器里点了某个灯位
// 直达 unitSelection 步骤并只选中该下标
func (s *Session) HandleUnitPicked(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.loading {
		// 加载进行中的入站事件按未就绪处理丢弃；加载结束的全量重放会覆盖
		return nil
	}
	if err := s.sel.SelectOnly(s.cfg, index); err != nil {
		return err
	}
	s.steps.ForceUnitSelection()
	return nil
}

// HandleOffConfig 渲染器请求关闭配置导航
func (s *Session) HandleOffConfig() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.steps.Close()
}

// HandleOpenColorStep 渲染器请求打开颜色编辑步骤
// wallbaseColor / connectorColor 都落到 baseColor 步（向导只有一个颜色步）
func (s *Session) HandleOpenColorStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.cfg.LightType != domain.LightTypeCeiling {
		// 非 ceiling 没有颜色步，保持当前导航
		return fmt.Errorf("%w: %q (light_type=%s)", ErrStepNotApplicable, StepBaseColor, s.cfg.LightType)
	}
	return s.steps.Open(StepBaseColor, s.cfg.LightType)
}

// Replay 全量重放当前配置
func (s *Session) Replay() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.flush(renderer.FullReplay(s.cfg))
}

// Hotspot 切换渲染器拾取模式
func (s *Session) Hotspot(on bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.flush([]renderer.Message{renderer.HotspotMessage(on)})
}

// RequestHighQuality 请求高质量渲染
func (s *Session) RequestHighQuality() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.flush([]renderer.Message{renderer.HighQualityMessage()})
}

// BeginSave 保存单飞守卫：同一会话同时只允许一个保存在途
func (s *Session) BeginSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveInFlight {
		return ErrSaveInFlight
	}
	s.saveInFlight = true
	return nil
}

// EndSave 保存结束（无论成败）
func (s *Session) EndSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveInFlight = false
}

// ReplaceConfiguration 加载路径：整体替换聚合并全量重放
func (s *Session) ReplaceConfiguration(cfg *domain.Configuration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.loading {
		return Result{}, ErrLoadInFlight
	}
	s.loading = true
	s.cfg = cfg
	s.sel.Clear(s.cfg)
	s.steps.Close()
	res := s.flush(renderer.FullReplay(s.cfg))
	s.loading = false
	return res, nil
}

// ExportedState 会话状态导出（持久化摘要构建用）
type ExportedState struct {
	LightType         string
	BaseType          string
	BaseColor         string
	ConnectorColor    string
	ConfigurationType string
	SystemType        string
	Quantity          int
	Units             []domain.Unit
	Selected          []int
	Price             float64
	Replay            []string // 重建该配置的完整有序消息序列
}

// Export 在锁内导出会话状态的一致快照
func (s *Session) Export() ExportedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	units := make([]domain.Unit, len(s.cfg.Units))
	copy(units, s.cfg.Units)

	return ExportedState{
		LightType:         string(s.cfg.LightType),
		BaseType:          string(s.cfg.BaseType),
		BaseColor:         s.cfg.BaseColor,
		ConnectorColor:    s.cfg.ConnectorColor,
		ConfigurationType: string(s.cfg.ConfigurationType),
		SystemType:        string(s.cfg.SystemType),
		Quantity:          s.cfg.Quantity,
		Units:             units,
		Selected:          s.cfg.SelectedIndices(),
		Price:             s.cfg.ComputePrice(),
		Replay:            renderer.WireBatch(renderer.FullReplay(s.cfg)),
	}
}

// View 会话视图（HTTP 层回显）
type View struct {
	SessionID   string      `json:"session_id"`
	LightType   string      `json:"light_type"`
	BaseType    string      `json:"base_type"`
	Quantity    int         `json:"quantity"`
	Price       float64     `json:"price"`
	Steps       []StepID    `json:"steps"`
	CurrentStep StepID      `json:"current_step"`
	Selected    []int       `json:"selected"`
	TourState   TourState   `json:"tour_state"`
	TourOutcome TourOutcome `json:"tour_outcome,omitempty"`
}

// CurrentView 当前会话视图
func (s *Session) CurrentView() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		SessionID:   s.ID,
		LightType:   string(s.cfg.LightType),
		BaseType:    string(s.cfg.BaseType),
		Quantity:    s.cfg.Quantity,
		Price:       s.cfg.ComputePrice(),
		Steps:       Steps(s.cfg.LightType),
		CurrentStep: s.steps.Current(),
		Selected:    s.cfg.SelectedIndices(),
		TourState:   s.tour.State(),
		TourOutcome: s.tour.Outcome(),
	}
}
