package domain

import (
	"errors"
	"math/rand"

	"limi-configurator/internal/catalog"
)

// 灯具配置聚合根
// 每个编辑会话持有一份 Configuration，所有变更规则都在这里收敛
// 对齐 limiFront 的 configurator store（但字段按 configurationType 收敛，不再动态增删）

// LightType 灯具类型
type LightType string

const (
	LightTypeWall    LightType = "wall"
	LightTypeCeiling LightType = "ceiling"
	LightTypeFloor   LightType = "floor"
)

// BaseType 底座形状（仅 ceiling 有意义）
type BaseType string

const (
	BaseTypeRound       BaseType = "round"
	BaseTypeRectangular BaseType = "rectangular"
)

// ConfigurationType 配置类型：装饰吊灯 或 模块化系统底座
type ConfigurationType string

const (
	ConfigurationTypePendant ConfigurationType = "pendant"
	ConfigurationTypeSystem  ConfigurationType = "system"
)

// SystemType 系统族
type SystemType string

const (
	SystemTypeBar        SystemType = "bar"
	SystemTypeBall       SystemType = "ball"
	SystemTypeUniversal  SystemType = "universal"
	SystemTypeChandelier SystemType = "chandelier"
)

// 校验失败（validation fault）错误
// 任何校验失败都在变更之前拒绝，聚合保持原样
var (
	ErrInvalidLightType      = errors.New("unknown light type")
	ErrInvalidBaseType       = errors.New("unknown base type")
	ErrBaseTypeNotApplicable = errors.New("base type only applies to ceiling lights")
	ErrInvalidQuantity       = errors.New("quantity not allowed for current light type")
	ErrUnknownDesign         = errors.New("unknown design id")
	ErrUnknownSystemType     = errors.New("unknown system type")
	ErrDesignNotInSystem     = errors.New("design does not belong to current system type")
	ErrIndexOutOfRange       = errors.New("unit index out of range")
	ErrInvalidCableSize      = errors.New("cable size out of range")
	ErrShadeNotAvailable     = errors.New("shade not available for design")
	ErrUnknownColor          = errors.New("unknown color id")
)

// Unit 一个物理灯位（吊灯或系统底座），只按下标寻址
type Unit struct {
	IsSystem  bool   `json:"is_system"`
	Design    string `json:"design"`
	Shade     string `json:"shade,omitempty"` // 可选；只有设计存在灯罩变体时有效
	CableSize int    `json:"cable_size"`      // 1-6，与设计无关
}

// Configuration 灯具配置聚合
type Configuration struct {
	LightType         LightType
	BaseType          BaseType // 仅 LightType == ceiling 有意义
	BaseColor         string
	ConnectorColor    string
	ConfigurationType ConfigurationType
	SystemType        SystemType // 仅 ConfigurationType == system 有意义
	Quantity          int
	Units             []Unit
	Selected          map[int]struct{} // 批量编辑的选中下标集合，恒 ⊆ [0, Quantity)

	// 数量记忆：离开某个类型时记住数量，回来时恢复
	// ceiling 按 BaseType 记忆，其它按 LightType 记忆
	rememberedCeiling map[BaseType]int
	rememberedQty     map[LightType]int

	rnd *rand.Rand // 新增 unit 的随机设计来源（可注入固定种子便于测试）
}

// DefaultCableSize 新 unit 的默认线缆尺寸
const DefaultCableSize = 3

// NewConfiguration 以会话默认值创建配置
// 默认：ceiling / round / pendant / 数量1
func NewConfiguration(rnd *rand.Rand) *Configuration {
	c := &Configuration{
		LightType:         LightTypeCeiling,
		BaseType:          BaseTypeRound,
		BaseColor:         catalog.DefaultColorID(),
		ConnectorColor:    catalog.DefaultColorID(),
		ConfigurationType: ConfigurationTypePendant,
		SystemType:        SystemTypeBar,
		Quantity:          1,
		Selected:          map[int]struct{}{},
		rememberedCeiling: map[BaseType]int{},
		rememberedQty:     map[LightType]int{},
		rnd:               rnd,
	}
	c.Units = []Unit{c.newUnit()}
	return c
}

// Resize 一次数量变更的结果（发射器据此只对新增 unit 发消息）
type Resize struct {
	OldQuantity int
	NewQuantity int
	Appended    []int // 新增 unit 的下标（数量减少时为空）
}

// LegalQuantities 当前 lightType/baseType 下允许的数量集合
func LegalQuantities(lt LightType, bt BaseType) []int {
	switch lt {
	case LightTypeWall:
		return []int{1}
	case LightTypeFloor:
		return []int{3}
	case LightTypeCeiling:
		if bt == BaseTypeRectangular {
			return []int{3}
		}
		return []int{1, 3, 6, 24}
	}
	return nil
}

// quantityAllowed 数量是否在合法集合内
func quantityAllowed(lt LightType, bt BaseType, n int) bool {
	for _, q := range LegalQuantities(lt, bt) {
		if q == n {
			return true
		}
	}
	return false
}

// defaultQuantity 某类型的默认数量（合法集合的最小值）
func defaultQuantity(lt LightType, bt BaseType) int {
	qs := LegalQuantities(lt, bt)
	min := qs[0]
	for _, q := range qs[1:] {
		if q < min {
			min = q
		}
	}
	return min
}

// clampQuantity 把数量钳制到合法集合内（调整类型时先钳制再生成 units）
func clampQuantity(lt LightType, bt BaseType, n int) int {
	if quantityAllowed(lt, bt, n) {
		return n
	}
	return defaultQuantity(lt, bt)
}

// newUnit 生成一个新 unit
// pendant 配置随机挑一个吊灯设计；system 配置用当前系统族的默认底座
func (c *Configuration) newUnit() Unit {
	if c.ConfigurationType == ConfigurationTypeSystem {
		return Unit{
			IsSystem:  true,
			Design:    catalog.DefaultSystemBaseID(string(c.SystemType)),
			CableSize: DefaultCableSize,
		}
	}
	return Unit{
		Design:    catalog.RandomPendantID(c.rnd),
		CableSize: DefaultCableSize,
	}
}

// resizeUnits 按截断/追加规则把 units 调整到 n 个
// 保留下标上的既有设计绝不被数量变更单独改动；被截断的状态不会复活
func (c *Configuration) resizeUnits(n int) Resize {
	r := Resize{OldQuantity: c.Quantity, NewQuantity: n}

	switch {
	case n < len(c.Units):
		c.Units = c.Units[:n]
	case n > len(c.Units):
		for i := len(c.Units); i < n; i++ {
			c.Units = append(c.Units, c.newUnit())
			r.Appended = append(r.Appended, i)
		}
	}
	c.Quantity = n
	c.pruneSelected()
	return r
}

// pruneSelected 清掉越界的选中下标（数量缩小后调用）
func (c *Configuration) pruneSelected() {
	for i := range c.Selected {
		if i >= c.Quantity {
			delete(c.Selected, i)
		}
	}
}

// validIndices 校验下标集合 ⊆ [0, Quantity)
func (c *Configuration) validIndices(indices []int) error {
	for _, i := range indices {
		if i < 0 || i >= c.Quantity {
			return ErrIndexOutOfRange
		}
	}
	return nil
}

// QuantityMemory 数量记忆的快照（会话持久化用）
// 键："wall" / "floor" / "ceiling:round" / "ceiling:rectangular"
func (c *Configuration) QuantityMemory() map[string]int {
	m := map[string]int{}
	for lt, q := range c.rememberedQty {
		m[string(lt)] = q
	}
	for bt, q := range c.rememberedCeiling {
		m["ceiling:"+string(bt)] = q
	}
	return m
}

// RestoreQuantityMemory 从快照恢复数量记忆
func (c *Configuration) RestoreQuantityMemory(m map[string]int) {
	for k, q := range m {
		switch k {
		case "wall", "floor":
			c.rememberedQty[LightType(k)] = q
		case "ceiling:round":
			c.rememberedCeiling[BaseTypeRound] = q
		case "ceiling:rectangular":
			c.rememberedCeiling[BaseTypeRectangular] = q
		}
	}
}

// SelectedIndices 选中下标的有序快照
func (c *Configuration) SelectedIndices() []int {
	out := make([]int, 0, len(c.Selected))
	for i := range c.Selected {
		out = append(out, i)
	}
	// 插入排序就够了，集合很小
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
