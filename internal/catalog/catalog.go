package catalog

import (
	"math/rand"
	"sort"
	"strings"
)

// 产品目录（静态数据）
// 设计/系统/颜色 ID 与 3D 渲染器的产品代码映射关系
// 对齐 limiFront 的 pendantData / systemData 表（渲染器只认 product_N / system_base_N 代码）

// ShadeVariant 灯罩变体（部分系统底座设计有可选灯罩）
type ShadeVariant struct {
	ID           string // 灯罩ID，如 "frosted"
	Name         string // 显示名称
	RendererCode string // 渲染器代码，如 "shade_1"
}

// PendantDesign 吊灯设计
type PendantDesign struct {
	ID           string  // 设计ID，如 "radial"
	Name         string  // 显示名称
	RendererCode string  // 渲染器产品代码，如 "product_1"
	Price        float64 // 单价（美元）
}

// SystemBaseDesign 系统底座设计（bar/ball/universal/chandelier）
type SystemBaseDesign struct {
	ID           string // 底座设计ID，如 "bar_linear"
	Name         string
	System       string // 所属系统族："bar" | "ball" | "universal" | "chandelier"
	RendererCode string // 渲染器产品代码，如 "system_base_1"
	Price        float64
	Shades       []ShadeVariant // 可选灯罩变体（可为空）
}

// FinishColor 表面处理颜色（底座/连接器/线缆）
type FinishColor struct {
	ID           string // 颜色ID，如 "brushed_brass"
	Name         string
	RendererCode string // 渲染器颜色代码，如 "color_2"
}

// 吊灯设计表
var pendantDesigns = []PendantDesign{
	{ID: "radial", Name: "Radial", RendererCode: "product_1", Price: 120},
	{ID: "cone", Name: "Cone", RendererCode: "product_2", Price: 95},
	{ID: "globe", Name: "Globe", RendererCode: "product_3", Price: 110},
	{ID: "drop", Name: "Drop", RendererCode: "product_4", Price: 105},
	{ID: "bell", Name: "Bell", RendererCode: "product_5", Price: 98},
	{ID: "tube", Name: "Tube", RendererCode: "product_6", Price: 88},
	{ID: "prism", Name: "Prism", RendererCode: "product_7", Price: 135},
	{ID: "fluted", Name: "Fluted", RendererCode: "product_8", Price: 125},
}

// 系统底座设计表
var systemBaseDesigns = []SystemBaseDesign{
	{ID: "bar_linear", Name: "Linear Bar", System: "bar", RendererCode: "system_base_1", Price: 180,
		Shades: []ShadeVariant{
			{ID: "frosted", Name: "Frosted", RendererCode: "shade_1"},
			{ID: "smoked", Name: "Smoked", RendererCode: "shade_2"},
		}},
	{ID: "bar_twin", Name: "Twin Bar", System: "bar", RendererCode: "system_base_2", Price: 220},
	{ID: "ball_orb", Name: "Orb", System: "ball", RendererCode: "system_base_3", Price: 160,
		Shades: []ShadeVariant{
			{ID: "frosted", Name: "Frosted", RendererCode: "shade_1"},
			{ID: "amber", Name: "Amber", RendererCode: "shade_3"},
		}},
	{ID: "ball_cluster", Name: "Cluster", System: "ball", RendererCode: "system_base_4", Price: 240},
	{ID: "universal_joint", Name: "Universal Joint", System: "universal", RendererCode: "system_base_5", Price: 150},
	{ID: "universal_arm", Name: "Universal Arm", System: "universal", RendererCode: "system_base_6", Price: 175,
		Shades: []ShadeVariant{
			{ID: "smoked", Name: "Smoked", RendererCode: "shade_2"},
		}},
	{ID: "chandelier_crown", Name: "Crown", System: "chandelier", RendererCode: "system_base_7", Price: 320},
	{ID: "chandelier_tier", Name: "Tier", System: "chandelier", RendererCode: "system_base_8", Price: 380},
}

// 颜色表
var finishColors = []FinishColor{
	{ID: "matte_black", Name: "Matte Black", RendererCode: "color_1"},
	{ID: "brushed_brass", Name: "Brushed Brass", RendererCode: "color_2"},
	{ID: "matte_white", Name: "Matte White", RendererCode: "color_3"},
	{ID: "copper", Name: "Copper", RendererCode: "color_4"},
	{ID: "charcoal", Name: "Charcoal", RendererCode: "color_5"},
}

// 线缆尺寸附加费（尺寸 1-6，尺寸越大线越长）
var cableSizeSurcharge = map[int]float64{
	1: 0,
	2: 5,
	3: 10,
	4: 18,
	5: 28,
	6: 40,
}

// 底座基础价（light_type / base_type）
var basePrices = map[string]float64{
	"wall":                60,
	"floor":               140,
	"ceiling:round":       90,
	"ceiling:rectangular": 130,
}

const (
	MinCableSize = 1
	MaxCableSize = 6
)

var (
	pendantByID    = map[string]*PendantDesign{}
	systemBaseByID = map[string]*SystemBaseDesign{}
	colorByID      = map[string]*FinishColor{}
	pendantByName  = map[string]*PendantDesign{}
	systemByName   = map[string]*SystemBaseDesign{}
	colorByName    = map[string]*FinishColor{}
)

func init() {
	for i := range pendantDesigns {
		d := &pendantDesigns[i]
		pendantByID[d.ID] = d
		pendantByName[strings.ToLower(d.Name)] = d
	}
	for i := range systemBaseDesigns {
		d := &systemBaseDesigns[i]
		systemBaseByID[d.ID] = d
		systemByName[strings.ToLower(d.Name)] = d
	}
	for i := range finishColors {
		c := &finishColors[i]
		colorByID[c.ID] = c
		colorByName[strings.ToLower(c.Name)] = c
	}
}

// PendantByID 按设计ID查吊灯设计
func PendantByID(id string) (*PendantDesign, bool) {
	d, ok := pendantByID[id]
	return d, ok
}

// SystemBaseByID 按底座设计ID查系统底座设计
func SystemBaseByID(id string) (*SystemBaseDesign, bool) {
	d, ok := systemBaseByID[id]
	return d, ok
}

// IsSystemDesign 判断设计ID属于系统底座还是吊灯
// 第二个返回值为 false 表示目录中不存在该设计
func IsSystemDesign(id string) (bool, bool) {
	if _, ok := systemBaseByID[id]; ok {
		return true, true
	}
	if _, ok := pendantByID[id]; ok {
		return false, true
	}
	return false, false
}

// RendererCodeForDesign 取设计的渲染器产品代码
func RendererCodeForDesign(id string) (string, bool) {
	if d, ok := pendantByID[id]; ok {
		return d.RendererCode, true
	}
	if d, ok := systemBaseByID[id]; ok {
		return d.RendererCode, true
	}
	return "", false
}

// DesignPrice 取设计单价
func DesignPrice(id string) (float64, bool) {
	if d, ok := pendantByID[id]; ok {
		return d.Price, true
	}
	if d, ok := systemBaseByID[id]; ok {
		return d.Price, true
	}
	return 0, false
}

// DesignName 取设计显示名称（用于持久化摘要）
func DesignName(id string) (string, bool) {
	if d, ok := pendantByID[id]; ok {
		return d.Name, true
	}
	if d, ok := systemBaseByID[id]; ok {
		return d.Name, true
	}
	return "", false
}

// DesignIDByName 按显示名称反查设计ID（加载保存的配置时用）
func DesignIDByName(name string) (string, bool) {
	if d, ok := pendantByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d.ID, true
	}
	if d, ok := systemByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d.ID, true
	}
	return "", false
}

// ShadeFor 校验 shade 对设计是否有效，并返回灯罩变体
func ShadeFor(designID, shadeID string) (*ShadeVariant, bool) {
	d, ok := systemBaseByID[designID]
	if !ok {
		return nil, false
	}
	for i := range d.Shades {
		if d.Shades[i].ID == shadeID {
			return &d.Shades[i], true
		}
	}
	return nil, false
}

// ColorByID 按颜色ID查颜色
func ColorByID(id string) (*FinishColor, bool) {
	c, ok := colorByID[id]
	return c, ok
}

// ColorIDByName 按显示名称反查颜色ID
func ColorIDByName(name string) (string, bool) {
	c, ok := colorByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return c.ID, true
}

// SystemBasesFor 列出某系统族的全部底座设计
func SystemBasesFor(system string) []SystemBaseDesign {
	var out []SystemBaseDesign
	for _, d := range systemBaseDesigns {
		if d.System == system {
			out = append(out, d)
		}
	}
	return out
}

// PendantIDs 全部吊灯设计ID（有序）
func PendantIDs() []string {
	ids := make([]string, 0, len(pendantDesigns))
	for _, d := range pendantDesigns {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}

// Pendants 全部吊灯设计（目录导出用）
func Pendants() []PendantDesign {
	out := make([]PendantDesign, len(pendantDesigns))
	copy(out, pendantDesigns)
	return out
}

// SystemBases 全部系统底座设计（目录导出用）
func SystemBases() []SystemBaseDesign {
	out := make([]SystemBaseDesign, len(systemBaseDesigns))
	copy(out, systemBaseDesigns)
	return out
}

// Colors 全部颜色
func Colors() []FinishColor {
	out := make([]FinishColor, len(finishColors))
	copy(out, finishColors)
	return out
}

// DefaultPendantID 默认吊灯设计（新增 unit 的兜底值）
func DefaultPendantID() string {
	return "radial"
}

// DefaultSystemBaseID 某系统族的默认底座设计
// 未知系统族时回落到 bar 的默认值
func DefaultSystemBaseID(system string) string {
	for _, d := range systemBaseDesigns {
		if d.System == system {
			return d.ID
		}
	}
	return "bar_linear"
}

// DefaultColorID 默认颜色
func DefaultColorID() string {
	return "matte_black"
}

// RandomPendantID 随机吊灯设计（增加数量时新 unit 的初始设计）
func RandomPendantID(rnd *rand.Rand) string {
	if rnd == nil {
		return DefaultPendantID()
	}
	return pendantDesigns[rnd.Intn(len(pendantDesigns))].ID
}

// CableSizeSurcharge 线缆尺寸附加费；尺寸不在 1-6 范围时第二个返回值为 false
func CableSizeSurcharge(size int) (float64, bool) {
	v, ok := cableSizeSurcharge[size]
	return v, ok
}

// BasePrice 底座基础价
func BasePrice(lightType, baseType string) float64 {
	if lightType == "ceiling" {
		return basePrices["ceiling:"+baseType]
	}
	return basePrices[lightType]
}
