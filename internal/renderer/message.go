package renderer

import (
	"fmt"
	"strconv"
	"strings"
)

// 渲染器出站协议
// 线上格式是字符串（如 "cable_3:product_2"），内部用带标签的 Message 结构，
// 只在 Wire() 这一处做序列化，保持与 3D 渲染器的线格式兼容

// Kind 消息类型
type Kind string

const (
	KindLightType       Kind = "light_type"
	KindBaseType        Kind = "base_type"
	KindBaseColor       Kind = "base_color"
	KindSystemBaseColor Kind = "system_base_color"
	KindCableColor      Kind = "cable_color"
	KindLightAmount     Kind = "light_amount"
	KindUnitDesign      Kind = "unit_design"
	KindUnitShade       Kind = "unit_shade"
	KindSystem          Kind = "system"
	KindHotspot         Kind = "hotspot"
	KindHighQuality     Kind = "high_quality"
)

// Message 一条出站协议消息
// Index 仅 unit 级消息使用；Value 是类型值/颜色代码/产品代码等
type Message struct {
	Kind  Kind
	Index int
	Value string
}

// Wire 序列化为渲染器线格式
func (m Message) Wire() string {
	switch m.Kind {
	case KindLightType:
		return "light_type:" + m.Value
	case KindBaseType:
		return "base_type:" + m.Value
	case KindBaseColor:
		return "base_color:" + m.Value
	case KindSystemBaseColor:
		return "system_base_color:" + m.Value
	case KindCableColor:
		return "cable_color:" + m.Value
	case KindLightAmount:
		return "light_amount:" + m.Value
	case KindUnitDesign, KindUnitShade:
		// 灯罩消息与设计消息同构，渲染器按上下文区分
		return fmt.Sprintf("cable_%d:%s", m.Index, m.Value)
	case KindSystem:
		return "system:" + m.Value
	case KindHotspot:
		return "hotspot:" + m.Value
	case KindHighQuality:
		return "highdis"
	}
	return ""
}

// LightTypeMessage 灯具类型消息
func LightTypeMessage(t string) Message {
	return Message{Kind: KindLightType, Value: t}
}

// BaseTypeMessage 底座形状消息
func BaseTypeMessage(t string) Message {
	return Message{Kind: KindBaseType, Value: t}
}

// LightAmountMessage 灯位数量消息
func LightAmountMessage(n int) Message {
	return Message{Kind: KindLightAmount, Value: strconv.Itoa(n)}
}

// UnitDesignMessage 给某下标 unit 指定产品代码
func UnitDesignMessage(index int, productCode string) Message {
	return Message{Kind: KindUnitDesign, Index: index, Value: productCode}
}

// UnitShadeMessage 给某下标 unit 指定灯罩代码（需在设计消息之后发）
func UnitShadeMessage(index int, shadeCode string) Message {
	return Message{Kind: KindUnitShade, Index: index, Value: shadeCode}
}

// SystemMessage 系统族消息
func SystemMessage(system string) Message {
	return Message{Kind: KindSystem, Value: system}
}

// BaseColorMessage / SystemBaseColorMessage / CableColorMessage 颜色消息
func BaseColorMessage(code string) Message {
	return Message{Kind: KindBaseColor, Value: code}
}

func SystemBaseColorMessage(code string) Message {
	return Message{Kind: KindSystemBaseColor, Value: code}
}

func CableColorMessage(code string) Message {
	return Message{Kind: KindCableColor, Value: code}
}

// HotspotMessage 切换渲染器的交互拾取模式
func HotspotMessage(on bool) Message {
	v := "off"
	if on {
		v = "on"
	}
	return Message{Kind: KindHotspot, Value: v}
}

// HighQualityMessage 请求高质量渲染
func HighQualityMessage() Message {
	return Message{Kind: KindHighQuality}
}

// WireBatch 序列化整批消息（持久化 iframe 字段用）
func WireBatch(batch []Message) []string {
	out := make([]string, 0, len(batch))
	for _, m := range batch {
		out = append(out, m.Wire())
	}
	return out
}

// InboundKind 入站事件类型
type InboundKind string

const (
	InboundReady              InboundKind = "ready"
	InboundUnitPicked         InboundKind = "unit_picked"
	InboundOffConfig          InboundKind = "off_config"
	InboundOpenBaseColor      InboundKind = "open_base_color"
	InboundOpenConnectorColor InboundKind = "open_connector_color"
)

// InboundEvent 渲染器发来的事件
type InboundEvent struct {
	Kind  InboundKind
	Index int // 仅 unit_picked 使用
}

// ErrUnknownInbound 无法识别的入站消息
var ErrUnknownInbound = fmt.Errorf("unknown inbound renderer message")

// ParseInbound 解析入站事件字符串
// 入站通道不做来源校验，一律按不可信输入处理：无法识别的消息返回错误由调用方丢弃
func ParseInbound(raw string) (InboundEvent, error) {
	s := strings.TrimSpace(raw)
	switch s {
	case "app:ready1", "loadingOffMount":
		return InboundEvent{Kind: InboundReady}, nil
	case "offconfig":
		return InboundEvent{Kind: InboundOffConfig}, nil
	case "wallbaseColor":
		return InboundEvent{Kind: InboundOpenBaseColor}, nil
	case "connectorColor":
		return InboundEvent{Kind: InboundOpenConnectorColor}, nil
	}

	// "cable_<n>"（无冒号后缀）= 用户在渲染器里点了某个灯位
	if rest, ok := strings.CutPrefix(s, "cable_"); ok && !strings.Contains(rest, ":") {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return InboundEvent{}, fmt.Errorf("%w: %q", ErrUnknownInbound, raw)
		}
		return InboundEvent{Kind: InboundUnitPicked, Index: n}, nil
	}

	return InboundEvent{}, fmt.Errorf("%w: %q", ErrUnknownInbound, raw)
}
