package renderer

import (
	"limi-configurator/internal/catalog"
	"limi-configurator/internal/domain"
)

// 批次构建
// 每次领域变更提交后，按固定依赖顺序构建最小消息批次：
// 类型级消息 → light_amount → unit 级 cable_<i> → 装饰性消息（颜色/灯罩）
// 渲染器依赖先收到粗粒度上下文再收到 unit 级指令，顺序不能乱

// designCode 设计ID→渲染器产品代码；目录查不到时回退原ID（渲染器自行忽略）
func designCode(id string) string {
	if code, ok := catalog.RendererCodeForDesign(id); ok {
		return code
	}
	return id
}

// colorCode 颜色ID→渲染器颜色代码
func colorCode(id string) string {
	if c, ok := catalog.ColorByID(id); ok {
		return c.RendererCode
	}
	return id
}

// unitMessages 新增 unit 的初始设计消息（未动过的既有 unit 不发消息）
func unitMessages(cfg *domain.Configuration, indices []int) []Message {
	var out []Message
	for _, i := range indices {
		if i < 0 || i >= len(cfg.Units) {
			continue
		}
		out = append(out, UnitDesignMessage(i, designCode(cfg.Units[i].Design)))
	}
	return out
}

// BatchForLightType setLightType 的消息批次
func BatchForLightType(cfg *domain.Configuration, r domain.Resize) []Message {
	batch := []Message{LightTypeMessage(string(cfg.LightType))}
	batch = append(batch, LightAmountMessage(r.NewQuantity))
	batch = append(batch, unitMessages(cfg, r.Appended)...)
	return batch
}

// BatchForBaseType setBaseType 的消息批次
func BatchForBaseType(cfg *domain.Configuration, r domain.Resize) []Message {
	batch := []Message{BaseTypeMessage(string(cfg.BaseType))}
	batch = append(batch, LightAmountMessage(r.NewQuantity))
	batch = append(batch, unitMessages(cfg, r.Appended)...)
	return batch
}

// BatchForQuantity setQuantity 的消息批次
func BatchForQuantity(cfg *domain.Configuration, r domain.Resize) []Message {
	batch := []Message{LightAmountMessage(r.NewQuantity)}
	batch = append(batch, unitMessages(cfg, r.Appended)...)
	return batch
}

// BatchForUnitDesign 设计批量变更的消息批次（每个受影响下标一条）
func BatchForUnitDesign(cfg *domain.Configuration, indices []int) []Message {
	return unitMessages(cfg, indices)
}

// BatchForSystemType 系统族切换：族消息在前，随后重发所有 unit 设计
func BatchForSystemType(cfg *domain.Configuration) []Message {
	batch := []Message{SystemMessage(string(cfg.SystemType))}
	for i := range cfg.Units {
		batch = append(batch, UnitDesignMessage(i, designCode(cfg.Units[i].Design)))
	}
	return batch
}

// BatchForShade 灯罩变更的消息批次
func BatchForShade(cfg *domain.Configuration, index int) []Message {
	if index < 0 || index >= len(cfg.Units) {
		return nil
	}
	u := cfg.Units[index]
	v, ok := catalog.ShadeFor(u.Design, u.Shade)
	if !ok {
		return nil
	}
	return []Message{UnitShadeMessage(index, v.RendererCode)}
}

// BatchForBaseColor 底座颜色：system 配置走 system_base_color
func BatchForBaseColor(cfg *domain.Configuration) []Message {
	if cfg.ConfigurationType == domain.ConfigurationTypeSystem {
		return []Message{SystemBaseColorMessage(colorCode(cfg.BaseColor))}
	}
	return []Message{BaseColorMessage(colorCode(cfg.BaseColor))}
}

// BatchForConnectorColor 连接器颜色走 cable_color
func BatchForConnectorColor(cfg *domain.Configuration) []Message {
	return []Message{CableColorMessage(colorCode(cfg.ConnectorColor))}
}

// FullReplay 把整份配置重放为一个有序批次
// 初次加载和从存储恢复后都走这条路径
func FullReplay(cfg *domain.Configuration) []Message {
	batch := []Message{LightTypeMessage(string(cfg.LightType))}
	if cfg.LightType == domain.LightTypeCeiling {
		batch = append(batch, BaseTypeMessage(string(cfg.BaseType)))
	}
	if cfg.ConfigurationType == domain.ConfigurationTypeSystem {
		batch = append(batch, SystemMessage(string(cfg.SystemType)))
	}
	batch = append(batch, LightAmountMessage(cfg.Quantity))

	for i := range cfg.Units {
		batch = append(batch, UnitDesignMessage(i, designCode(cfg.Units[i].Design)))
	}
	// 灯罩在所有设计消息之后（渲染器按该下标已有的设计解释灯罩代码）
	for i := range cfg.Units {
		if cfg.Units[i].Shade == "" {
			continue
		}
		if v, ok := catalog.ShadeFor(cfg.Units[i].Design, cfg.Units[i].Shade); ok {
			batch = append(batch, UnitShadeMessage(i, v.RendererCode))
		}
	}

	batch = append(batch, BatchForBaseColor(cfg)...)
	batch = append(batch, BatchForConnectorColor(cfg)...)
	return batch
}
