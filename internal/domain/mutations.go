package domain

import (
	"fmt"

	"limi-configurator/internal/catalog"
)

// 变更操作
// 全部同步执行，要么完整提交，要么以 validation fault 拒绝且聚合不动

// SetLightType 切换灯具类型
// 数量恢复为该类型上次记住的值（无记忆则用默认值）；units 随之重新生成
func (c *Configuration) SetLightType(t LightType) (Resize, error) {
	switch t {
	case LightTypeWall, LightTypeCeiling, LightTypeFloor:
	default:
		return Resize{}, fmt.Errorf("%w: %q", ErrInvalidLightType, t)
	}

	// 记住当前类型的数量（ceiling 按 baseType 记）
	if c.LightType == LightTypeCeiling {
		c.rememberedCeiling[c.BaseType] = c.Quantity
	} else {
		c.rememberedQty[c.LightType] = c.Quantity
	}

	c.LightType = t

	var want int
	if t == LightTypeCeiling {
		if q, ok := c.rememberedCeiling[c.BaseType]; ok {
			want = q
		} else {
			want = defaultQuantity(t, c.BaseType)
		}
	} else {
		if q, ok := c.rememberedQty[t]; ok {
			want = q
		} else {
			want = defaultQuantity(t, c.BaseType)
		}
	}

	// 先钳制到新类型的合法集合，再调整 units
	return c.resizeUnits(clampQuantity(t, c.BaseType, want)), nil
}

// SetBaseType 切换底座形状（仅 ceiling 合法）
// rectangular 强制数量为 3；round 恢复记住的数量
func (c *Configuration) SetBaseType(t BaseType) (Resize, error) {
	if c.LightType != LightTypeCeiling {
		return Resize{}, fmt.Errorf("%w: current light type is %q", ErrBaseTypeNotApplicable, c.LightType)
	}
	switch t {
	case BaseTypeRound, BaseTypeRectangular:
	default:
		return Resize{}, fmt.Errorf("%w: %q", ErrInvalidBaseType, t)
	}

	c.rememberedCeiling[c.BaseType] = c.Quantity
	c.BaseType = t

	want := defaultQuantity(LightTypeCeiling, t)
	if q, ok := c.rememberedCeiling[t]; ok {
		want = q
	}
	return c.resizeUnits(clampQuantity(LightTypeCeiling, t, want)), nil
}

// SetQuantity 设置灯位数量，必须在当前类型的合法集合内
func (c *Configuration) SetQuantity(n int) (Resize, error) {
	if !quantityAllowed(c.LightType, c.BaseType, n) {
		return Resize{}, fmt.Errorf("%w: %d (light_type=%s base_type=%s)",
			ErrInvalidQuantity, n, c.LightType, c.BaseType)
	}
	return c.resizeUnits(n), nil
}

// SetUnitDesign 批量设置 unit 设计
// 清掉对新设计无效的 shade；IsSystem 按目录分类回填
func (c *Configuration) SetUnitDesign(indices []int, design string) error {
	if err := c.validIndices(indices); err != nil {
		return fmt.Errorf("%w: %v (quantity=%d)", err, indices, c.Quantity)
	}
	isSystem, ok := catalog.IsSystemDesign(design)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDesign, design)
	}

	for _, i := range indices {
		u := &c.Units[i]
		u.Design = design
		u.IsSystem = isSystem
		if u.Shade != "" {
			if _, valid := catalog.ShadeFor(design, u.Shade); !valid {
				u.Shade = ""
			}
		}
	}
	return nil
}

// SetSystemType 切换系统族；配置类型随之变为 system
// 不属于新系统族的 unit 设计重置为该族默认底座（shade 一并清除）
func (c *Configuration) SetSystemType(t SystemType) error {
	switch t {
	case SystemTypeBar, SystemTypeBall, SystemTypeUniversal, SystemTypeChandelier:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSystemType, t)
	}

	c.ConfigurationType = ConfigurationTypeSystem
	c.SystemType = t

	def := catalog.DefaultSystemBaseID(string(t))
	for i := range c.Units {
		u := &c.Units[i]
		d, ok := catalog.SystemBaseByID(u.Design)
		if !ok || d.System != string(t) {
			u.Design = def
			u.Shade = ""
		}
		u.IsSystem = true
	}
	return nil
}

// SetSystemBaseDesign 批量设置系统底座设计（必须属于当前系统族）
func (c *Configuration) SetSystemBaseDesign(indices []int, design string) error {
	d, ok := catalog.SystemBaseByID(design)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDesign, design)
	}
	if d.System != string(c.SystemType) {
		return fmt.Errorf("%w: %q is %s, current system is %s",
			ErrDesignNotInSystem, design, d.System, c.SystemType)
	}
	if err := c.validIndices(indices); err != nil {
		return fmt.Errorf("%w: %v (quantity=%d)", err, indices, c.Quantity)
	}

	for _, i := range indices {
		u := &c.Units[i]
		u.Design = design
		u.IsSystem = true
		if u.Shade != "" {
			if _, valid := catalog.ShadeFor(design, u.Shade); !valid {
				u.Shade = ""
			}
		}
	}
	return nil
}

// SetUnitCableSize 批量设置线缆尺寸（1-6，与设计无关）
func (c *Configuration) SetUnitCableSize(indices []int, size int) error {
	if size < catalog.MinCableSize || size > catalog.MaxCableSize {
		return fmt.Errorf("%w: %d", ErrInvalidCableSize, size)
	}
	if err := c.validIndices(indices); err != nil {
		return fmt.Errorf("%w: %v (quantity=%d)", err, indices, c.Quantity)
	}
	for _, i := range indices {
		c.Units[i].CableSize = size
	}
	return nil
}

// SetUnitShade 设置单个 unit 的灯罩，必须是该 unit 当前设计的有效变体
func (c *Configuration) SetUnitShade(index int, shade string) error {
	if err := c.validIndices([]int{index}); err != nil {
		return fmt.Errorf("%w: %d (quantity=%d)", err, index, c.Quantity)
	}
	if _, ok := catalog.ShadeFor(c.Units[index].Design, shade); !ok {
		return fmt.Errorf("%w: shade=%q design=%q", ErrShadeNotAvailable, shade, c.Units[index].Design)
	}
	c.Units[index].Shade = shade
	return nil
}

// SetBaseColor 设置底座颜色
func (c *Configuration) SetBaseColor(id string) error {
	if _, ok := catalog.ColorByID(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, id)
	}
	c.BaseColor = id
	return nil
}

// SetConnectorColor 设置连接器颜色
func (c *Configuration) SetConnectorColor(id string) error {
	if _, ok := catalog.ColorByID(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, id)
	}
	c.ConnectorColor = id
	return nil
}
