package domain

import "limi-configurator/internal/catalog"

// ComputePrice 计算当前配置总价
// 纯函数：底座基础价 + 各 unit 设计单价 + 线缆尺寸附加费
// 每次变更后重算，无副作用
func (c *Configuration) ComputePrice() float64 {
	total := catalog.BasePrice(string(c.LightType), string(c.BaseType))
	for _, u := range c.Units {
		if p, ok := catalog.DesignPrice(u.Design); ok {
			total += p
		}
		if s, ok := catalog.CableSizeSurcharge(u.CableSize); ok {
			total += s
		}
	}
	return total
}
