package session

import (
	"fmt"

	"limi-configurator/internal/domain"
)

// 灯位选中集合管理
// 选中集合独立于步骤导航，用于批量编辑；数量缩小时由聚合自动剪除越界下标

// SelectionController 选中集合控制器（操作聚合上的 Selected 集合）
type SelectionController struct{}

// NewSelectionController 创建选中集合控制器
func NewSelectionController() *SelectionController {
	return &SelectionController{}
}

// Toggle 切换某下标的选中状态
func (sc *SelectionController) Toggle(cfg *domain.Configuration, index int) error {
	if index < 0 || index >= cfg.Quantity {
		return fmt.Errorf("%w: %d (quantity=%d)", domain.ErrIndexOutOfRange, index, cfg.Quantity)
	}
	if _, ok := cfg.Selected[index]; ok {
		delete(cfg.Selected, index)
	} else {
		cfg.Selected[index] = struct{}{}
	}
	return nil
}

// SelectAll 全选
func (sc *SelectionController) SelectAll(cfg *domain.Configuration) {
	for i := 0; i < cfg.Quantity; i++ {
		cfg.Selected[i] = struct{}{}
	}
}

// SelectOnly 只选中一个下标（渲染器点击灯位时用）
func (sc *SelectionController) SelectOnly(cfg *domain.Configuration, index int) error {
	if index < 0 || index >= cfg.Quantity {
		return fmt.Errorf("%w: %d (quantity=%d)", domain.ErrIndexOutOfRange, index, cfg.Quantity)
	}
	sc.Clear(cfg)
	cfg.Selected[index] = struct{}{}
	return nil
}

// Clear 清空选中集合
func (sc *SelectionController) Clear(cfg *domain.Configuration) {
	for i := range cfg.Selected {
		delete(cfg.Selected, i)
	}
}

// TargetIndices 批量编辑的目标下标
// 调用方没给下标时默认用选中集合；选中集合也为空时落到下标 0
func (sc *SelectionController) TargetIndices(cfg *domain.Configuration, explicit []int) []int {
	if len(explicit) > 0 {
		return explicit
	}
	if sel := cfg.SelectedIndices(); len(sel) > 0 {
		return sel
	}
	return []int{0}
}
