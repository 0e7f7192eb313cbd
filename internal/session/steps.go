package session

import (
	"errors"
	"fmt"

	"limi-configurator/internal/domain"
)

// 向导步骤导航
// 步骤序列：lightType → (baseType → baseColor)? → lightAmount → unitSelection
// baseType/baseColor 仅 ceiling 类型时出现；同一时刻最多一个步骤打开

// StepID 配置步骤标识
type StepID string

const (
	StepLightType     StepID = "lightType"
	StepBaseType      StepID = "baseType"
	StepBaseColor     StepID = "baseColor"
	StepLightAmount   StepID = "lightAmount"
	StepUnitSelection StepID = "unitSelection"
)

var (
	ErrUnknownStep       = errors.New("unknown step")
	ErrStepNotApplicable = errors.New("step not applicable for current light type")
)

// 固定全序列；Applicable 决定某类型下哪些步骤出现
var stepOrder = []StepID{StepLightType, StepBaseType, StepBaseColor, StepLightAmount, StepUnitSelection}

// StepController 步骤状态机
// 状态：Idle（无步骤打开）↔ StepOpen(stepID)；没有终态，向导始终可编辑
type StepController struct {
	open StepID // "" 表示 Idle
}

// NewStepController 创建步骤控制器（初始 Idle）
func NewStepController() *StepController {
	return &StepController{}
}

// stepApplicable 步骤对当前灯具类型是否适用
func stepApplicable(id StepID, lt domain.LightType) bool {
	switch id {
	case StepBaseType, StepBaseColor:
		return lt == domain.LightTypeCeiling
	case StepLightType, StepLightAmount, StepUnitSelection:
		return true
	}
	return false
}

// Steps 当前灯具类型下的有序步骤列表
func Steps(lt domain.LightType) []StepID {
	var out []StepID
	for _, id := range stepOrder {
		if stepApplicable(id, lt) {
			out = append(out, id)
		}
	}
	return out
}

// Open 打开一个步骤（已打开的步骤被关闭）
func (s *StepController) Open(id StepID, lt domain.LightType) error {
	valid := false
	for _, known := range stepOrder {
		if known == id {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}
	if !stepApplicable(id, lt) {
		return fmt.Errorf("%w: %q (light_type=%s)", ErrStepNotApplicable, id, lt)
	}
	s.open = id
	return nil
}

// Close 回到 Idle
func (s *StepController) Close() {
	s.open = ""
}

// Current 当前打开的步骤（"" = Idle）
func (s *StepController) Current() StepID {
	return s.open
}

// ForceUnitSelection 渲染器内点击灯位触发的外部跳转
// 绕过手动导航直达 unitSelection
func (s *StepController) ForceUnitSelection() {
	s.open = StepUnitSelection
}
