package session

import (
	"errors"

	"go.uber.org/zap"

	"limi-configurator/internal/domain"
)

// 引导教程引擎
// 按脚本驱动步骤导航，每步等待用户做出期望的选择；匹配则前进，不匹配重开同一步
// 引擎不直接改领域模型，只驱动 StepController 并观察用户的变更

// TourState 引导状态
type TourState string

const (
	TourInactive TourState = "inactive"
	TourWelcome  TourState = "welcome"
	TourActive   TourState = "active"
)

// TourOutcome 引导结束方式
type TourOutcome string

const (
	TourOutcomeNone      TourOutcome = ""
	TourOutcomeCompleted TourOutcome = "completed"
	TourOutcomeSkipped   TourOutcome = "skipped"
)

// TourStep 脚本里的一步
type TourStep struct {
	Step         StepID
	Expected     string // 期望的选择值；空 = 任意选择都算通过
	WaitsForUser bool   // false 的步骤打开后立即前进
}

var ErrTourNotActive = errors.New("tour is not active")

// TourEngine 引导引擎
type TourEngine struct {
	script  []TourStep
	state   TourState
	index   int
	outcome TourOutcome
	steps   *StepController
	logger  *zap.Logger
}

// DefaultTourScript 默认引导脚本（吊顶灯全流程）
func DefaultTourScript() []TourStep {
	return []TourStep{
		{Step: StepLightType, Expected: "ceiling", WaitsForUser: true},
		{Step: StepBaseType, Expected: "round", WaitsForUser: true},
		{Step: StepLightAmount, Expected: "6", WaitsForUser: true},
		{Step: StepUnitSelection, Expected: "", WaitsForUser: true},
	}
}

// NewTourEngine 创建引导引擎
func NewTourEngine(script []TourStep, steps *StepController, logger *zap.Logger) *TourEngine {
	return &TourEngine{
		script: script,
		state:  TourInactive,
		steps:  steps,
		logger: logger,
	}
}

// Begin 弹出欢迎提示
func (t *TourEngine) Begin() {
	t.state = TourWelcome
	t.index = 0
	t.outcome = TourOutcomeNone
}

// Accept 用户接受引导，进入第一步
func (t *TourEngine) Accept(lt domain.LightType) error {
	if t.state != TourWelcome {
		return ErrTourNotActive
	}
	t.state = TourActive
	t.index = 0
	t.enterStep(lt)
	return nil
}

// Skip 跳过引导，交还自由导航
func (t *TourEngine) Skip() {
	if t.state == TourInactive {
		return
	}
	t.state = TourInactive
	t.outcome = TourOutcomeSkipped
}

// enterStep 进入当前脚本步：打开对应导航步骤；不等待用户的步骤立即前进
func (t *TourEngine) enterStep(lt domain.LightType) {
	for t.index < len(t.script) {
		step := t.script[t.index]
		if err := t.steps.Open(step.Step, lt); err != nil {
			// 当前类型下不适用的步骤直接跳过（例如 wall 没有 baseType 步）
			t.logger.Debug("Tour step not applicable, skipping",
				zap.String("step", string(step.Step)),
				zap.Error(err),
			)
			t.index++
			continue
		}
		if step.WaitsForUser {
			return
		}
		t.index++
	}
	t.complete()
}

// complete 全部步骤结束
func (t *TourEngine) complete() {
	t.state = TourInactive
	t.outcome = TourOutcomeCompleted
}

// ObserveSelection 观察用户在某步骤上做出的选择
// 匹配期望值则前进到下一步；不匹配则重开同一步骤（不静默放行）
func (t *TourEngine) ObserveSelection(step StepID, value string, lt domain.LightType) {
	if t.state != TourActive || t.index >= len(t.script) {
		return
	}
	cur := t.script[t.index]
	if cur.Step != step {
		return
	}

	if cur.Expected != "" && cur.Expected != value {
		t.logger.Debug("Tour selection mismatch, re-opening step",
			zap.String("step", string(step)),
			zap.String("expected", cur.Expected),
			zap.String("got", value),
		)
		_ = t.steps.Open(cur.Step, lt)
		return
	}

	t.index++
	if t.index >= len(t.script) {
		t.complete()
		return
	}
	t.enterStep(lt)
}

// State 当前引导状态
func (t *TourEngine) State() TourState {
	return t.state
}

// Outcome 引导结束方式
func (t *TourEngine) Outcome() TourOutcome {
	return t.outcome
}

// CurrentStep 当前脚本步（仅 TourActive 时有意义）
func (t *TourEngine) CurrentStep() (TourStep, bool) {
	if t.state != TourActive || t.index >= len(t.script) {
		return TourStep{}, false
	}
	return t.script[t.index], true
}
