package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"limi-configurator/internal/domain"
	"limi-configurator/internal/renderer"
)

func TestSession_DefaultView(t *testing.T) {
	s, _ := newTestSession(t)
	v := s.CurrentView()

	assert.Equal(t, "test-session", v.SessionID)
	assert.Equal(t, "ceiling", v.LightType)
	assert.Equal(t, "round", v.BaseType)
	assert.Equal(t, 1, v.Quantity)
	assert.Equal(t, StepID(""), v.CurrentStep)
	assert.Equal(t, TourInactive, v.TourState)
	assert.Equal(t,
		[]StepID{StepLightType, StepBaseType, StepBaseColor, StepLightAmount, StepUnitSelection},
		v.Steps)
}

func TestSession_SetLightTypeEmitsBatch(t *testing.T) {
	s, ch := newTestSession(t)

	res, err := s.SetLightType("floor")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Quantity)
	assert.Zero(t, res.Dropped)

	require.GreaterOrEqual(t, len(res.Messages), 4)
	assert.Equal(t, "light_type:floor", res.Messages[0])
	assert.Equal(t, "light_amount:3", res.Messages[1])
	assert.True(t, strings.HasPrefix(res.Messages[2], "cable_1:"))
	assert.True(t, strings.HasPrefix(res.Messages[3], "cable_2:"))

	// 通道收到的与结果回显一致
	assert.Equal(t, res.Messages, ch.messages)
}

func TestSession_SetLightTypeRejectsUnknown(t *testing.T) {
	s, ch := newTestSession(t)

	_, err := s.SetLightType("desk")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidLightType)
	assert.Empty(t, ch.messages)
}

func TestSession_DropsWhenRendererNotReady(t *testing.T) {
	ch := &fakeChannel{ready: true}
	logger := zap.NewNop()
	s := NewSession("s1", newTestConfig(t), renderer.NewEmitter(ch, logger), logger)

	// 渲染器未报 ready，整批丢弃，配置照常变更
	res, err := s.SetLightType("floor")
	require.NoError(t, err)
	assert.Equal(t, len(res.Messages), res.Dropped)
	assert.Empty(t, ch.messages)
	assert.Equal(t, 3, s.CurrentView().Quantity)
}

func TestSession_RendererReadyReplays(t *testing.T) {
	ch := &fakeChannel{ready: true}
	logger := zap.NewNop()
	s := NewSession("s1", newTestConfig(t), renderer.NewEmitter(ch, logger), logger)

	res := s.HandleRendererReady()
	assert.Zero(t, res.Dropped)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, "light_type:ceiling", res.Messages[0])
	assert.Equal(t, "base_type:round", res.Messages[1])
	assert.Contains(t, res.Messages, "light_amount:1")
}

func TestSession_SetUnitDesignDefaultsToIndexZero(t *testing.T) {
	s, _ := newTestSession(t)

	res, err := s.SetUnitDesign(nil, "cone")
	require.NoError(t, err)
	assert.Equal(t, []string{"cable_0:product_2"}, res.Messages)
	assert.Equal(t, 90.0+95+10, res.Price) // 底座 + cone + 默认线缆附加费
}

func TestSession_SetUnitDesignUsesSelection(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.SetQuantity(6)
	require.NoError(t, err)

	_, err = s.ToggleSelect(1)
	require.NoError(t, err)
	sel, err := s.ToggleSelect(4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, sel)

	res, err := s.SetUnitDesign(nil, "cone")
	require.NoError(t, err)
	assert.Equal(t, []string{"cable_1:product_2", "cable_4:product_2"}, res.Messages)
}

func TestSession_SystemFlow(t *testing.T) {
	s, _ := newTestSession(t)

	res, err := s.SetSystemType("ball")
	require.NoError(t, err)
	require.NotEmpty(t, res.Messages)
	assert.Equal(t, "system:ball", res.Messages[0])
	assert.Equal(t, "cable_0:system_base_3", res.Messages[1])

	// ball_orb 有 amber 灯罩变体
	res, err = s.SetUnitShade(0, "amber")
	require.NoError(t, err)
	assert.Equal(t, []string{"cable_0:shade_3"}, res.Messages)

	// 系统配置下底座颜色走 system_base_color
	res, err = s.SetBaseColor("copper")
	require.NoError(t, err)
	assert.Equal(t, []string{"system_base_color:color_4"}, res.Messages)
}

func TestSession_CableSizeAffectsPriceOnly(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.SetUnitDesign(nil, "cone")
	require.NoError(t, err)

	res, err := s.SetUnitCableSize(nil, 6)
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
	assert.Equal(t, 90.0+95+40, res.Price)
}

func TestSession_ConnectorColor(t *testing.T) {
	s, _ := newTestSession(t)

	res, err := s.SetConnectorColor("brushed_brass")
	require.NoError(t, err)
	assert.Equal(t, []string{"cable_color:color_2"}, res.Messages)

	_, err = s.SetConnectorColor("neon")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownColor)
}

func TestSession_HandleUnitPicked(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.SetQuantity(6)
	require.NoError(t, err)

	require.NoError(t, s.HandleUnitPicked(4))
	v := s.CurrentView()
	assert.Equal(t, []int{4}, v.Selected)
	assert.Equal(t, StepUnitSelection, v.CurrentStep)

	err = s.HandleUnitPicked(6)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestSession_OffConfigAndColorStep(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.HandleOpenColorStep())
	assert.Equal(t, StepBaseColor, s.CurrentView().CurrentStep)

	s.HandleOffConfig()
	assert.Equal(t, StepID(""), s.CurrentView().CurrentStep)

	// 非 ceiling 没有颜色步
	_, err := s.SetLightType("wall")
	require.NoError(t, err)
	err = s.HandleOpenColorStep()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepNotApplicable)
}

func TestSession_SaveSingleFlight(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.BeginSave())
	err := s.BeginSave()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveInFlight)

	s.EndSave()
	require.NoError(t, s.BeginSave())
	s.EndSave()
}

func TestSession_ReplaceConfiguration(t *testing.T) {
	s, ch := newTestSession(t)
	_, err := s.SetQuantity(6)
	require.NoError(t, err)
	_, err = s.ToggleSelect(2)
	require.NoError(t, err)

	loaded := newTestConfig(t)
	_, err = loaded.SetQuantity(3)
	require.NoError(t, err)
	require.NoError(t, loaded.SetUnitDesign([]int{0, 1, 2}, "cone"))

	ch.messages = nil
	res, err := s.ReplaceConfiguration(loaded)
	require.NoError(t, err)

	v := s.CurrentView()
	assert.Equal(t, 3, v.Quantity)
	assert.Empty(t, v.Selected)
	assert.Equal(t, StepID(""), v.CurrentStep)

	// 加载后整配置重放
	assert.Equal(t, "light_type:ceiling", res.Messages[0])
	assert.Contains(t, res.Messages, "light_amount:3")
	assert.Contains(t, res.Messages, "cable_2:product_2")
}

func TestSession_HotspotAndHighQuality(t *testing.T) {
	s, _ := newTestSession(t)

	res := s.Hotspot(true)
	assert.Equal(t, []string{"hotspot:on"}, res.Messages)

	res = s.Hotspot(false)
	assert.Equal(t, []string{"hotspot:off"}, res.Messages)

	res = s.RequestHighQuality()
	assert.Equal(t, []string{"highdis"}, res.Messages)
}

func TestSession_TourDrivesNavigation(t *testing.T) {
	s, _ := newTestSession(t)

	s.TourBegin()
	require.NoError(t, s.TourAccept())
	assert.Equal(t, TourActive, s.CurrentView().TourState)
	assert.Equal(t, StepLightType, s.CurrentView().CurrentStep)

	_, err := s.SetLightType("ceiling")
	require.NoError(t, err)
	assert.Equal(t, StepBaseType, s.CurrentView().CurrentStep)

	_, err = s.SetBaseType("round")
	require.NoError(t, err)
	assert.Equal(t, StepLightAmount, s.CurrentView().CurrentStep)

	_, err = s.SetQuantity(6)
	require.NoError(t, err)
	assert.Equal(t, StepUnitSelection, s.CurrentView().CurrentStep)

	_, err = s.SetUnitDesign(nil, "globe")
	require.NoError(t, err)

	v := s.CurrentView()
	assert.Equal(t, TourInactive, v.TourState)
	assert.Equal(t, TourOutcomeCompleted, v.TourOutcome)
}

func TestSession_ExportState(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.SetQuantity(3)
	require.NoError(t, err)
	require.NoError(t, s.HandleUnitPicked(1))

	st := s.Export()
	assert.Equal(t, "ceiling", st.LightType)
	assert.Equal(t, 3, st.Quantity)
	assert.Len(t, st.Units, 3)
	assert.Equal(t, []int{1}, st.Selected)
	assert.Equal(t, st.Price, s.CurrentView().Price)
	assert.Equal(t, "light_type:ceiling", st.Replay[0])
}
