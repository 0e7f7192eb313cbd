package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"limi-configurator/internal/catalog"
	"limi-configurator/internal/domain"
	"limi-configurator/internal/renderer"
	"limi-configurator/internal/repository"
	"limi-configurator/internal/session"
	"limi-configurator/internal/store"
)

// 测试假件

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) VerifySession(ctx context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

type fakeConfigsRepo struct {
	saved  map[string]*repository.SavedConfig
	nextID int
}

func newFakeConfigsRepo() *fakeConfigsRepo {
	return &fakeConfigsRepo{saved: make(map[string]*repository.SavedConfig)}
}

func (f *fakeConfigsRepo) SaveConfig(ctx context.Context, cfg *repository.SavedConfig) (string, error) {
	f.nextID++
	id := fmt.Sprintf("cfg-%d", f.nextID)
	stored := *cfg
	stored.ConfigID = id
	stored.CreatedAt = time.Now()
	f.saved[id] = &stored
	return id, nil
}

func (f *fakeConfigsRepo) GetConfig(ctx context.Context, configID string) (*repository.SavedConfig, error) {
	cfg, ok := f.saved[configID]
	if !ok {
		return nil, repository.ErrConfigNotFound
	}
	return cfg, nil
}

func (f *fakeConfigsRepo) ListConfigsByUser(ctx context.Context, userID string, page, size int) ([]*repository.ConfigSummary, int, error) {
	var out []*repository.ConfigSummary
	for _, cfg := range f.saved {
		if cfg.UserID == userID {
			out = append(out, &repository.ConfigSummary{
				ConfigID:  cfg.ConfigID,
				Name:      cfg.Name,
				LightType: cfg.LightType,
				Price:     cfg.Price,
			})
		}
	}
	return out, len(out), nil
}

func (f *fakeConfigsRepo) DeleteConfig(ctx context.Context, userID, configID string) error {
	cfg, ok := f.saved[configID]
	if !ok || cfg.UserID != userID {
		return repository.ErrConfigNotFound
	}
	delete(f.saved, configID)
	return nil
}

type memKV struct {
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

type memChannel struct{ messages []string }

func (c *memChannel) Publish(msg string) error {
	c.messages = append(c.messages, msg)
	return nil
}
func (c *memChannel) Ready() bool { return true }

type persistenceFixture struct {
	svc      *PersistenceService
	repo     *fakeConfigsRepo
	verifier *fakeVerifier
	kv       *memKV
	sess     *session.Session
}

func newPersistenceFixture(t *testing.T) *persistenceFixture {
	t.Helper()
	logger := zap.NewNop()

	repo := newFakeConfigsRepo()
	verifier := &fakeVerifier{userID: "user-1"}
	kv := newMemKV()
	local := repository.NewLocalConfigStore(kv, "configurator:local:", time.Hour, logger)

	cfg := domain.NewConfiguration(rand.New(rand.NewSource(1)))
	sess := session.NewSession("sess-1", cfg, renderer.NewEmitter(&memChannel{}, logger), logger)
	sess.HandleRendererReady()

	svc := NewPersistenceService(repo, local, verifier, kv,
		"configurator:pending-save:", 30*time.Minute, logger)

	return &persistenceFixture{svc: svc, repo: repo, verifier: verifier, kv: kv, sess: sess}
}

func TestSave_Success(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	_, err := fx.sess.SetQuantity(3)
	require.NoError(t, err)
	_, err = fx.sess.SetUnitDesign([]int{0, 1, 2}, "cone")
	require.NoError(t, err)

	res, err := fx.svc.Save(ctx, fx.sess, "Living Room", "token")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ConfigID)
	assert.False(t, res.Local)

	saved := fx.repo.saved[res.ConfigID]
	require.NotNil(t, saved)
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, "ceiling", saved.LightType)
	assert.Equal(t, "round", saved.BaseType)
	assert.Equal(t, 3, saved.LightAmount)
	// 存档用人类可读名称
	assert.Equal(t, []string{"Cone", "Cone", "Cone"}, saved.Designs)
	assert.Equal(t, "Matte Black", saved.BaseColor)
	// 重放序列可重建渲染器状态
	require.NotEmpty(t, saved.Iframe)
	assert.Equal(t, "light_type:ceiling", saved.Iframe[0])
	assert.Contains(t, saved.Iframe, "cable_2:product_2")
}

func TestSave_RequiresName(t *testing.T) {
	fx := newPersistenceFixture(t)

	_, err := fx.svc.Save(context.Background(), fx.sess, "", "token")
	assert.ErrorIs(t, err, ErrSaveNameEmpty)
}

func TestSave_ParksOnExpiredTokenAndResumes(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	_, err := fx.sess.SetUnitDesign(nil, "globe")
	require.NoError(t, err)

	// 令牌过期：保存失败但配置被暂存
	fx.verifier.err = ErrTokenExpired
	_, err = fx.svc.Save(ctx, fx.sess, "Bedroom", "stale-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Contains(t, fx.kv.data, "configurator:pending-save:sess-1")
	assert.Empty(t, fx.repo.saved)

	// 登录后续存
	fx.verifier.err = nil
	res, err := fx.svc.ResumePendingSave(ctx, fx.sess, "fresh-token")
	require.NoError(t, err)
	assert.Equal(t, "Bedroom", res.Name)

	saved := fx.repo.saved[res.ConfigID]
	require.NotNil(t, saved)
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, []string{"Globe"}, saved.Designs)
	// 暂存被清掉
	assert.NotContains(t, fx.kv.data, "configurator:pending-save:sess-1")
}

func TestResume_NoPendingSave(t *testing.T) {
	fx := newPersistenceFixture(t)

	_, err := fx.svc.ResumePendingSave(context.Background(), fx.sess, "token")
	assert.ErrorIs(t, err, ErrNoPendingSave)
}

func TestSaveLocal_NoAuthNeeded(t *testing.T) {
	fx := newPersistenceFixture(t)
	fx.verifier.err = ErrNotAuthenticated
	ctx := context.Background()

	res, err := fx.svc.SaveLocal(ctx, fx.sess, "Draft")
	require.NoError(t, err)
	assert.True(t, res.Local)
	assert.True(t, repository.IsLocalConfigID(res.ConfigID))

	list, err := fx.svc.ListLocalConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Draft", list[0].Name)
}

func TestLoad_RoundTrip(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	_, err := fx.sess.SetQuantity(6)
	require.NoError(t, err)
	_, err = fx.sess.SetUnitDesign([]int{0, 1, 2, 3, 4, 5}, "cone")
	require.NoError(t, err)
	_, err = fx.sess.SetUnitCableSize([]int{0}, 6)
	require.NoError(t, err)
	_, err = fx.sess.SetBaseColor("copper")
	require.NoError(t, err)
	wantPrice := fx.sess.CurrentView().Price

	res, err := fx.svc.SaveLocal(ctx, fx.sess, "Showroom")
	require.NoError(t, err)

	// 会话改走别处
	_, err = fx.sess.SetLightType("wall")
	require.NoError(t, err)

	loaded, err := fx.svc.Load(ctx, fx.sess, res.ConfigID)
	require.NoError(t, err)
	assert.False(t, loaded.FallbackDefault)
	assert.Equal(t, "Showroom", loaded.Name)
	assert.Equal(t, 6, loaded.Quantity)
	assert.Equal(t, wantPrice, loaded.Price)
	assert.Equal(t, "light_type:ceiling", loaded.Messages[0])
	assert.Contains(t, loaded.Messages, "cable_5:product_2")

	st := fx.sess.Export()
	assert.Equal(t, "ceiling", st.LightType)
	assert.Equal(t, 6, st.Quantity)
	assert.Equal(t, "cone", st.Units[3].Design)
	assert.Equal(t, 6, st.Units[0].CableSize)
	assert.Equal(t, "copper", st.BaseColor)
}

func TestLoad_SystemConfigWithShades(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	_, err := fx.sess.SetSystemType("ball")
	require.NoError(t, err)
	_, err = fx.sess.SetUnitShade(0, "amber")
	require.NoError(t, err)

	res, err := fx.svc.SaveLocal(ctx, fx.sess, "Orb Demo")
	require.NoError(t, err)

	_, err = fx.sess.SetLightType("floor")
	require.NoError(t, err)

	_, err = fx.svc.Load(ctx, fx.sess, res.ConfigID)
	require.NoError(t, err)

	st := fx.sess.Export()
	assert.Equal(t, "system", st.ConfigurationType)
	assert.Equal(t, "ball", st.SystemType)
	assert.Equal(t, "ball_orb", st.Units[0].Design)
	assert.Equal(t, "amber", st.Units[0].Shade)
	assert.True(t, st.Units[0].IsSystem)
}

// 目录里每个吊灯设计、每个系统底座（含每种灯罩）都要能保存再加载回同样的状态
func TestSaveLoad_RoundTripWholeCatalog(t *testing.T) {
	ctx := context.Background()

	for _, d := range catalog.Pendants() {
		t.Run("pendant_"+d.ID, func(t *testing.T) {
			fx := newPersistenceFixture(t)
			_, err := fx.sess.SetUnitDesign([]int{0}, d.ID)
			require.NoError(t, err)
			wantPrice := fx.sess.CurrentView().Price

			res, err := fx.svc.SaveLocal(ctx, fx.sess, "RT "+d.Name)
			require.NoError(t, err)

			_, err = fx.sess.SetLightType("wall")
			require.NoError(t, err)

			loaded, err := fx.svc.Load(ctx, fx.sess, res.ConfigID)
			require.NoError(t, err)
			assert.False(t, loaded.Substituted)
			assert.Equal(t, wantPrice, loaded.Price)

			st := fx.sess.Export()
			require.Len(t, st.Units, 1)
			assert.Equal(t, d.ID, st.Units[0].Design)
			assert.False(t, st.Units[0].IsSystem)
		})
	}

	for _, b := range catalog.SystemBases() {
		shadeIDs := []string{""}
		for _, v := range b.Shades {
			shadeIDs = append(shadeIDs, v.ID)
		}
		for _, shadeID := range shadeIDs {
			name := "system_" + b.ID
			if shadeID != "" {
				name += "_" + shadeID
			}
			t.Run(name, func(t *testing.T) {
				fx := newPersistenceFixture(t)
				_, err := fx.sess.SetSystemType(b.System)
				require.NoError(t, err)
				_, err = fx.sess.SetSystemBaseDesign([]int{0}, b.ID)
				require.NoError(t, err)
				if shadeID != "" {
					_, err = fx.sess.SetUnitShade(0, shadeID)
					require.NoError(t, err)
				}
				want := fx.sess.Export()

				res, err := fx.svc.SaveLocal(ctx, fx.sess, "RT "+b.Name)
				require.NoError(t, err)

				_, err = fx.sess.SetLightType("floor")
				require.NoError(t, err)

				loaded, err := fx.svc.Load(ctx, fx.sess, res.ConfigID)
				require.NoError(t, err)
				assert.False(t, loaded.Substituted)
				assert.Equal(t, want.Price, loaded.Price)

				st := fx.sess.Export()
				assert.Equal(t, "system", st.ConfigurationType)
				assert.Equal(t, b.System, st.SystemType)
				require.Len(t, st.Units, len(want.Units))
				for i := range want.Units {
					assert.Equal(t, want.Units[i], st.Units[i])
				}
			})
		}
	}
}

func TestLoad_UnknownIDFallsBackToDefaults(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	_, err := fx.sess.SetQuantity(6)
	require.NoError(t, err)

	loaded, err := fx.svc.Load(ctx, fx.sess, "missing-config-id")
	require.NoError(t, err)
	assert.True(t, loaded.FallbackDefault)
	assert.Equal(t, 1, loaded.Quantity)
	assert.Equal(t, "light_type:ceiling", loaded.Messages[0])
}

func TestRebuild_RejectsStructurallyCorruptArchive(t *testing.T) {
	_, _, err := rebuildConfiguration(&repository.SavedConfig{
		ConfigID:    "bad",
		LightType:   "ceiling",
		BaseType:    "round",
		LightAmount: 5, // 不在 {1,3,6,24}
		Designs:     []string{"Cone", "Cone", "Cone", "Cone", "Cone"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt config")

	// unit 数和 light_amount 不一致同样拒绝
	_, _, err = rebuildConfiguration(&repository.SavedConfig{
		ConfigID:    "bad2",
		LightType:   "ceiling",
		BaseType:    "round",
		LightAmount: 3,
		Designs:     []string{"Cone"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt config")
}

func TestRebuild_RetiredEntriesFallBackToDefaults(t *testing.T) {
	// 下架的设计只替换那一个 unit，其余照常加载
	cfg, substituted, err := rebuildConfiguration(&repository.SavedConfig{
		ConfigID:       "retired-design",
		LightType:      "ceiling",
		BaseType:       "round",
		ConfigType:     "pendant",
		LightAmount:    3,
		Designs:        []string{"Cone", "Discontinued Design", "Globe"},
		CableSizes:     []int{2, 2, 2},
		BaseColor:      "Matte Black",
		ConnectorColor: "Matte Black",
	})
	require.NoError(t, err)
	assert.True(t, substituted)
	assert.Equal(t, "cone", cfg.Units[0].Design)
	assert.Equal(t, catalog.DefaultPendantID(), cfg.Units[1].Design)
	assert.Equal(t, "globe", cfg.Units[2].Design)
	assert.Equal(t, 2, cfg.Units[1].CableSize)

	// 下架的颜色换成默认颜色
	cfg, substituted, err = rebuildConfiguration(&repository.SavedConfig{
		ConfigID:       "retired-color",
		LightType:      "wall",
		ConfigType:     "pendant",
		LightAmount:    1,
		Designs:        []string{"Cone"},
		BaseColor:      "Retired Gold",
		ConnectorColor: "Matte Black",
	})
	require.NoError(t, err)
	assert.True(t, substituted)
	assert.Equal(t, catalog.DefaultColorID(), cfg.BaseColor)
	assert.Equal(t, "matte_black", cfg.ConnectorColor)

	// system 存档取所属系统族的默认底座
	cfg, substituted, err = rebuildConfiguration(&repository.SavedConfig{
		ConfigID:       "retired-system-base",
		LightType:      "ceiling",
		BaseType:       "round",
		ConfigType:     "system",
		SystemType:     "ball",
		LightAmount:    1,
		Designs:        []string{"Discontinued Base"},
		BaseColor:      "Matte Black",
		ConnectorColor: "Matte Black",
	})
	require.NoError(t, err)
	assert.True(t, substituted)
	assert.Equal(t, catalog.DefaultSystemBaseID("ball"), cfg.Units[0].Design)
	assert.True(t, cfg.Units[0].IsSystem)

	// 全部可解析时不标记替换
	_, substituted, err = rebuildConfiguration(&repository.SavedConfig{
		ConfigID:       "clean",
		LightType:      "wall",
		ConfigType:     "pendant",
		LightAmount:    1,
		Designs:        []string{"Cone"},
		BaseColor:      "Matte Black",
		ConnectorColor: "Matte Black",
	})
	require.NoError(t, err)
	assert.False(t, substituted)
}

func TestLoad_SubstitutesRetiredDesign(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	_, err := fx.sess.SetQuantity(3)
	require.NoError(t, err)
	_, err = fx.sess.SetUnitDesign([]int{0, 1, 2}, "cone")
	require.NoError(t, err)

	res, err := fx.svc.SaveLocal(ctx, fx.sess, "With Retired")
	require.NoError(t, err)

	// 模拟目录演进：存档里的设计名在目录里已经查不到
	saved, err := fx.svc.GetSavedConfig(ctx, res.ConfigID)
	require.NoError(t, err)
	saved.Designs[1] = "Discontinued Design"
	data, err := json.Marshal(saved)
	require.NoError(t, err)
	fx.kv.data["configurator:local:"+res.ConfigID] = string(data)

	loaded, err := fx.svc.Load(ctx, fx.sess, res.ConfigID)
	require.NoError(t, err)
	assert.True(t, loaded.Substituted)
	assert.Equal(t, 3, loaded.Quantity)

	st := fx.sess.Export()
	assert.Equal(t, "cone", st.Units[0].Design)
	assert.Equal(t, catalog.DefaultPendantID(), st.Units[1].Design)
	assert.Equal(t, "cone", st.Units[2].Design)
}

func TestListAndDelete_UserConfigs(t *testing.T) {
	fx := newPersistenceFixture(t)
	ctx := context.Background()

	res, err := fx.svc.Save(ctx, fx.sess, "Keep", "token")
	require.NoError(t, err)

	list, total, err := fx.svc.ListUserConfigs(ctx, "token", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)

	require.NoError(t, fx.svc.DeleteConfig(ctx, "token", res.ConfigID))
	_, total, err = fx.svc.ListUserConfigs(ctx, "token", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
}
