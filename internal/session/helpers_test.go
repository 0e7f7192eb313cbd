package session

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"limi-configurator/internal/domain"
	"limi-configurator/internal/renderer"
	"limi-configurator/internal/store"
)

// 包内测试共用的假件

func newTestConfig(t *testing.T) *domain.Configuration {
	t.Helper()
	return domain.NewConfiguration(rand.New(rand.NewSource(1)))
}

// fakeChannel 进程内渲染器通道
type fakeChannel struct {
	ready    bool
	closed   bool
	messages []string
}

func (f *fakeChannel) Publish(msg string) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChannel) Ready() bool { return f.ready }

func (f *fakeChannel) Close() { f.closed = true }

func newTestSession(t *testing.T) (*Session, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{ready: true}
	logger := zap.NewNop()
	s := NewSession("test-session", newTestConfig(t), renderer.NewEmitter(ch, logger), logger)
	s.HandleRendererReady()
	ch.messages = nil // 丢掉就绪重放，测试只看后续消息
	return s, ch
}

// fakeKV 内存版 KV（ScanKeys 只支持前缀通配）
type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
