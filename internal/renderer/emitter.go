package renderer

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Channel 出站通道抽象（生产环境是 MQTT，测试里替换为 fake）
type Channel interface {
	Publish(msg string) error
	Ready() bool
}

// Emitter 渲染器同步发射器
// 单向 fire-and-forget：不等确认、不重试、通道不可用时整批丢弃（不排队）
// 丢掉的状态由下一次全量重放隐式修复
type Emitter struct {
	ch     Channel
	logger *zap.Logger

	// 渲染器是否已报告就绪（app:ready1 / loadingOffMount）
	rendererReady atomic.Bool
}

// NewEmitter 创建发射器；通道由构造时注入，便于测试替换
func NewEmitter(ch Channel, logger *zap.Logger) *Emitter {
	return &Emitter{ch: ch, logger: logger}
}

// MarkReady 渲染器报告就绪后调用
func (e *Emitter) MarkReady() {
	e.rendererReady.Store(true)
}

// MarkUnready 渲染器重载时调用（下次就绪后需要全量重放）
func (e *Emitter) MarkUnready() {
	e.rendererReady.Store(false)
}

// Ready 出站通道和渲染器都就绪
func (e *Emitter) Ready() bool {
	return e.rendererReady.Load() && e.ch.Ready()
}

// Close 释放底层通道（会话销毁时调用；测试用的 fake 通道可以不实现 Close）
func (e *Emitter) Close() {
	if closer, ok := e.ch.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Flush 按批次顺序发出消息
// 未就绪时整批丢弃并返回丢弃条数；单条发布失败只记日志不中断（无重试通道）
func (e *Emitter) Flush(batch []Message) (sent int, dropped int) {
	if len(batch) == 0 {
		return 0, 0
	}
	if !e.Ready() {
		e.logger.Debug("Renderer channel not ready, dropping batch",
			zap.Int("messages", len(batch)),
		)
		return 0, len(batch)
	}

	for _, m := range batch {
		wire := m.Wire()
		if wire == "" {
			continue
		}
		if err := e.ch.Publish(wire); err != nil {
			e.logger.Warn("Failed to publish renderer message",
				zap.String("message", wire),
				zap.Error(err),
			)
			dropped++
			continue
		}
		sent++
	}
	return sent, dropped
}
